// Package order holds the order state machine, the checkout transaction and
// the order read side.
package order

import (
	"context"
	"fmt"
	"log"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	"github.com/MikeMC777/ordenes-checkout/internal/metrics"
)

type Service struct {
	repo Repository
	m    *metrics.Metrics
}

func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, m: m}
}

func (s *Service) GetAddress(ctx context.Context, ownerID string) (*Address, error) {
	return s.repo.GetAddress(ctx, ownerID)
}

// UpsertAddress creates or replaces the owner's address.
func (s *Service) UpsertAddress(ctx context.Context, ownerID string, a Address) (*Address, error) {
	a = a.normalized()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertAddress(ctx, ownerID, a); err != nil {
		return nil, fmt.Errorf("save address: %w", err)
	}
	return &a, nil
}

func (s *Service) DeleteAddress(ctx context.Context, ownerID string) error {
	return s.repo.DeleteAddress(ctx, ownerID)
}

func (s *Service) Checkout(ctx context.Context, ownerID string, override *Address) (*Order, error) {
	if override != nil {
		a := override.normalized()
		if err := a.Validate(); err != nil {
			s.m.CheckoutResult("invalid")
			return nil, err
		}
		override = &a
	}
	o, err := s.repo.Checkout(ctx, ownerID, override)
	if err != nil {
		s.m.CheckoutResult(apperr.KindOf(err).String())
		log.Printf("[checkout] owner=%s err=%v", ownerID, err)
		return nil, err
	}
	s.m.CheckoutResult("ok")
	log.Printf("[checkout] owner=%s order=%s number=%s items=%d total=%s",
		ownerID, o.ID, o.OrderNumber, len(o.Items), o.Total.StringFixed(2))
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, ownerID string) ([]Order, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// GetOrder returns the order only to its owner or a manager.
func (s *Service) GetOrder(ctx context.Context, p *identity.Principal, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != p.UserID && !p.IsManager {
		return nil, ErrNotFound
	}
	return o, nil
}

// GetOwned returns the order only if ownerID owns it.
func (s *Service) GetOwned(ctx context.Context, ownerID, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus is the manager status override. Any of the five statuses may
// be set from any other; payment status is never touched here.
func (s *Service) UpdateStatus(ctx context.Context, p *identity.Principal, id, raw string) (*Order, error) {
	if err := identity.RequireManager(p); err != nil {
		return nil, err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	prev, err := s.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}
	if IsBackward(prev, st) {
		log.Printf("[order] WARN backward status move order=%s from=%s to=%s by=%s", id, prev, st, p.UserID)
	} else {
		log.Printf("[order] status order=%s from=%s to=%s by=%s", id, prev, st, p.UserID)
	}
	return s.repo.GetByID(ctx, id)
}

// ApplySettlement is called by the payment reconciler only.
func (s *Service) ApplySettlement(ctx context.Context, orderNumber string, target PaymentStatus) (*Settlement, error) {
	return s.repo.ApplySettlement(ctx, orderNumber, target)
}
