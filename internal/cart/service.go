package cart

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-checkout/internal/product"
)

type Service struct {
	repo    Repository
	catalog product.Catalog
}

func NewService(repo Repository, catalog product.Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// AddOrIncrement adds delta units of productID to the owner's cart. The
// returned bool is true when a new line was created. An increment that would
// push the line past MaxQuantity is rejected with ErrInvalidQuantity.
func (s *Service) AddOrIncrement(ctx context.Context, ownerID, productID string, delta int) (*Line, bool, error) {
	if delta < 1 || delta > MaxQuantity {
		return nil, false, ErrInvalidQuantity
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, false, err
	}
	l, created, err := s.repo.AddOrIncrement(ctx, ownerID, productID, delta)
	if err != nil {
		return nil, false, fmt.Errorf("add to cart: %w", err)
	}
	log.Printf("[cart] owner=%s product=%s qty=%d created=%v", ownerID, productID, l.Quantity, created)
	return l, created, nil
}

func (s *Service) SetQuantity(ctx context.Context, ownerID, productID string, qty int) (*Line, error) {
	if qty < 1 || qty > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	return s.repo.SetQuantity(ctx, ownerID, productID, qty)
}

func (s *Service) Remove(ctx context.Context, ownerID, productID string) error {
	return s.repo.Remove(ctx, ownerID, productID)
}

// ListForOwner returns the cart in insertion order with each line priced and
// flagged against current stock.
func (s *Service) ListForOwner(ctx context.Context, ownerID string) (*View, error) {
	lines, err := s.repo.ListForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	v := &View{Lines: make([]LineView, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		p, err := s.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price line %d: %w", l.ID, err)
		}
		lv := LineView{
			Line:          l,
			ProductName:   p.Name,
			UnitPrice:     p.Price,
			LineTotal:     p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
			IsUnavailable: l.Quantity > p.Stock,
		}
		v.Total = v.Total.Add(lv.LineTotal)
		v.Lines = append(v.Lines, lv)
	}
	return v, nil
}
