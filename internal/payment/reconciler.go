package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/metrics"
	"github.com/MikeMC777/ordenes-checkout/internal/order"
)

var ErrInvalidSignature = apperr.Validation("invalid signature")

// Settler applies a terminal payment outcome to an order.
type Settler interface {
	ApplySettlement(ctx context.Context, orderNumber string, target order.PaymentStatus) (*order.Settlement, error)
}

type AckOutcome string

const (
	AckApplied   AckOutcome = "applied"
	AckDuplicate AckOutcome = "duplicate"
	AckConflict  AckOutcome = "conflict"
	AckIgnored   AckOutcome = "ignored"

	// no order carries the event's order number
	AckUnknownOrder AckOutcome = "unknown_order"
)

// Ack is returned for every event the gateway should not redeliver.
type Ack struct {
	EventID     string     `json:"event_id,omitempty"`
	EventType   string     `json:"event_type"`
	OrderNumber string     `json:"order_number,omitempty"`
	Outcome     AckOutcome `json:"outcome"`
}

type Reconciler struct {
	secret string
	orders Settler
	m      *metrics.Metrics
}

func NewReconciler(secret string, orders Settler, m *metrics.Metrics) *Reconciler {
	return &Reconciler{secret: secret, orders: orders, m: m}
}

// Verify checks the signature header against the raw payload and decodes the
// event. Nothing in the payload is trusted before this succeeds.
func (r *Reconciler) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	if r.secret == "" {
		return stripe.Event{}, ErrInvalidSignature
	}
	e, err := webhook.ConstructEventWithOptions(payload, sigHeader, r.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err == nil {
		return e, nil
	}
	switch {
	case errors.Is(err, webhook.ErrNotSigned),
		errors.Is(err, webhook.ErrInvalidHeader),
		errors.Is(err, webhook.ErrNoValidSignature),
		errors.Is(err, webhook.ErrTooOld):
		return stripe.Event{}, apperr.Wrap(apperr.KindValidation, ErrInvalidSignature.Msg, err)
	default:
		return stripe.Event{}, apperr.Wrap(apperr.KindValidation, ErrMalformedEvent.Msg, err)
	}
}

// HandleGatewayEvent verifies, parses and applies one webhook delivery.
// Redeliveries and events for other types are acknowledged. A terminal event
// that contradicts an earlier one is acknowledged as a conflict and leaves
// the order as it is. An unknown order number returns order.ErrNotFound
// together with an AckUnknownOrder ack.
func (r *Reconciler) HandleGatewayEvent(ctx context.Context, payload []byte, sigHeader string) (*Ack, error) {
	raw, err := r.Verify(payload, sigHeader)
	if err != nil {
		r.m.SettlementOutcome("unverified", "rejected")
		log.Printf("[webhook] rejected err=%v", err)
		return nil, err
	}
	ev, err := ParseEvent(raw)
	if err != nil {
		r.m.SettlementOutcome(string(raw.Type), "malformed")
		log.Printf("[webhook] id=%s type=%s malformed err=%v", raw.ID, raw.Type, err)
		return nil, err
	}

	ack := &Ack{EventID: raw.ID, EventType: string(raw.Type)}
	var (
		number string
		target order.PaymentStatus
	)
	switch e := ev.(type) {
	case Completed:
		number, target = e.OrderNumber, order.PaymentPaid
	case Expired:
		number, target = e.OrderNumber, order.PaymentFailed
	case Other:
		ack.Outcome = AckIgnored
		r.m.SettlementOutcome(ack.EventType, string(ack.Outcome))
		log.Printf("[webhook] id=%s type=%s ignored", raw.ID, e.Type)
		return ack, nil
	default:
		return nil, apperr.Invariant(fmt.Sprintf("unhandled event %T", ev))
	}

	ack.OrderNumber = number
	s, err := r.orders.ApplySettlement(ctx, number, target)
	if errors.Is(err, order.ErrNotFound) {
		ack.Outcome = AckUnknownOrder
		r.m.SettlementOutcome(ack.EventType, string(ack.Outcome))
		log.Printf("[webhook] WARN id=%s type=%s number=%s unknown order", raw.ID, raw.Type, number)
		return ack, err
	}
	if err != nil {
		r.m.SettlementOutcome(ack.EventType, "error")
		log.Printf("[webhook] id=%s type=%s number=%s err=%v", raw.ID, raw.Type, number, err)
		return nil, err
	}

	switch s.Outcome {
	case order.SettlementApplied:
		ack.Outcome = AckApplied
		log.Printf("[webhook] id=%s number=%s status=%s payment=%s", raw.ID, number, s.Status, s.PaymentStatus)
	case order.SettlementDuplicate:
		ack.Outcome = AckDuplicate
		log.Printf("[webhook] id=%s number=%s duplicate payment=%s", raw.ID, number, s.PaymentStatus)
	case order.SettlementConflict:
		ack.Outcome = AckConflict
		log.Printf("[webhook] WARN id=%s number=%s conflict: already %s, got %s", raw.ID, number, s.PaymentStatus, target)
	}
	r.m.SettlementOutcome(ack.EventType, string(ack.Outcome))
	return ack, nil
}
