package order

import (
	"strings"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
)

var ErrInvalidStatus = apperr.Validation("invalid status")

// ParseStatus accepts any of the five order statuses, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
	StatusCancelled:  4,
}

// IsBackward reports a manager move against the forward lifecycle, e.g.
// delivered -> pending or anything out of cancelled.
func IsBackward(from, to Status) bool {
	if from == to {
		return false
	}
	if from == StatusCancelled {
		return true
	}
	if to == StatusCancelled {
		return from != StatusPending && from != StatusProcessing
	}
	return statusRank[to] < statusRank[from]
}

type SettlementOutcome string

const (
	SettlementApplied   SettlementOutcome = "applied"
	SettlementDuplicate SettlementOutcome = "duplicate"
	SettlementConflict  SettlementOutcome = "conflict"
)

// Settle decides what a gateway outcome does to an order whose payment is in
// state current. The first terminal payment status wins: a repeat of it is a
// duplicate, a different one is a conflict. Neither changes the order.
func Settle(current, target PaymentStatus) (SettlementOutcome, error) {
	if target != PaymentPaid && target != PaymentFailed {
		return "", apperr.Invariant("settlement target must be paid or failed")
	}
	switch current {
	case PaymentPending:
		return SettlementApplied, nil
	case target:
		return SettlementDuplicate, nil
	default:
		return SettlementConflict, nil
	}
}

// SettledStatus is the order status that goes with a terminal payment status.
func SettledStatus(target PaymentStatus) Status {
	if target == PaymentPaid {
		return StatusProcessing
	}
	return StatusCancelled
}
