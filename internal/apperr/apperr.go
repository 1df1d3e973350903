// Package apperr defines the error taxonomy shared by the checkout and
// settlement packages and the HTTP layer that maps it to status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuthorization
	KindGateway
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindGateway:
		return "gateway"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is a classified error. Msg is safe to show to the caller; Err is the
// underlying cause and is only logged.
type Error struct {
	Kind      Kind
	Msg       string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrKind() Kind { return e.Kind }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Msg: msg} }
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Msg: msg} }
func Invariant(msg string) *Error { return &Error{Kind: KindInvariant, Msg: msg} }

// Gateway wraps a failure of an external collaborator. Retryable errors are
// surfaced as 503 so the caller can try again.
func Gateway(msg string, err error, retryable bool) *Error {
	return &Error{Kind: KindGateway, Msg: msg, Err: err, Retryable: retryable}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

type kinded interface {
	ErrKind() Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrKind()
	}
	return KindUnknown
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Message returns the caller-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	var k kinded
	if errors.As(err, &k) {
		if s, ok := k.(error); ok {
			return s.Error()
		}
	}
	return "internal error"
}
