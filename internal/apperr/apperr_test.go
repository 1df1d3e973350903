package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stockErr struct{}

func (stockErr) Error() string { return "not enough stock" }
func (stockErr) ErrKind() Kind { return KindConflict }

func TestKindOf_Wrapped(t *testing.T) {
	base := NotFound("order not found")
	err := fmt.Errorf("load order: %w", base)

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "order not found", Message(err))
}

func TestKindOf_CustomType(t *testing.T) {
	err := fmt.Errorf("checkout: %w", stockErr{})

	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "not enough stock", Message(err))
}

func TestKindOf_Plain(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Equal(t, "internal error", Message(err))
	assert.False(t, IsRetryable(err))
}

func TestGateway_Retryable(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := fmt.Errorf("create session: %w", Gateway("payment gateway unavailable", cause, true))

	assert.Equal(t, KindGateway, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadline exceeded")
}
