package payment

import (
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v76"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
)

var ErrMalformedEvent = apperr.Validation("malformed gateway event")

// Event is one of Completed, Expired or Other.
type Event interface {
	isEvent()
}

type Completed struct{ OrderNumber string }

type Expired struct{ OrderNumber string }

// Other is any event type this service does not act on.
type Other struct{ Type string }

func (Completed) isEvent() {}
func (Expired) isEvent()   {}
func (Other) isEvent()     {}

type sessionObject struct {
	Metadata map[string]string `json:"metadata"`
}

// ParseEvent maps a verified gateway event onto Event. Completed and Expired
// must carry an order number in the session metadata.
func ParseEvent(e stripe.Event) (Event, error) {
	switch e.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
	default:
		return Other{Type: string(e.Type)}, nil
	}
	if e.Data == nil || len(e.Data.Raw) == 0 {
		return nil, ErrMalformedEvent
	}
	var obj sessionObject
	if err := json.Unmarshal(e.Data.Raw, &obj); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, ErrMalformedEvent.Msg, err)
	}
	number := strings.TrimSpace(obj.Metadata[MetadataOrderNumber])
	if number == "" {
		return nil, ErrMalformedEvent
	}
	if e.Type == stripe.EventTypeCheckoutSessionCompleted {
		return Completed{OrderNumber: number}, nil
	}
	return Expired{OrderNumber: number}, nil
}
