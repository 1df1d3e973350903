// Package payment issues hosted payment sessions and reconciles the
// gateway's asynchronous outcome events into order state.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
)

type LineItem struct {
	Name            string
	UnitAmountMinor int64
	Quantity        int64
}

type SessionRequest struct {
	LineItems  []LineItem
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// SessionRef identifies a hosted checkout session.
type SessionRef struct {
	ID  string `json:"session_id"`
	URL string `json:"url,omitempty"`
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*SessionRef, error)
}

// StripeGateway creates Stripe Checkout sessions behind a circuit breaker.
// Every call is bounded by timeout.
type StripeGateway struct {
	sc      *client.API
	cb      *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	timeout time.Duration
}

// NewStripeGateway builds a client for secretKey. apiURL overrides the Stripe
// API base URL when non-empty.
func NewStripeGateway(secretKey, apiURL string, timeout time.Duration) *StripeGateway {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	cb := gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		IsSuccessful: func(err error) bool {
			// card/validation errors from Stripe mean the service is up
			var se *stripe.Error
			return err == nil || (errors.As(err, &se) && se.HTTPStatusCode < 500)
		},
	})
	return &StripeGateway{sc: sc, cb: cb, timeout: timeout}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*SessionRef, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
				UnitAmount: stripe.Int64(li.UnitAmountMinor),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := g.cb.Execute(func() (*stripe.CheckoutSession, error) {
		return g.sc.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, classifyGatewayError(ctx, err)
	}
	return &SessionRef{ID: s.ID, URL: s.URL}, nil
}

func classifyGatewayError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperr.Gateway("payment gateway unavailable", err, true)
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return apperr.Gateway("payment gateway timed out", err, true)
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode >= 500 || se.HTTPStatusCode == http.StatusTooManyRequests {
			return apperr.Gateway("payment gateway unavailable", err, true)
		}
		return apperr.Gateway(fmt.Sprintf("payment gateway rejected session: %s", se.Msg), err, false)
	}
	return apperr.Gateway("payment gateway error", err, true)
}
