package payment

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/metrics"
	"github.com/MikeMC777/ordenes-checkout/internal/order"
	"github.com/MikeMC777/ordenes-checkout/internal/product"
)

const MetadataOrderNumber = "order_number"

var ErrAlreadySettled = apperr.Conflict("order payment is already settled")

// OrderReader returns an order only to its owner.
type OrderReader interface {
	GetOwned(ctx context.Context, ownerID, id string) (*order.Order, error)
}

type IssuerConfig struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

type Issuer struct {
	orders  OrderReader
	catalog product.Catalog
	gw      Gateway
	cfg     IssuerConfig
	m       *metrics.Metrics
}

func NewIssuer(orders OrderReader, catalog product.Catalog, gw Gateway, cfg IssuerConfig, m *metrics.Metrics) *Issuer {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Issuer{orders: orders, catalog: catalog, gw: gw, cfg: cfg, m: m}
}

// MinorUnits converts a decimal amount to cents, rounding half away from zero.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateCheckoutSession stages payment for an order owned by requesterID.
// Names come from the catalog, amounts from the frozen order prices. Local
// state is not modified.
func (i *Issuer) CreateCheckoutSession(ctx context.Context, orderID, requesterID string) (*SessionRef, error) {
	o, err := i.orders.GetOwned(ctx, requesterID, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != order.PaymentPending {
		return nil, ErrAlreadySettled
	}

	req := SessionRequest{
		Currency:   i.cfg.Currency,
		SuccessURL: i.cfg.SuccessURL,
		CancelURL:  i.cfg.CancelURL,
		Metadata:   map[string]string{MetadataOrderNumber: o.OrderNumber},
	}
	for _, it := range o.Items {
		name, err := i.productName(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		req.LineItems = append(req.LineItems, LineItem{
			Name:            name,
			UnitAmountMinor: MinorUnits(it.Price),
			Quantity:        int64(it.Quantity),
		})
	}

	ref, err := i.gw.CreateSession(ctx, req)
	if err != nil {
		i.m.GatewayCall("error")
		log.Printf("[payment] order=%s number=%s session err=%v", o.ID, o.OrderNumber, err)
		return nil, err
	}
	i.m.GatewayCall("ok")
	log.Printf("[payment] order=%s number=%s session=%s", o.ID, o.OrderNumber, ref.ID)
	return ref, nil
}

func (i *Issuer) productName(ctx context.Context, id string) (string, error) {
	p, err := i.catalog.GetProduct(ctx, id)
	if apperr.KindOf(err) == apperr.KindNotFound {
		// the product left the catalog after purchase; the order still pays
		return fmt.Sprintf("Product %s", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("product name %s: %w", id, err)
	}
	return p.Name, nil
}
