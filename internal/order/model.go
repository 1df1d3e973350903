package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Address is a shipping address. Orders keep their own copy taken at
// checkout.
type Address struct {
	Line1      string `json:"address_line_1" example:"742 Evergreen Terrace"`
	Line2      string `json:"address_line_2,omitempty"`
	City       string `json:"city"           example:"Springfield"`
	State      string `json:"state,omitempty" example:"OR"`
	PostalCode string `json:"postal_code"    example:"97403"`
	Country    string `json:"country"        example:"US"`
}

type Order struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	OrderNumber     string          `json:"order_number"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	ShippingAddress Address         `json:"shipping_address"`
	Items           []Item          `json:"items,omitempty"`
	Total           decimal.Decimal `json:"total" swaggertype:"string" example:"25.00"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Item is a frozen order line. Price is the unit price at purchase time.
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" swaggertype:"string" example:"10.00"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Settlement is the result of applying a gateway payment outcome.
type Settlement struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	Outcome       SettlementOutcome `json:"outcome"`
	Status        Status            `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
}
