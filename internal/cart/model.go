package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one (owner, product) entry of a cart.
type Line struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineView is a Line annotated with current catalog data.
type LineView struct {
	Line
	ProductName   string          `json:"product_name"`
	UnitPrice     decimal.Decimal `json:"unit_price" swaggertype:"string" example:"10.00"`
	LineTotal     decimal.Decimal `json:"line_total" swaggertype:"string" example:"20.00"`
	IsUnavailable bool            `json:"is_unavailable"`
}

// View is the whole cart of one owner.
type View struct {
	Lines []LineView      `json:"lines"`
	Total decimal.Decimal `json:"total" swaggertype:"string" example:"25.00"`
}

// AddItemRequest payload for adding to the cart.
// swagger:model AddItemRequest
type AddItemRequest struct {
	ProductID string `json:"product_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity  int    `json:"quantity"   example:"1"`
}

// SetQuantityRequest payload for replacing a line quantity.
// swagger:model SetQuantityRequest
type SetQuantityRequest struct {
	Quantity int `json:"quantity" example:"3"`
}

// AddResult is returned by AddOrIncrement.
type AddResult struct {
	Line    Line `json:"line"`
	Created bool `json:"created"`
}
