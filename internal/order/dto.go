package order

// CheckoutRequest payload for checkout. ShippingAddress, when present,
// replaces the stored address before the order is placed.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	ShippingAddress *Address `json:"shipping_address,omitempty"`
}

// UpdateStatusRequest payload for the manager status update.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"shipped"`
}

// ListResponse wraps the owner's orders.
// swagger:model OrderListResponse
type ListResponse struct {
	Items []Order `json:"items"`
}
