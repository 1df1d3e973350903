package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/cart"
	"github.com/MikeMC777/ordenes-checkout/internal/httpx"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	ord "github.com/MikeMC777/ordenes-checkout/internal/order"
	"github.com/MikeMC777/ordenes-checkout/internal/payment"
)

const maxWebhookBody = 64 << 10

type cartAPI interface {
	AddOrIncrement(ctx context.Context, ownerID, productID string, delta int) (*cart.Line, bool, error)
	SetQuantity(ctx context.Context, ownerID, productID string, qty int) (*cart.Line, error)
	Remove(ctx context.Context, ownerID, productID string) error
	ListForOwner(ctx context.Context, ownerID string) (*cart.View, error)
}

type orderAPI interface {
	GetAddress(ctx context.Context, ownerID string) (*ord.Address, error)
	UpsertAddress(ctx context.Context, ownerID string, a ord.Address) (*ord.Address, error)
	DeleteAddress(ctx context.Context, ownerID string) error
	Checkout(ctx context.Context, ownerID string, override *ord.Address) (*ord.Order, error)
	ListOrders(ctx context.Context, ownerID string) ([]ord.Order, error)
	GetOrder(ctx context.Context, p *identity.Principal, id string) (*ord.Order, error)
	UpdateStatus(ctx context.Context, p *identity.Principal, id, status string) (*ord.Order, error)
}

type sessionAPI interface {
	CreateCheckoutSession(ctx context.Context, orderID, requesterID string) (*payment.SessionRef, error)
}

type webhookAPI interface {
	HandleGatewayEvent(ctx context.Context, payload []byte, sigHeader string) (*payment.Ack, error)
}

// getCartHandler godoc
// @Summary      Current cart
// @Tags         cart
// @Produce      json
// @Param        X-User-ID  header    string  true  "User ID"
// @Success      200        {object}  cart.View
// @Failure      401        {object}  product.HTTPError
// @Router       /api/cart [get]
func getCartHandler(svc cartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.ListForOwner(c.Request.Context(), httpx.Principal(c).UserID)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// addCartItemHandler godoc
// @Summary      Add a product to the cart
// @Description  Creates the line or increments its quantity. Quantity defaults to 1.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string               true  "User ID"
// @Param        body       body      cart.AddItemRequest  true  "Item"
// @Success      201        {object}  cart.AddResult       "line created"
// @Success      200        {object}  cart.AddResult       "line incremented"
// @Failure      400        {object}  product.HTTPError
// @Failure      404        {object}  product.HTTPError
// @Router       /api/cart/items [post]
func addCartItemHandler(svc cartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		l, created, err := svc.AddOrIncrement(c.Request.Context(), httpx.Principal(c).UserID, req.ProductID, req.Quantity)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, cart.AddResult{Line: *l, Created: created})
	}
}

// setCartItemHandler godoc
// @Summary      Set a cart line quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-User-ID   header    string                   true  "User ID"
// @Param        product_id  path      string                   true  "Product ID"
// @Param        body        body      cart.SetQuantityRequest  true  "Quantity"
// @Success      200         {object}  cart.Line
// @Failure      400         {object}  product.HTTPError
// @Failure      404         {object}  product.HTTPError
// @Router       /api/cart/items/{product_id} [put]
func setCartItemHandler(svc cartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.SetQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		l, err := svc.SetQuantity(c.Request.Context(), httpx.Principal(c).UserID, c.Param("product_id"), req.Quantity)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, l)
	}
}

// removeCartItemHandler godoc
// @Summary      Remove a cart line
// @Tags         cart
// @Param        X-User-ID   header  string  true  "User ID"
// @Param        product_id  path    string  true  "Product ID"
// @Success      204
// @Router       /api/cart/items/{product_id} [delete]
func removeCartItemHandler(svc cartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Remove(c.Request.Context(), httpx.Principal(c).UserID, c.Param("product_id")); err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// getAddressHandler godoc
// @Summary      Stored shipping address
// @Tags         shipping
// @Produce      json
// @Param        X-User-ID  header    string  true  "User ID"
// @Success      200        {object}  order.Address
// @Failure      404        {object}  product.HTTPError
// @Router       /api/shipping-address [get]
func getAddressHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svc.GetAddress(c.Request.Context(), httpx.Principal(c).UserID)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// putAddressHandler godoc
// @Summary      Create or replace the shipping address
// @Tags         shipping
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string         true  "User ID"
// @Param        body       body      order.Address  true  "Address"
// @Success      200        {object}  order.Address
// @Failure      400        {object}  product.HTTPError
// @Router       /api/shipping-address [put]
func putAddressHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.Address
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		a, err := svc.UpsertAddress(c.Request.Context(), httpx.Principal(c).UserID, req)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// deleteAddressHandler godoc
// @Summary      Delete the shipping address
// @Tags         shipping
// @Param        X-User-ID  header  string  true  "User ID"
// @Success      204
// @Failure      404        {object}  product.HTTPError
// @Router       /api/shipping-address [delete]
func deleteAddressHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteAddress(c.Request.Context(), httpx.Principal(c).UserID); err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// checkoutHandler godoc
// @Summary      Place an order from the cart
// @Description  Atomically creates a pending order from the current cart and empties it.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string                 true   "User ID"
// @Param        body       body      order.CheckoutRequest  false  "Optional address override"
// @Success      201        {object}  order.Order
// @Failure      400        {object}  product.HTTPError  "empty cart, missing address"
// @Failure      409        {object}  product.HTTPError  "insufficient stock"
// @Router       /api/checkout [post]
func checkoutHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CheckoutRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
				return
			}
		}
		o, err := svc.Checkout(c.Request.Context(), httpx.Principal(c).UserID, req.ShippingAddress)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// listOrdersHandler godoc
// @Summary      Caller's orders, newest first
// @Tags         orders
// @Produce      json
// @Param        X-User-ID  header    string  true  "User ID"
// @Success      200        {object}  order.ListResponse
// @Router       /api/orders [get]
func listOrdersHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.ListOrders(c.Request.Context(), httpx.Principal(c).UserID)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, ord.ListResponse{Items: out})
	}
}

// getOrderHandler godoc
// @Summary      Order detail
// @Tags         orders
// @Produce      json
// @Param        X-User-ID  header    string  true  "User ID"
// @Param        id         path      string  true  "Order ID"
// @Success      200        {object}  order.Order
// @Failure      404        {object}  product.HTTPError
// @Router       /api/orders/{id} [get]
func getOrderHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.GetOrder(c.Request.Context(), httpx.Principal(c), c.Param("id"))
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// updateOrderStatusHandler godoc
// @Summary      Set order status (managers)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string                     true  "User ID"
// @Param        id         path      string                     true  "Order ID"
// @Param        body       body      order.UpdateStatusRequest  true  "Status"
// @Success      200        {object}  order.Order
// @Failure      400        {object}  product.HTTPError
// @Failure      403        {object}  product.HTTPError
// @Failure      404        {object}  product.HTTPError
// @Router       /api/orders/{id}/status [put]
func updateOrderStatusHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), httpx.Principal(c), c.Param("id"), req.Status)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// createPaymentSessionHandler godoc
// @Summary      Start hosted payment for an order
// @Tags         payments
// @Produce      json
// @Param        X-User-ID  header    string  true  "User ID"
// @Param        id         path      string  true  "Order ID"
// @Success      201        {object}  payment.SessionRef
// @Failure      404        {object}  product.HTTPError
// @Failure      409        {object}  product.HTTPError  "already settled"
// @Failure      503        {object}  product.HTTPError  "gateway unavailable, retry"
// @Router       /api/orders/{id}/payment-session [post]
func createPaymentSessionHandler(svc sessionAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, err := svc.CreateCheckoutSession(c.Request.Context(), c.Param("id"), httpx.Principal(c).UserID)
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ref)
	}
}

// stripeWebhookHandler godoc
// @Summary      Payment gateway webhook
// @Description  200 for processed, duplicate, ignored or conflicting events and for unknown order numbers; 400 for bad signatures.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Signature"
// @Success      200               {object}  payment.Ack
// @Failure      400               {object}  product.HTTPError
// @Router       /api/webhooks/stripe [post]
func stripeWebhookHandler(svc webhookAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		ack, err := svc.HandleGatewayEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
		// the gateway retries any non-2xx; an unknown order never resolves
		if ack != nil && apperr.KindOf(err) == apperr.KindNotFound {
			c.JSON(http.StatusOK, ack)
			return
		}
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, ack)
	}
}
