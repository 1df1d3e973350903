// Package docs holds the OpenAPI documents served under /swagger by the
// order and product services.
//
// The templates are maintained by hand, not generated by swag init. Keep them
// in step with the godoc annotations on the handlers in cmd/order-service and
// cmd/product-service; TestTemplatesMatchRoutes checks the route list.
package docs

import "github.com/swaggo/swag"

const orderTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/cart": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Current cart",
                "parameters": [{"type": "string", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.View"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/cart/items": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Add a product to the cart",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/cart.AddItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "line incremented", "schema": {"$ref": "#/definitions/cart.AddResult"}},
                    "201": {"description": "line created", "schema": {"$ref": "#/definitions/cart.AddResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/cart/items/{product_id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Set a cart line quantity",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "name": "product_id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/cart.SetQuantityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.Line"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            },
            "delete": {
                "tags": ["cart"],
                "summary": "Remove a cart line",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "name": "product_id", "in": "path", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/shipping-address": {
            "get": {
                "produces": ["application/json"],
                "tags": ["shipping"],
                "summary": "Stored shipping address",
                "parameters": [{"type": "string", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Address"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shipping"],
                "summary": "Create or replace the shipping address",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.Address"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Address"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            },
            "delete": {
                "tags": ["shipping"],
                "summary": "Delete the shipping address",
                "parameters": [{"type": "string", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/checkout": {
            "post": {
                "description": "Atomically creates a pending order from the current cart and empties it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order from the cart",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/order.CheckoutRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "empty cart, missing address", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "409": {"description": "insufficient stock", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Caller's orders, newest first",
                "parameters": [{"type": "string", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.ListResponse"}}}
            }
        },
        "/api/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Order detail",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/orders/{id}/status": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Set order status (managers)",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/orders/{id}/payment-session": {
            "post": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Start hosted payment for an order",
                "parameters": [
                    {"type": "string", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/payment.SessionRef"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "409": {"description": "already settled", "schema": {"$ref": "#/definitions/product.HTTPError"}},
                    "503": {"description": "gateway unavailable, retry", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/api/webhooks/stripe": {
            "post": {
                "description": "200 for processed, duplicate, ignored or conflicting events and for unknown order numbers; 400 for bad signatures.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Payment gateway webhook",
                "parameters": [{"type": "string", "name": "Stripe-Signature", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.Ack"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        }
    },
    "definitions": {
        "cart.AddItemRequest": {
            "type": "object",
            "properties": {"product_id": {"type": "string"}, "quantity": {"type": "integer", "example": 1}}
        },
        "cart.SetQuantityRequest": {
            "type": "object",
            "properties": {"quantity": {"type": "integer", "example": 2}}
        },
        "cart.Line": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "owner_id": {"type": "string"},
                "product_id": {"type": "string"},
                "quantity": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "cart.AddResult": {
            "type": "object",
            "properties": {"line": {"$ref": "#/definitions/cart.Line"}, "created": {"type": "boolean"}}
        },
        "cart.LineView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "owner_id": {"type": "string"},
                "product_id": {"type": "string"},
                "quantity": {"type": "integer"},
                "product_name": {"type": "string"},
                "unit_price": {"type": "string", "example": "19.90"},
                "line_total": {"type": "string", "example": "39.80"},
                "is_unavailable": {"type": "boolean"}
            }
        },
        "cart.View": {
            "type": "object",
            "properties": {
                "lines": {"type": "array", "items": {"$ref": "#/definitions/cart.LineView"}},
                "total": {"type": "string", "example": "39.80"}
            }
        },
        "order.Address": {
            "type": "object",
            "properties": {
                "address_line_1": {"type": "string"},
                "address_line_2": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "postal_code": {"type": "string"},
                "country": {"type": "string"}
            }
        },
        "order.CheckoutRequest": {
            "type": "object",
            "properties": {"shipping_address": {"$ref": "#/definitions/order.Address"}}
        },
        "order.UpdateStatusRequest": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "shipped"}}
        },
        "order.Item": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "order_id": {"type": "string"},
                "product_id": {"type": "string"},
                "quantity": {"type": "integer"},
                "price": {"type": "string", "example": "10.00"}
            }
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "order_number": {"type": "string", "example": "K3J9QX2MA"},
                "owner_id": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "processing", "shipped", "delivered", "cancelled"]},
                "payment_status": {"type": "string", "enum": ["pending", "paid", "failed"]},
                "shipping_address": {"$ref": "#/definitions/order.Address"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/order.Item"}},
                "total": {"type": "string", "example": "25.00"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "order.ListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}}}
        },
        "payment.SessionRef": {
            "type": "object",
            "properties": {"session_id": {"type": "string"}, "url": {"type": "string"}}
        },
        "payment.Ack": {
            "type": "object",
            "properties": {
                "event_id": {"type": "string"},
                "event_type": {"type": "string"},
                "order_number": {"type": "string"},
                "outcome": {"type": "string", "enum": ["applied", "duplicate", "conflict", "ignored", "unknown_order"]}
            }
        },
        "product.HTTPError": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "not found"}}
        }
    }
}`

const productTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "List products",
                "parameters": [
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/product.ListResponse"}}}
            }
        },
        "/products/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Search products by name or description",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/product.ListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get product",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/product.Product"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/product.HTTPError"}}
                }
            }
        }
    },
    "definitions": {
        "product.Product": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "string", "example": "19.90"},
                "stock": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "product.ListResponse": {
            "type": "object",
            "properties": {
                "q": {"type": "string"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/product.Product"}}
            }
        },
        "product.HTTPError": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "not found"}}
        }
    }
}`

// OrderSwaggerInfo describes the order service API.
var OrderSwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Order Service API",
	Description:      "Cart, checkout, orders and payment reconciliation.",
	InfoInstanceName: "order",
	SwaggerTemplate:  orderTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// ProductSwaggerInfo describes the product service API.
var ProductSwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Product Service API",
	Description:      "Catalog read API.",
	InfoInstanceName: "product",
	SwaggerTemplate:  productTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(OrderSwaggerInfo.InstanceName(), OrderSwaggerInfo)
	swag.Register(ProductSwaggerInfo.InstanceName(), ProductSwaggerInfo)
}
