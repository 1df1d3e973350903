package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/ordenes-checkout/internal/httpx"
	prod "github.com/MikeMC777/ordenes-checkout/internal/product"
)

type catalogAPI interface {
	GetProduct(ctx context.Context, id string) (*prod.Product, error)
	List(ctx context.Context, q prod.Query) ([]prod.Product, error)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// listOnlyHandler godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        limit   query     int  false  "Limit"   default(20)
// @Param        offset  query     int  false  "Offset"  default(0)
// @Success      200     {object}  product.ListResponse
// @Router       /products [get]
func listOnlyHandler(repo catalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		items, err := repo.List(c.Request.Context(), prod.Query{Limit: limit, Offset: offset})
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Limit: limit, Offset: offset, Items: items})
	}
}

// searchHandler godoc
// @Summary      Search products by name or description
// @Tags         products
// @Produce      json
// @Param        q       query     string  true   "Search term (min 2 chars)"
// @Param        limit   query     int     false  "Limit"   default(20)
// @Param        offset  query     int     false  "Offset"  default(0)
// @Success      200     {object}  product.ListResponse
// @Failure      400     {object}  product.HTTPError
// @Router       /products/search [get]
func searchHandler(repo catalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if len([]rune(q)) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q must have at least 2 characters"})
			return
		}
		limit, offset := pagination(c)
		items, err := repo.List(c.Request.Context(), prod.Query{Q: q, Limit: limit, Offset: offset})
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Q: q, Limit: limit, Offset: offset, Items: items})
	}
}

// getProductHandler godoc
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  product.Product
// @Failure      404  {object}  product.HTTPError
// @Router       /products/{id} [get]
func getProductHandler(repo catalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
