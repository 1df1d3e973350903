package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-checkout/docs"
	"github.com/MikeMC777/ordenes-checkout/internal/metrics"
	prod "github.com/MikeMC777/ordenes-checkout/internal/product"
)

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	log.SetOutput(io.Discard)
}

//
// ===== STUB REPO EN MEMORIA =====
//

type stubRepo struct {
	items     map[string]*prod.Product
	lastQuery prod.Query
}

func newStubRepo() *stubRepo {
	return &stubRepo{items: make(map[string]*prod.Product)}
}

func (s *stubRepo) add(id, name, desc, price string, stock int) {
	now := time.Now().UTC()
	s.items[id] = &prod.Product{
		ID:          id,
		Name:        name,
		Description: desc,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *stubRepo) List(_ context.Context, q prod.Query) ([]prod.Product, error) {
	s.lastQuery = q
	out := make([]prod.Product, 0, len(s.items))
	for _, v := range s.items {
		if q.Q != "" && !containsFold(v.Name, q.Q) && !containsFold(v.Description, q.Q) {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	start := q.Offset
	if start > len(out) {
		return []prod.Product{}, nil
	}
	end := start + q.Limit
	if end > len(out) || q.Limit <= 0 {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *stubRepo) GetProduct(_ context.Context, id string) (*prod.Product, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, prod.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func containsFold(s, sub string) bool {
	return bytes.Contains(bytes.ToLower([]byte(s)), bytes.ToLower([]byte(sub)))
}

func newTestRouter(repo catalogAPI) *gin.Engine {
	return newRouter(repo, metrics.New("test", prometheus.NewRegistry()))
}

//
// ===== TESTS =====
//

// /products → paginación solamente, sin búsqueda
func TestListProducts_PaginationOnly_NoSearch(t *testing.T) {
	repo := newStubRepo()
	for i := 1; i <= 3; i++ {
		repo.add(fmt.Sprintf("%d", i), fmt.Sprintf("Prod %d", i), "desc", "10.00", 5)
	}
	r := newTestRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products?limit=2&offset=1&q=zz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got prod.ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json inválido: %v", err)
	}
	if len(got.Items) != 2 || got.Limit != 2 || got.Offset != 1 {
		t.Fatalf("respuesta inesperada: %+v", got)
	}
	if repo.lastQuery.Q != "" {
		t.Fatalf("listOnlyHandler no debe aplicar búsqueda; Q=%q", repo.lastQuery.Q)
	}
}

func TestListProducts_ClampsLimit(t *testing.T) {
	repo := newStubRepo()
	r := newTestRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products?limit=1000&offset=-4", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if repo.lastQuery.Limit != 20 || repo.lastQuery.Offset != 0 {
		t.Fatalf("paginación no normalizada: %+v", repo.lastQuery)
	}
}

// /products/search → exige q (≥2); devuelve filtrado + paginado
func TestSearchProducts_RequiresQAndFilters(t *testing.T) {
	repo := newStubRepo()
	repo.add("a", "Mouse Pro", "inalámbrico", "99.90", 5)
	repo.add("b", "Teclado", "mecánico", "149.90", 3)
	r := newTestRouter(repo)

	for _, path := range []string{"/products/search?limit=10", "/products/search?q=m"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: esperaba 400, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/search?q=mo&limit=10&offset=0", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got prod.ListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Q != "mo" || len(got.Items) != 1 || got.Items[0].ID != "a" {
		t.Fatalf("resultado inesperado: q=%q items=%+v", got.Q, got.Items)
	}
}

func TestGetProduct_OK_And_NotFound(t *testing.T) {
	repo := newStubRepo()
	repo.add("x", "Headset", "", "149.90", 7)
	r := newTestRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("esperaba 404, got %d body=%s", w.Code, w.Body.String())
	}
}

// The order service reads the catalog through product.HTTPClient; both ends
// must agree on the wire format.
func TestGetProduct_HTTPClientRoundTrip(t *testing.T) {
	repo := newStubRepo()
	repo.add("x", "Headset", "over-ear", "149.90", 7)
	srv := httptest.NewServer(newTestRouter(repo))
	defer srv.Close()

	cli := prod.NewHTTPClient(srv.URL)
	p, err := cli.GetProduct(context.Background(), "x")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != "Headset" || p.Stock != 7 || !p.Price.Equal(decimal.RequireFromString("149.90")) {
		t.Fatalf("producto inesperado: %+v", p)
	}

	if _, err := cli.GetProduct(context.Background(), "nope"); err != prod.ErrNotFound {
		t.Fatalf("esperaba ErrNotFound, got %v", err)
	}
}

func TestSwaggerTemplateMatchesRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(docs.ProductSwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("swagger inválido: %v", err)
	}
	documented := 0
	for _, ops := range doc.Paths {
		documented += len(ops)
	}

	routed := 0
	for _, rt := range newTestRouter(newStubRepo()).Routes() {
		if !strings.HasPrefix(rt.Path, "/products") {
			continue
		}
		routed++
		path := strings.Replace(rt.Path, ":id", "{id}", 1)
		if _, ok := doc.Paths[path][strings.ToLower(rt.Method)]; !ok {
			t.Errorf("%s %s no está documentado", rt.Method, path)
		}
	}
	if routed != documented {
		t.Fatalf("rutas=%d documentadas=%d", routed, documented)
	}
}
