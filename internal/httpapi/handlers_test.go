package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nairapos/terminal/internal/cart"
	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/inventory"
	"nairapos/terminal/internal/notify"
	"nairapos/terminal/internal/printing"
	"nairapos/terminal/internal/storage/memory"
)

type fakeRemote struct {
	mu       sync.Mutex
	products map[string]domain.Product
	deducts  int
	restores int
}

func (f *fakeRemote) ListProducts(_ context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRemote) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	return &p, nil
}

func (f *fakeRemote) DeductStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deducts++
	p := f.products[id]
	p.StockLeft -= quantity
	f.products[id] = p
	return nil
}

func (f *fakeRemote) RestoreStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	p := f.products[id]
	p.StockLeft += quantity
	f.products[id] = p
	return nil
}

func (f *fakeRemote) SubmitSale(_ context.Context, req domain.SaleRequest) (*domain.Transaction, error) {
	return &domain.Transaction{
		ID:        "tx-100",
		Items:     req.Items,
		Customer:  req.Customer,
		Payment:   req.Payment,
		Status:    domain.TxStatusSuccessful,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeRemote) ListSales(_ context.Context) ([]domain.Transaction, error) { return nil, nil }

type apiFixture struct {
	api    *API
	remote *fakeRemote
	token  string
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()

	remote := &fakeRemote{products: map[string]domain.Product{
		"prod-1": {ID: "prod-1", Name: "Galaxy A16", BasePrice: 185000, StockLeft: 10},
		"prod-2": {ID: "prod-2", Name: "USB Cable", BasePrice: 2500, StockLeft: 50},
	}}
	store := memory.New()
	hub := notify.NewHub(nil, 0)
	engine := cart.NewEngine(remote, store, hub, nil)
	pending := cart.NewPendingManager(store, hub, nil)
	printers := printing.NewManager(hub, nil)
	auth := NewAuthManager("test-secret", time.Hour)
	if err := auth.SeedUser("cashier", "pass123"); err != nil {
		t.Fatalf("SeedUser: %v", err)
	}

	token, _, err := auth.Authenticate("cashier", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	api := New(engine, pending, printers, remote, store, hub, auth, "http://localhost:5173", nil)
	return &apiFixture{api: api, remote: remote, token: token}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthNeedsNoAuth(t *testing.T) {
	fixture := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	fixture.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	fixture := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	fixture.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	fixture := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewBufferString(`{"username":"cashier","password":"pass123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fixture.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("expected token in response: %+v", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewBufferString(`{"username":"cashier","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	fixture.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rec.Code)
	}
}

func TestAddCartItemDeductsBeforeRecording(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-1", "price": 180000, "quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fixture.remote.deducts != 1 {
		t.Fatalf("expected one deduction, got %d", fixture.remote.deducts)
	}

	body := decodeBody(t, rec)
	if body["totalItems"] != float64(2) {
		t.Fatalf("expected 2 items in cart, got %v", body["totalItems"])
	}
	if body["totalAmount"] != float64(360000) {
		t.Fatalf("expected total 360000, got %v", body["totalAmount"])
	}

	product, _ := fixture.remote.GetProduct(context.Background(), "prod-1")
	if product.StockLeft != 8 {
		t.Fatalf("expected remote stock reduced to 8, got %d", product.StockLeft)
	}
}

func TestAddCartItemRejectsInsufficientStock(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-1", "quantity": 11})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if fixture.remote.deducts != 0 {
		t.Fatalf("rejected add must not deduct, got %d", fixture.remote.deducts)
	}
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-99", "quantity": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	fixture := newFixture(t)
	fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-1", "quantity": 2})

	rec := fixture.do(t, http.MethodPut, "/api/v1/cart/items/prod-1", map[string]any{"quantity": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["totalItems"] != float64(5) {
		t.Fatalf("expected 5 items, got %v", body["totalItems"])
	}

	rec = fixture.do(t, http.MethodDelete, "/api/v1/cart/items/prod-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["totalItems"] != float64(0) {
		t.Fatalf("expected empty cart, got %v", body["totalItems"])
	}

	rec = fixture.do(t, http.MethodDelete, "/api/v1/cart/items/prod-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing item, got %d", rec.Code)
	}
}

func TestCartVisibilityRoundTrip(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodGet, "/api/v1/cart/visibility", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["visible"] != false {
		t.Fatalf("visibility must default to false")
	}

	rec = fixture.do(t, http.MethodPut, "/api/v1/cart/visibility", map[string]any{"visible": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = fixture.do(t, http.MethodGet, "/api/v1/cart/visibility", nil)
	if decodeBody(t, rec)["visible"] != true {
		t.Fatalf("expected visibility true after set")
	}
}

func TestHoldAndResumeFlow(t *testing.T) {
	fixture := newFixture(t)
	fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-1", "quantity": 2})

	rec := fixture.do(t, http.MethodPost, "/api/v1/carts/hold", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	held := decodeBody(t, rec)["heldSale"].(map[string]any)
	holdID := held["id"].(string)
	if holdID == "" {
		t.Fatalf("expected held sale id")
	}

	// Holding restores the reservation.
	if fixture.remote.restores != 1 {
		t.Fatalf("expected one restore on hold, got %d", fixture.remote.restores)
	}
	rec = fixture.do(t, http.MethodGet, "/api/v1/cart", nil)
	if decodeBody(t, rec)["totalItems"] != float64(0) {
		t.Fatalf("cart must be empty after hold")
	}

	// Resuming re-reserves through the normal flow.
	rec = fixture.do(t, http.MethodPost, "/api/v1/carts/hold/"+holdID+"/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["totalItems"] != float64(2) {
		t.Fatalf("expected 2 items after resume, got %v", body["totalItems"])
	}
	if fixture.remote.deducts != 2 {
		t.Fatalf("expected a second deduction on resume, got %d", fixture.remote.deducts)
	}

	rec = fixture.do(t, http.MethodPost, "/api/v1/carts/hold/"+holdID+"/resume", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("resume with a non-empty cart must 409, got %d", rec.Code)
	}
}

func TestResumeUnknownHeldSale(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodPost, "/api/v1/carts/hold/hold-ghost/resume", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteHeldSale(t *testing.T) {
	fixture := newFixture(t)
	fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-2", "quantity": 1})
	rec := fixture.do(t, http.MethodPost, "/api/v1/carts/hold", nil)
	holdID := decodeBody(t, rec)["heldSale"].(map[string]any)["id"].(string)

	rec = fixture.do(t, http.MethodDelete, "/api/v1/carts/hold/"+holdID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = fixture.do(t, http.MethodGet, "/api/v1/carts/hold", nil)
	if sales := decodeBody(t, rec)["heldSales"].([]any); len(sales) != 0 {
		t.Fatalf("expected no held sales, got %+v", sales)
	}
}

func TestCheckoutEndpoint(t *testing.T) {
	fixture := newFixture(t)
	fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-1", "quantity": 2})

	rec := fixture.do(t, http.MethodPost, "/api/v1/checkout", map[string]any{
		"customer":         map[string]any{"name": "Ada"},
		"paymentBreakdown": map[string]any{"pos": 370000},
		"paymentMethod":    "pos",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	tx := decodeBody(t, rec)["transaction"].(map[string]any)
	if tx["id"] != "tx-100" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	rec = fixture.do(t, http.MethodGet, "/api/v1/cart", nil)
	if decodeBody(t, rec)["totalItems"] != float64(0) {
		t.Fatalf("cart must be empty after checkout")
	}
	if fixture.remote.restores != 0 {
		t.Fatalf("checkout must not restore inventory, got %d", fixture.remote.restores)
	}

	rec = fixture.do(t, http.MethodGet, "/api/v1/transactions", nil)
	if txs := decodeBody(t, rec)["transactions"].([]any); len(txs) != 1 {
		t.Fatalf("expected one recorded transaction, got %+v", txs)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodPost, "/api/v1/checkout", map[string]any{
		"customer": map[string]any{"name": "Ada"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for empty cart, got %d", rec.Code)
	}
}

func TestPrintUnknownTransaction(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodPost, "/api/v1/print",
		map[string]any{"printerId": "browser", "transactionId": "tx-ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPrintersEndpointAlwaysOffersBrowser(t *testing.T) {
	fixture := newFixture(t)

	rec := fixture.do(t, http.MethodGet, "/api/v1/printers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	printers := decodeBody(t, rec)["printers"].([]any)
	if len(printers) == 0 {
		t.Fatalf("expected at least the browser printer")
	}
	last := printers[len(printers)-1].(map[string]any)
	if last["id"] != "browser" {
		t.Fatalf("expected browser printer last, got %+v", last)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	fixture := newFixture(t)
	fixture.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"productId": "prod-1", "quantity": 1})

	rec := fixture.do(t, http.MethodGet, "/api/v1/notifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	notes := decodeBody(t, rec)["notifications"].([]any)
	if len(notes) == 0 {
		t.Fatalf("expected the add-to-cart notification")
	}
}

func TestCORSPreflight(t *testing.T) {
	fixture := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	fixture.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
}
