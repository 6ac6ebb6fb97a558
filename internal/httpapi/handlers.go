package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"nairapos/terminal/internal/cart"
	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/inventory"
	"nairapos/terminal/internal/notify"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, expiresAt, err := a.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.remote.ListProducts(r.Context())
	if err != nil {
		writeError(w, remoteStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) cartSummary(r *http.Request) map[string]any {
	visible, err := a.store.ShowCart(r.Context())
	if err != nil {
		visible = false
	}
	return map[string]any{
		"items":       a.engine.Lines(),
		"totalAmount": a.engine.TotalAmount(),
		"totalItems":  a.engine.TotalItems(),
		"showCart":    visible,
	}
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.cartSummary(r))
}

// handleCartItems adds a product to the cart: verify stock, deduct remotely,
// then record locally. The deduction happens here, before AddToCart, so the
// engine only ever sees already-reserved units.
func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Price     int64  `json:"price"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, errors.New("productId is required"))
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	product, err := a.remote.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, remoteStatus(err), err)
		return
	}
	if req.Quantity > product.StockLeft {
		a.hub.Notify(notify.LevelError, "Not enough stock for "+product.Name)
		writeError(w, http.StatusConflict, cart.ErrInsufficientStock)
		return
	}
	if err := a.remote.DeductStock(r.Context(), req.ProductID, req.Quantity); err != nil {
		a.hub.Notify(notify.LevelError, "Could not reserve "+product.Name)
		writeError(w, remoteStatus(err), err)
		return
	}

	price := req.Price
	if price <= 0 {
		price = product.BasePrice
	}
	a.engine.AddToCart(r.Context(), *product, price, req.Quantity)
	writeJSON(w, http.StatusOK, a.cartSummary(r))
}

func (a *API) handleCartItemActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/cart/items/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown cart item path"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.engine.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
			writeError(w, engineStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, a.cartSummary(r))
	case http.MethodDelete:
		if err := a.engine.RemoveItem(r.Context(), id); err != nil {
			writeError(w, engineStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, a.cartSummary(r))
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.engine.ClearCart(r.Context(), true); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a.cartSummary(r))
}

func (a *API) handleCartVisibility(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		visible, err := a.store.ShowCart(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"visible": visible})
	case http.MethodPut:
		var req struct {
			Visible bool `json:"visible"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.store.SetShowCart(r.Context(), req.Visible); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"visible": req.Visible})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleHeldSales holds the whole current cart (POST), lists held sales
// (GET), or discards all of them (DELETE). Holding snapshots first, then
// clears the cart with inventory restored; a resume re-reserves through the
// normal add flow.
func (a *API) handleHeldSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"heldSales": a.pending.List()})
	case http.MethodPost:
		sale, err := a.pending.HoldSale(r.Context(), a.engine.Lines(), a.engine.TotalAmount())
		if err != nil {
			writeError(w, engineStatus(err), err)
			return
		}
		if err := a.engine.ClearCart(r.Context(), true); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"heldSale": sale})
	case http.MethodDelete:
		if err := a.pending.ClearAllPendingSales(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleHeldSaleActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/carts/hold/")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/resume"):
		a.resumeHeldSale(w, r, strings.TrimSuffix(rest, "/resume"))
	case r.Method == http.MethodDelete && rest != "" && !strings.Contains(rest, "/"):
		if err := a.pending.DeletePendingSale(r.Context(), rest); err != nil {
			writeError(w, engineStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

// resumeHeldSale re-adds a held snapshot through the deduct-first flow. The
// cart must be empty. Lines whose stock can no longer be reserved are skipped
// with a warning instead of failing the whole resume.
func (a *API) resumeHeldSale(w http.ResponseWriter, r *http.Request, id string) {
	if a.engine.TotalItems() > 0 {
		writeError(w, http.StatusConflict, errors.New("cart must be empty before resuming a held sale"))
		return
	}

	items, err := a.pending.ResumeSale(r.Context(), id)
	if err != nil {
		writeError(w, engineStatus(err), err)
		return
	}

	skipped := 0
	for _, item := range items {
		product, err := a.remote.GetProduct(r.Context(), item.ID)
		if err != nil || item.Quantity > product.StockLeft {
			skipped++
			a.hub.Notify(notify.LevelWarning, item.Name+" could not be restored to the cart")
			continue
		}
		if err := a.remote.DeductStock(r.Context(), item.ID, item.Quantity); err != nil {
			skipped++
			a.hub.Notify(notify.LevelWarning, item.Name+" could not be restored to the cart")
			continue
		}
		a.engine.AddToCart(r.Context(), *product, item.Price, item.Quantity)
	}

	resp := a.cartSummary(r)
	resp["skippedItems"] = skipped
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		Customer      domain.Customer         `json:"customer"`
		Payment       domain.PaymentBreakdown `json:"paymentBreakdown"`
		PaymentMethod string                  `json:"paymentMethod"`
		PrinterID     string                  `json:"printerId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := a.engine.Checkout(r.Context(), req.Customer, req.Payment, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, remoteStatus(err), err)
		return
	}

	if req.PrinterID != "" {
		// Printing is best-effort; the sale already succeeded.
		if err := a.printers.Print(r.Context(), req.PrinterID, *tx); err != nil {
			a.log.Warn("receipt printing after checkout failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	txs, err := a.engine.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (a *API) handlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"printers": a.printers.ListPrinters()})
}

func (a *API) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		PrinterID     string `json:"printerId"`
		TransactionID string `json:"transactionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	txs, err := a.engine.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var tx *domain.Transaction
	for i := range txs {
		if txs[i].ID == req.TransactionID {
			tx = &txs[i]
			break
		}
	}
	if tx == nil {
		writeError(w, http.StatusNotFound, errors.New("transaction not found"))
		return
	}

	if err := a.printers.Print(r.Context(), req.PrinterID, *tx); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"printed": true})
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": a.hub.Recent()})
}

// engineStatus maps engine/pending errors to HTTP statuses.
func engineStatus(err error) int {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, cart.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return remoteStatus(err)
	}
}

// remoteStatus maps inventory client errors to HTTP statuses.
func remoteStatus(err error) int {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrRemoteRejected):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
