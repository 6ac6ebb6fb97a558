package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"nairapos/terminal/internal/cart"
	"nairapos/terminal/internal/inventory"
	"nairapos/terminal/internal/notify"
	"nairapos/terminal/internal/printing"
	"nairapos/terminal/internal/storage"
)

// API is the local HTTP surface the terminal UI talks to. Everything except
// login and the health probe sits behind the bearer-token middleware.
type API struct {
	engine   *cart.Engine
	pending  *cart.PendingManager
	printers *printing.Manager
	remote   inventory.Client
	store    storage.Store
	hub      *notify.Hub
	auth     *AuthManager

	allowedOrigin string
	log           *zap.Logger
}

func New(
	engine *cart.Engine,
	pending *cart.PendingManager,
	printers *printing.Manager,
	remote inventory.Client,
	store storage.Store,
	hub *notify.Hub,
	auth *AuthManager,
	allowedOrigin string,
	log *zap.Logger,
) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		engine:        engine,
		pending:       pending,
		printers:      printers,
		remote:        remote,
		store:         store,
		hub:           hub,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		log:           log,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/v1/cart", a.requireAuth(a.handleCart))
	mux.HandleFunc("/api/v1/cart/items", a.requireAuth(a.handleCartItems))
	mux.HandleFunc("/api/v1/cart/items/", a.requireAuth(a.handleCartItemActions))
	mux.HandleFunc("/api/v1/cart/clear", a.requireAuth(a.handleCartClear))
	mux.HandleFunc("/api/v1/cart/visibility", a.requireAuth(a.handleCartVisibility))
	mux.HandleFunc("/api/v1/carts/hold", a.requireAuth(a.handleHeldSales))
	mux.HandleFunc("/api/v1/carts/hold/", a.requireAuth(a.handleHeldSaleActions))
	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout))
	mux.HandleFunc("/api/v1/transactions", a.requireAuth(a.handleTransactions))
	mux.HandleFunc("/api/v1/printers", a.requireAuth(a.handlePrinters))
	mux.HandleFunc("/api/v1/print", a.requireAuth(a.handlePrint))
	mux.HandleFunc("/api/v1/notifications", a.requireAuth(a.handleNotifications))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.auth.Middleware(next).ServeHTTP(w, r)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(startedAt)))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx responses get a generic message so
	// internals never leak to the UI.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
