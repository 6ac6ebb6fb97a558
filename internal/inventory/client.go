package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nairapos/terminal/internal/domain"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrRemoteUnavailable = errors.New("inventory service unavailable")
	ErrRemoteRejected    = errors.New("inventory service rejected request")
)

// Client exposes the remote inventory/sales API operations the terminal uses.
type Client interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	DeductStock(ctx context.Context, productID string, quantity int) error
	RestoreStock(ctx context.Context, productID string, quantity int) error
	SubmitSale(ctx context.Context, req domain.SaleRequest) (*domain.Transaction, error)
	ListSales(ctx context.Context) ([]domain.Transaction, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds the remote API client. The API key rides on every request
// as a header; the key itself is opaque to the terminal.
func NewClient(baseURL string, apiKey string) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("X-API-Key", apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient}
}

type productsEnvelope struct {
	Success bool             `json:"success"`
	Data    []domain.Product `json:"data"`
	Error   string           `json:"error,omitempty"`
}

type mutationEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type saleEnvelope struct {
	Success bool                `json:"success"`
	Data    *domain.Transaction `json:"data"`
	Error   string              `json:"error,omitempty"`
}

type salesEnvelope struct {
	Success bool                 `json:"success"`
	Data    []domain.Transaction `json:"data"`
	Error   string               `json:"error,omitempty"`
}

func (c *APIClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	result := new(productsEnvelope)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		Get("/api/admin/products")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest || !result.Success {
		return nil, rejected(resp.StatusCode(), result.Error)
	}
	return result.Data, nil
}

// GetProduct resolves one product by id. The remote API only exposes a list
// endpoint, so this fetches the catalog and picks the match.
func (c *APIClient) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, ErrNotFound
}

// DeductStock reserves quantity units of a product on the remote side.
// Callers treat a failure here as fatal to the operation in flight.
func (c *APIClient) DeductStock(ctx context.Context, productID string, quantity int) error {
	result := new(mutationEnvelope)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"productId": productID,
			"action":    "deduct",
			"quantity":  quantity,
		}).
		SetResult(result).
		SetError(result).
		Put("/api/admin/inventory")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest || !result.Success {
		return rejected(resp.StatusCode(), result.Error)
	}
	return nil
}

// RestoreStock returns quantity units of a product to the remote count. The
// wire format is a signed adjustment: negative means restore.
func (c *APIClient) RestoreStock(ctx context.Context, productID string, quantity int) error {
	result := new(mutationEnvelope)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"quantity": -quantity}).
		SetResult(result).
		SetError(result).
		Put(fmt.Sprintf("/api/admin/inventory/%s", productID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest || !result.Success {
		return rejected(resp.StatusCode(), result.Error)
	}
	return nil
}

func (c *APIClient) SubmitSale(ctx context.Context, req domain.SaleRequest) (*domain.Transaction, error) {
	result := new(saleEnvelope)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		SetError(result).
		Post("/api/sales")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest || !result.Success || result.Data == nil {
		return nil, rejected(resp.StatusCode(), result.Error)
	}
	return result.Data, nil
}

func (c *APIClient) ListSales(ctx context.Context) ([]domain.Transaction, error) {
	result := new(salesEnvelope)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		Get("/api/sales")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest || !result.Success {
		return nil, rejected(resp.StatusCode(), result.Error)
	}
	return result.Data, nil
}

func rejected(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: code=%d, message=%s", ErrRemoteRejected, status, message)
}
