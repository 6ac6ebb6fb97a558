package storage

import (
	"context"
	"errors"
	"time"

	"nairapos/terminal/internal/domain"
)

// Namespace is the fixed key prefix all persisted terminal state lives under.
const Namespace = "nairapos"

// Well-known keys within the namespace. Dates inside the stored payloads are
// serialized as ISO (RFC 3339) strings and rehydrated to time.Time on load.
const (
	KeyCart         = "cart"
	KeyPendingSales = "pending-sales"
	KeyTransactions = "transactions"
	KeyShowCart     = "show-cart"
)

var ErrUnavailable = errors.New("storage unavailable")

// Event announces that a key under the namespace changed. Listeners may react
// to external changes; no merge or conflict resolution is defined.
type Event struct {
	Key string
	At  time.Time
}

// Store mirrors terminal state into a local key-value backend. Writes are a
// side channel: the in-memory collections remain the source of truth and a
// failed write never blocks a register operation.
type Store interface {
	LoadCart(ctx context.Context) ([]domain.CartLine, error)
	SaveCart(ctx context.Context, lines []domain.CartLine) error
	ClearCart(ctx context.Context) error

	LoadPendingSales(ctx context.Context) ([]domain.PendingSale, error)
	SavePendingSales(ctx context.Context, sales []domain.PendingSale) error
	ClearPendingSales(ctx context.Context) error

	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
	SaveTransactions(ctx context.Context, txs []domain.Transaction) error

	ShowCart(ctx context.Context) (bool, error)
	SetShowCart(ctx context.Context, show bool) error

	// Watch delivers change events for any key under the namespace until ctx
	// is done.
	Watch(ctx context.Context) (<-chan Event, error)
}
