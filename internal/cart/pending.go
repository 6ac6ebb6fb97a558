package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/notify"
	"nairapos/terminal/internal/storage"
	"nairapos/terminal/internal/xid"
)

// PendingManager parks cart snapshots for later resumption. It never touches
// inventory and never reaches into the cart: holding is pure bookkeeping, and
// the caller re-populates the cart from the items a resume hands back.
type PendingManager struct {
	mu    sync.Mutex
	sales []domain.PendingSale

	store storage.Store
	notif notify.Notifier
	log   *zap.Logger
}

func NewPendingManager(store storage.Store, notif notify.Notifier, log *zap.Logger) *PendingManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &PendingManager{
		store: store,
		notif: notif,
		log:   log,
	}
}

// Load hydrates held sales persisted by a previous session.
func (m *PendingManager) Load(ctx context.Context) error {
	sales, err := m.store.LoadPendingSales(ctx)
	if err != nil {
		return fmt.Errorf("load pending sales: %w", err)
	}

	m.mu.Lock()
	m.sales = sales
	m.mu.Unlock()
	return nil
}

// HoldSale snapshots the given items under a fresh time-based id. The items
// are deep-copied: mutating the original cart afterwards cannot corrupt the
// held snapshot. An empty item list is rejected with no state change.
func (m *PendingManager) HoldSale(ctx context.Context, items []domain.CartLine, total int64) (*domain.PendingSale, error) {
	if len(items) == 0 {
		m.notif.Notify(notify.LevelError, "Cannot hold an empty cart")
		return nil, ErrEmptyCart
	}

	sale := domain.PendingSale{
		ID:        xid.New("hold"),
		Items:     domain.CopyLines(items),
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.sales = append(m.sales, sale)
	m.mu.Unlock()

	m.persist(ctx)
	m.notif.Notify(notify.LevelSuccess, fmt.Sprintf("Sale held with %d item(s)", len(sale.Items)))
	return &sale, nil
}

// ResumeSale removes the held sale and returns its item snapshot for the
// caller to re-add to an empty cart. Unknown ids surface an error
// notification and change nothing.
func (m *PendingManager) ResumeSale(ctx context.Context, id string) ([]domain.CartLine, error) {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		m.notif.Notify(notify.LevelError, "Held sale not found")
		return nil, ErrNotFound
	}
	items := m.sales[idx].Items
	m.sales = append(m.sales[:idx], m.sales[idx+1:]...)
	m.mu.Unlock()

	m.persist(ctx)
	m.notif.Notify(notify.LevelSuccess, "Held sale resumed")
	return domain.CopyLines(items), nil
}

// DeletePendingSale discards a held sale without resuming it.
func (m *PendingManager) DeletePendingSale(ctx context.Context, id string) error {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		m.notif.Notify(notify.LevelError, "Held sale not found")
		return ErrNotFound
	}
	m.sales = append(m.sales[:idx], m.sales[idx+1:]...)
	m.mu.Unlock()

	m.persist(ctx)
	m.notif.Notify(notify.LevelSuccess, "Held sale deleted")
	return nil
}

// ClearAllPendingSales discards every held sale and clears persisted storage.
func (m *PendingManager) ClearAllPendingSales(ctx context.Context) error {
	m.mu.Lock()
	m.sales = nil
	m.mu.Unlock()

	if err := m.store.ClearPendingSales(ctx); err != nil {
		m.log.Warn("clearing persisted pending sales failed", zap.Error(err))
	}
	m.notif.Notify(notify.LevelSuccess, "All held sales cleared")
	return nil
}

// List returns the held sales, items deep-copied.
func (m *PendingManager) List() []domain.PendingSale {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PendingSale, len(m.sales))
	for i, sale := range m.sales {
		sale.Items = domain.CopyLines(sale.Items)
		out[i] = sale
	}
	return out
}

func (m *PendingManager) indexOf(id string) int {
	for i := range m.sales {
		if m.sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *PendingManager) persist(ctx context.Context) {
	m.mu.Lock()
	snapshot := make([]domain.PendingSale, len(m.sales))
	copy(snapshot, m.sales)
	m.mu.Unlock()

	if err := m.store.SavePendingSales(ctx, snapshot); err != nil {
		m.log.Warn("persisting pending sales failed", zap.Error(err))
	}
}
