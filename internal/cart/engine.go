package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/inventory"
	"nairapos/terminal/internal/notify"
	"nairapos/terminal/internal/storage"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Engine owns the in-memory cart and keeps it reservation-consistent with the
// remote inventory. Every unit in the cart was eagerly deducted remotely when
// it entered; every unit that leaves without being sold must be restored.
//
// Failure policy per remote operation:
//   - deduct: fatal. Local state does not change if the remote call fails.
//   - restore: best-effort. Local state changes regardless, a warning is
//     surfaced, and the resulting inventory drift is an accepted risk.
type Engine struct {
	mu    sync.Mutex
	lines []domain.CartLine

	remote inventory.Client
	store  storage.Store
	notif  notify.Notifier
	log    *zap.Logger
}

func NewEngine(remote inventory.Client, store storage.Store, notif notify.Notifier, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		remote: remote,
		store:  store,
		notif:  notif,
		log:    log,
	}
}

// Load hydrates the cart persisted by a previous session.
func (e *Engine) Load(ctx context.Context) error {
	lines, err := e.store.LoadCart(ctx)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	e.mu.Lock()
	e.lines = lines
	e.mu.Unlock()
	return nil
}

// AddToCart records quantity units of product at the given unit price. The
// caller must have already deducted the quantity from remote inventory; this
// only mutates local state. Re-adding merges quantity and overwrites the line
// price with the newly supplied one (last write wins), refreshing descriptive
// fields from the product. Always returns true; insufficient stock must be
// rejected upstream, before the deduction.
func (e *Engine) AddToCart(ctx context.Context, product domain.Product, price int64, quantity int) bool {
	if quantity < 1 {
		quantity = 1
	}

	e.mu.Lock()
	idx := e.indexOf(product.ID)
	if idx >= 0 {
		merged := e.lines[idx].Quantity + quantity
		e.lines[idx] = domain.NewCartLine(product, price, merged)
	} else {
		e.lines = append(e.lines, domain.NewCartLine(product, price, quantity))
	}
	e.mu.Unlock()

	e.persist(ctx)
	e.notif.Notify(notify.LevelSuccess, fmt.Sprintf("%s added to cart", product.Name))
	return true
}

// UpdateQuantity sets the line quantity, reconciling the difference with
// remote inventory. A non-positive quantity is equivalent to removal.
func (e *Engine) UpdateQuantity(ctx context.Context, id string, newQuantity int) error {
	if newQuantity <= 0 {
		return e.RemoveItem(ctx, id)
	}

	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		e.notif.Notify(notify.LevelError, "Item is not in the cart")
		return ErrNotFound
	}
	current := e.lines[idx].Quantity
	name := e.lines[idx].Name
	e.mu.Unlock()

	delta := newQuantity - current
	if delta == 0 {
		return nil
	}

	if delta > 0 {
		product, err := e.remote.GetProduct(ctx, id)
		if err != nil {
			e.notif.Notify(notify.LevelError, fmt.Sprintf("Could not verify stock for %s", name))
			return err
		}
		// The line's own units were already deducted remotely, so the true
		// ceiling is what remains remotely plus what this line holds.
		if newQuantity > product.StockLeft+current {
			e.notif.Notify(notify.LevelError, fmt.Sprintf("Only %d units of %s available", product.StockLeft+current, name))
			return ErrInsufficientStock
		}
		if err := e.remote.DeductStock(ctx, id, delta); err != nil {
			e.notif.Notify(notify.LevelError, fmt.Sprintf("Could not reserve more units of %s", name))
			return err
		}
		e.setQuantity(id, newQuantity)
		e.persist(ctx)
		e.notif.Notify(notify.LevelSuccess, "Quantity updated")
		return nil
	}

	// Decrease: local state wins even if the remote restore fails. Leaving
	// the operator stuck with stale cart state is worse than transient
	// inventory drift.
	if err := e.remote.RestoreStock(ctx, id, -delta); err != nil {
		e.log.Warn("inventory restore failed on quantity decrease",
			zap.String("product_id", id), zap.Int("units", -delta), zap.Error(err))
		e.notif.Notify(notify.LevelWarning, fmt.Sprintf("Quantity updated, but %d units of %s were not returned to inventory", -delta, name))
	} else {
		e.notif.Notify(notify.LevelSuccess, "Quantity updated")
	}
	e.setQuantity(id, newQuantity)
	e.persist(ctx)
	return nil
}

// RemoveItem restores the full line quantity to remote inventory
// (best-effort) and removes the line. Removal always succeeds locally; a
// failed restore only degrades to a warning.
func (e *Engine) RemoveItem(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		e.notif.Notify(notify.LevelError, "Item is not in the cart")
		return ErrNotFound
	}
	line := e.lines[idx]
	e.mu.Unlock()

	if err := e.remote.RestoreStock(ctx, id, line.Quantity); err != nil {
		e.log.Warn("inventory restore failed on removal",
			zap.String("product_id", id), zap.Int("units", line.Quantity), zap.Error(err))
		e.notif.Notify(notify.LevelWarning, fmt.Sprintf("%s removed, but %d units were not returned to inventory", line.Name, line.Quantity))
	} else {
		e.notif.Notify(notify.LevelSuccess, fmt.Sprintf("%s removed from cart", line.Name))
	}

	e.mu.Lock()
	if idx = e.indexOf(id); idx >= 0 {
		e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	}
	e.mu.Unlock()

	e.persist(ctx)
	return nil
}

// ClearCart empties the cart. With restoreInventory set (hold and cancel
// paths) every line is restored best-effort: one failed line never prevents
// attempting the rest. With it unset (sale completed) the units are sold and
// no restoration happens. Persisted cart storage is cleared as the final step
// regardless of restoration outcome.
func (e *Engine) ClearCart(ctx context.Context, restoreInventory bool) error {
	e.mu.Lock()
	snapshot := e.lines
	e.lines = nil
	e.mu.Unlock()

	if restoreInventory {
		failed := 0
		for _, line := range snapshot {
			if err := e.remote.RestoreStock(ctx, line.ID, line.Quantity); err != nil {
				failed++
				e.log.Warn("inventory restore failed on clear",
					zap.String("product_id", line.ID), zap.Int("units", line.Quantity), zap.Error(err))
			}
		}
		if failed > 0 {
			e.notif.Notify(notify.LevelWarning, fmt.Sprintf("Cart cleared, but %d item(s) were not returned to inventory", failed))
		}
	}

	if err := e.store.ClearCart(ctx); err != nil {
		e.log.Warn("clearing persisted cart failed", zap.Error(err))
	}
	return nil
}

// Lines returns a copy of the current cart lines.
func (e *Engine) Lines() []domain.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CopyLines(e.lines)
}

// TotalAmount is the derived sum of price times quantity over current lines.
func (e *Engine) TotalAmount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var total int64
	for _, line := range e.lines {
		total += line.Price * int64(line.Quantity)
	}
	return total
}

// TotalItems is the derived sum of quantities over current lines.
func (e *Engine) TotalItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, line := range e.lines {
		count += line.Quantity
	}
	return count
}

func (e *Engine) indexOf(id string) int {
	for i := range e.lines {
		if e.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) setQuantity(id string, quantity int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexOf(id); idx >= 0 {
		e.lines[idx].Quantity = quantity
	}
}

// persist mirrors the cart into local storage. The mirror is a side channel;
// failures are logged, never surfaced as operation errors.
func (e *Engine) persist(ctx context.Context) {
	if err := e.store.SaveCart(ctx, e.Lines()); err != nil {
		e.log.Warn("persisting cart failed", zap.Error(err))
	}
}
