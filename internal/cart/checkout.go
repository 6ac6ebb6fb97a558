package cart

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/notify"
)

// Checkout submits the current cart as a sale to the remote API. A remote
// failure is fatal: the cart is left untouched so the operator can retry. On
// success the returned Transaction is appended to the local transaction log
// and the cart is cleared without restoring inventory, since the units are
// now sold.
func (e *Engine) Checkout(ctx context.Context, customer domain.Customer, payment domain.PaymentBreakdown, paymentMethod string) (*domain.Transaction, error) {
	lines := e.Lines()
	if len(lines) == 0 {
		e.notif.Notify(notify.LevelError, "Cannot complete sale: cart is empty")
		return nil, ErrEmptyCart
	}

	tx, err := e.remote.SubmitSale(ctx, domain.SaleRequest{
		Items:         lines,
		Customer:      customer,
		Payment:       payment,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		e.notif.Notify(notify.LevelError, "Sale could not be submitted, please try again")
		return nil, fmt.Errorf("submit sale: %w", err)
	}

	e.recordTransaction(ctx, *tx)

	if err := e.ClearCart(ctx, false); err != nil {
		e.log.Warn("clearing cart after sale failed", zap.Error(err))
	}

	e.notif.Notify(notify.LevelSuccess, fmt.Sprintf("Sale %s completed", tx.ID))
	return tx, nil
}

// Transactions returns the locally mirrored transaction log.
func (e *Engine) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return e.store.LoadTransactions(ctx)
}

func (e *Engine) recordTransaction(ctx context.Context, tx domain.Transaction) {
	txs, err := e.store.LoadTransactions(ctx)
	if err != nil {
		e.log.Warn("loading transaction log failed", zap.Error(err))
	}
	txs = append(txs, tx)
	if err := e.store.SaveTransactions(ctx, txs); err != nil {
		e.log.Warn("recording transaction failed", zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}
