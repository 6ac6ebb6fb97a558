package memory

import (
	"context"
	"sync"
	"time"

	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/storage"
)

// Store is a process-local storage.Store used in dev mode and tests.
type Store struct {
	mu           sync.RWMutex
	cart         []domain.CartLine
	pendingSales []domain.PendingSale
	transactions []domain.Transaction
	showCart     bool

	watchers map[int]chan storage.Event
	nextID   int
}

func New() *Store {
	return &Store{
		watchers: make(map[int]chan storage.Event),
	}
}

func (s *Store) LoadCart(_ context.Context) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CopyLines(s.cart), nil
}

func (s *Store) SaveCart(_ context.Context, lines []domain.CartLine) error {
	s.mu.Lock()
	s.cart = domain.CopyLines(lines)
	s.mu.Unlock()
	s.publish(storage.KeyCart)
	return nil
}

func (s *Store) ClearCart(_ context.Context) error {
	s.mu.Lock()
	s.cart = nil
	s.mu.Unlock()
	s.publish(storage.KeyCart)
	return nil
}

func (s *Store) LoadPendingSales(_ context.Context) ([]domain.PendingSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.PendingSale, len(s.pendingSales))
	for i, sale := range s.pendingSales {
		sale.Items = domain.CopyLines(sale.Items)
		sales[i] = sale
	}
	return sales, nil
}

func (s *Store) SavePendingSales(_ context.Context, sales []domain.PendingSale) error {
	s.mu.Lock()
	s.pendingSales = make([]domain.PendingSale, len(sales))
	for i, sale := range sales {
		sale.Items = domain.CopyLines(sale.Items)
		s.pendingSales[i] = sale
	}
	s.mu.Unlock()
	s.publish(storage.KeyPendingSales)
	return nil
}

func (s *Store) ClearPendingSales(_ context.Context) error {
	s.mu.Lock()
	s.pendingSales = nil
	s.mu.Unlock()
	s.publish(storage.KeyPendingSales)
	return nil
}

func (s *Store) LoadTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, len(s.transactions))
	for i, tx := range s.transactions {
		tx.Items = domain.CopyLines(tx.Items)
		txs[i] = tx
	}
	return txs, nil
}

func (s *Store) SaveTransactions(_ context.Context, txs []domain.Transaction) error {
	s.mu.Lock()
	s.transactions = make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		tx.Items = domain.CopyLines(tx.Items)
		s.transactions[i] = tx
	}
	s.mu.Unlock()
	s.publish(storage.KeyTransactions)
	return nil
}

func (s *Store) ShowCart(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showCart, nil
}

func (s *Store) SetShowCart(_ context.Context, show bool) error {
	s.mu.Lock()
	s.showCart = show
	s.mu.Unlock()
	s.publish(storage.KeyShowCart)
	return nil
}

func (s *Store) Watch(ctx context.Context) (<-chan storage.Event, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan storage.Event, 16)
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}()

	return ch, nil
}

func (s *Store) publish(key string) {
	event := storage.Event{Key: key, At: time.Now().UTC()}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		select {
		case w <- event:
		default:
		}
	}
}
