package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/storage"
)

// Store mirrors terminal state into redis under the fixed namespace. Every
// write publishes the changed key on the namespace event channel, which is
// how a second register UI on the same till observes external changes.
type Store struct {
	client *redis.Client
	log    *zap.Logger
}

func New(addr string, password string, db int, log *zap.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, log: log}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func key(name string) string {
	return storage.Namespace + ":" + name
}

func eventChannel() string {
	return storage.Namespace + ":events"
}

func (s *Store) load(ctx context.Context, name string, out any) error {
	val, err := s.client.Get(ctx, key(name)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	// JSON round-trips time.Time through RFC 3339 strings, which is the
	// rehydration rule for every persisted date.
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.client.Set(ctx, key(name), payload, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	s.announce(ctx, name)
	return nil
}

func (s *Store) clear(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, key(name)).Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	s.announce(ctx, name)
	return nil
}

func (s *Store) announce(ctx context.Context, name string) {
	if err := s.client.Publish(ctx, eventChannel(), name).Err(); err != nil {
		s.log.Warn("change announcement failed", zap.String("key", name), zap.Error(err))
	}
}

func (s *Store) LoadCart(ctx context.Context) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := s.load(ctx, storage.KeyCart, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) SaveCart(ctx context.Context, lines []domain.CartLine) error {
	return s.save(ctx, storage.KeyCart, lines)
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.clear(ctx, storage.KeyCart)
}

func (s *Store) LoadPendingSales(ctx context.Context) ([]domain.PendingSale, error) {
	var sales []domain.PendingSale
	if err := s.load(ctx, storage.KeyPendingSales, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) SavePendingSales(ctx context.Context, sales []domain.PendingSale) error {
	return s.save(ctx, storage.KeyPendingSales, sales)
}

func (s *Store) ClearPendingSales(ctx context.Context) error {
	return s.clear(ctx, storage.KeyPendingSales)
}

func (s *Store) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := s.load(ctx, storage.KeyTransactions, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) SaveTransactions(ctx context.Context, txs []domain.Transaction) error {
	return s.save(ctx, storage.KeyTransactions, txs)
}

func (s *Store) ShowCart(ctx context.Context) (bool, error) {
	var show bool
	if err := s.load(ctx, storage.KeyShowCart, &show); err != nil {
		return false, err
	}
	return show, nil
}

func (s *Store) SetShowCart(ctx context.Context, show bool) error {
	return s.save(ctx, storage.KeyShowCart, show)
}

func (s *Store) Watch(ctx context.Context) (<-chan storage.Event, error) {
	sub := s.client.Subscribe(ctx, eventChannel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	events := make(chan storage.Event, 16)
	go func() {
		defer close(events)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case events <- storage.Event{Key: msg.Payload, At: time.Now().UTC()}:
				default:
				}
			}
		}
	}()
	return events, nil
}
