package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"nairapos/terminal/internal/xid"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// DefaultTimeout is the auto-dismiss hint attached to every notification.
const DefaultTimeout = 5 * time.Second

const recentLimit = 50

// Notification is a short-lived, dismissible operator message. It is the sole
// mechanism for surfacing success confirmations and non-fatal failures.
// TimeoutMS is the auto-dismiss hint in milliseconds, ready for a UI timer.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	TimeoutMS int64     `json:"timeoutMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier is the fire-and-forget channel business logic publishes to.
type Notifier interface {
	Notify(level Level, message string)
}

// Hub fans notifications out to subscribers and keeps a ring of recent
// messages for late-joining UI clients. It is an injected service so the
// engine stays testable without a real UI attached.
type Hub struct {
	mu      sync.Mutex
	log     *zap.Logger
	timeout time.Duration
	recent  []Notification
	subs    map[int]chan Notification
	nextSub int
}

func NewHub(log *zap.Logger, timeout time.Duration) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Hub{
		log:     log,
		timeout: timeout,
		recent:  make([]Notification, 0, recentLimit),
		subs:    make(map[int]chan Notification),
	}
}

func (h *Hub) Notify(level Level, message string) {
	n := Notification{
		ID:        xid.New("note"),
		Level:     level,
		Message:   message,
		TimeoutMS: h.timeout.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}

	switch level {
	case LevelError:
		h.log.Error(message)
	case LevelWarning:
		h.log.Warn(message)
	default:
		h.log.Info(message)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, n)
	if len(h.recent) > recentLimit {
		h.recent = h.recent[len(h.recent)-recentLimit:]
	}

	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			// Slow subscriber; dropping beats blocking the register flow.
		}
	}
}

// Recent returns the retained notifications, oldest first.
func (h *Hub) Recent() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Notification, len(h.recent))
	copy(out, h.recent)
	return out
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the channel.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan Notification, 16)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
