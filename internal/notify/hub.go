// Package notify carries human-readable status messages from the pipeline, the
// artifact server and the exporter to whoever is surfacing them to the user.
// Delivery is fire-and-forget: handlers cannot fail a publish.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/mapexporter/internal/logfields"
)

// Message sources.
const (
	SourcePipeline = "pipeline"
	SourceServer   = "server"
	SourceExporter = "exporter"
	SourceSession  = "session"
)

// Message is one status line.
type Message struct {
	Source string
	Text   string
	Time   time.Time
}

// String renders the message the way hosts display it.
func (m Message) String() string {
	return m.Text
}

// Handler receives published messages.
type Handler func(Message)

// Store persists messages. This is a subset of eventstore.Store to avoid an import cycle.
type Store interface {
	AppendMessage(ctx context.Context, sessionID string, m Message) error
}

// Hub is a synchronous pub/sub fan-out for status messages.
type Hub struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]Handler
	store       Store
	sessionID   string
	now         func() time.Time
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithStore persists every published message under sessionID.
func WithStore(store Store, sessionID string) HubOption {
	return func(h *Hub) {
		h.store = store
		h.sessionID = sessionID
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{subscribers: map[int]Handler{}, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a handler and returns a function that removes it.
func (h *Hub) Subscribe(fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers a message to every subscriber. Safe on a nil Hub.
func (h *Hub) Publish(source, text string) {
	if h == nil {
		return
	}
	m := Message{Source: source, Text: text, Time: h.now()}

	h.mu.RLock()
	store, sessionID := h.store, h.sessionID
	h.mu.RUnlock()
	if store != nil {
		if err := store.AppendMessage(context.Background(), sessionID, m); err != nil {
			slog.Warn("Failed to persist status message", logfields.Source(source), logfields.Error(err))
		}
	}

	h.mu.RLock()
	hs := make([]Handler, 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		hs = append(hs, fn)
	}
	h.mu.RUnlock()

	for _, fn := range hs {
		deliver(fn, m)
	}
}

// DetachStore stops persisting messages. Later publishes reach subscribers only.
func (h *Hub) DetachStore() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store = nil
}

// Publishf formats and publishes a message.
func (h *Hub) Publishf(source, format string, args ...any) {
	h.Publish(source, fmt.Sprintf(format, args...))
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func deliver(fn Handler, m Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Status message handler panic", logfields.Source(m.Source), slog.Any("panic", r))
		}
	}()
	fn(m)
}
