// Package eventstore persists the status message log of host sessions so a
// finished or crashed run can be inspected afterwards.
package eventstore

import (
	"context"
	"time"

	"git.home.luguber.info/inful/mapexporter/internal/notify"
)

// Record is one persisted status message.
type Record struct {
	ID        int64
	SessionID string
	Source    string
	Text      string
	Time      time.Time
}

// Store defines the interface for persisting and retrieving status messages.
type Store interface {
	// AppendMessage adds a message to the log of a session.
	AppendMessage(ctx context.Context, sessionID string, m notify.Message) error

	// BySession retrieves all messages of a session in publish order.
	BySession(ctx context.Context, sessionID string) ([]Record, error)

	// Sessions lists known session IDs, most recent first.
	Sessions(ctx context.Context) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
