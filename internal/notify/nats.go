package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/mapexporter/internal/logfields"
)

// DefaultSubject is used when no NATS subject is configured.
const DefaultSubject = "mapexporter.messages"

// NATSForwarder republishes hub messages on a NATS subject so external tools
// can follow a session.
type NATSForwarder struct {
	conn        *nats.Conn
	subject     string
	unsubscribe func()
}

type natsPayload struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// NewNATSForwarder connects to url and starts forwarding messages from hub.
func NewNATSForwarder(hub *Hub, url, subject string) (*NATSForwarder, error) {
	if hub == nil {
		return nil, errors.New("message hub is required")
	}
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url, nats.Name("mapexporter"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	f := &NATSForwarder{conn: conn, subject: subject}
	f.unsubscribe = hub.Subscribe(f.forward)
	slog.Info("Forwarding status messages to NATS", logfields.URL(url), slog.String("subject", subject))
	return f, nil
}

func (f *NATSForwarder) forward(m Message) {
	data, err := json.Marshal(natsPayload{Source: m.Source, Text: m.Text, Time: m.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00")})
	if err != nil {
		return
	}
	if err := f.conn.Publish(f.subject, data); err != nil {
		slog.Debug("NATS publish failed", logfields.Error(err))
	}
}

// Close stops forwarding and drains the connection.
func (f *NATSForwarder) Close() error {
	if f == nil || f.conn == nil {
		return nil
	}
	f.unsubscribe()
	if err := f.conn.Drain(); err != nil {
		f.conn.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
