// Package eventbus publishes service outcome events over NATS core
// subjects so external consumers (dashboards, alerting) can observe
// run and assistant activity without polling the API.
package eventbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types emitted by the service.
const (
	TypeRunCompleted = "run.completed"
	TypeRunFailed    = "run.failed"
	TypeAICompleted  = "ai.completed"
	TypeAIFailed     = "ai.failed"
)

// Event is the uniform envelope published for every recorded outcome.
type Event struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventID generates a compact unique event id with a date prefix.
func NewEventID(t time.Time) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "evt_" + t.UTC().Format("20060102") + "_" + hex.EncodeToString(b)
}

func (e *Event) validate() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}

type Config struct {
	URL     string
	Subject string
}

// NATSBus is a lightweight publisher over a single NATS subject.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

func NewNATSBus(cfg Config) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("codecraft-eventbus"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "codecraft.events"
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

func (b *NATSBus) Publish(ctx context.Context, evt Event) error {
	if evt.EventID == "" {
		evt.EventID = NewEventID(time.Now())
	}
	if evt.Source == "" {
		evt.Source = "codecraft-api"
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if !evt.validate() {
		return fmt.Errorf("invalid event: missing required fields")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

func (b *NATSBus) Close() {
	if b.nc != nil {
		b.nc.Drain()
	}
}
