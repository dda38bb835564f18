// Package natsevents publishes dispatch outcome events to NATS subjects so
// other services can observe call traffic without sitting in the request
// path.
package natsevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jsonrpcd/jsonrpcd-go/events"
)

// DispatchEvent is the JSON payload published for one completed dispatch.
type DispatchEvent struct {
	Method     string `json:"method,omitempty"`
	Outcome    string `json:"outcome"`
	Code       int    `json:"code,omitempty"`
	RequestID  any    `json:"requestId,omitempty"`
	DurationMS int64  `json:"durationMs"`
	Timestamp  string `json:"timestamp"`
}

// Publisher is an events.Sink that publishes every event to the granular
// per-method subject and to the global subject.
type Publisher struct {
	nc            *nats.Conn
	log           *slog.Logger
	globalSubject string
}

var _ events.Sink = (*Publisher)(nil)

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the logger for publish diagnostics.
func WithLogger(log *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if log != nil {
			p.log = log
		}
	}
}

// WithGlobalSubject overrides the subject receiving every event.
func WithGlobalSubject(subject string) PublisherOption {
	return func(p *Publisher) {
		if subject != "" {
			p.globalSubject = subject
		}
	}
}

// NewPublisher wraps an established NATS connection.
func NewPublisher(nc *nats.Conn, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		nc:            nc,
		log:           slog.Default(),
		globalSubject: SubjectDispatch,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Emit publishes ev to both subjects. A failure on either is returned to the
// caller; the engine treats sink failures as non-fatal.
func (p *Publisher) Emit(ctx context.Context, ev events.Event) error {
	data, err := json.Marshal(DispatchEvent{
		Method:     ev.Method,
		Outcome:    ev.Outcome,
		Code:       ev.Code,
		RequestID:  ev.RequestID,
		DurationMS: ev.Duration.Milliseconds(),
		Timestamp:  ev.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch event: %w", err)
	}

	granular := BuildDispatchSubject(ev.Method)
	if err := p.nc.Publish(granular, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", granular, err)
	}
	if err := p.nc.Publish(p.globalSubject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.globalSubject, err)
	}

	p.log.DebugContext(ctx, "events.publish.ok",
		slog.String("subject", granular),
		slog.String("outcome", ev.Outcome))
	return nil
}
