// Package events defines the dispatch outcome event and the sink contract
// through which the engine reports completed calls to external consumers
// such as metrics collectors and message brokers.
package events

import (
	"context"
	"errors"
	"time"
)

// Outcome kinds, aligned with the protocol fault taxonomy.
const (
	OutcomeOK             = "ok"
	OutcomeParseError     = "parse_error"
	OutcomeMethodNotFound = "method_not_found"
	OutcomeInternalError  = "internal_error"
	OutcomeExecutionError = "execution_error"
	OutcomeUnauthorized   = "unauthorized"
)

// Event describes one completed dispatch. Method is empty when the request
// never decoded far enough to learn it.
type Event struct {
	Method    string
	Outcome   string
	Code      int // protocol error code, 0 on success
	RequestID any
	Duration  time.Duration
	Timestamp time.Time
}

// Sink receives one event per completed dispatch. Emission happens on the
// request path, so implementations must be safe for concurrent use and
// should not block.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

var _ Sink = (SinkFunc)(nil)

// NopSink discards every event.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(_ context.Context, _ Event) error { return nil }

var _ Sink = NopSink{}

// Multi fans one event out to every given sink. All sinks run even when an
// earlier one fails; their errors are joined.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) error {
		var errs []error
		for _, s := range sinks {
			if err := s.Emit(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
