// Package adapter defines the notification boundary for finished predictions.
//
// Adapters publish a prediction-completed event to downstream systems
// (a Redis channel, an HTTP endpoint). The runtime owns adapter lifecycle
// and never fails a prediction because a notification could not be sent.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventTypePredictionCompleted is the event_type of every published event.
const EventTypePredictionCompleted = "prediction_completed"

// ContractVersion is the event payload version.
const ContractVersion = "1"

// DefaultBackoff is the delay before the first retry. Each further retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// PredictionCompletedEvent is the payload published when a run finishes.
type PredictionCompletedEvent struct {
	ContractVersion string  `json:"contract_version"`
	EventType       string  `json:"event_type"`
	RunID           string  `json:"run_id"`
	JobID           string  `json:"job_id,omitempty"`
	Label           string  `json:"label"`
	Outcome         string  `json:"outcome"`
	E0              float64 `json:"e0_kcal"`
	Structures      int     `json:"structures"`
	Pseudoknotted   int     `json:"pseudoknotted"`
	StoragePath     string  `json:"storage_path,omitempty"`
	Timestamp       string  `json:"timestamp"` // RFC 3339
	Attempt         int     `json:"attempt"`
	DurationMs      int64   `json:"duration_ms"`
}

// Adapter publishes prediction completion events.
type Adapter interface {
	// Publish sends the event downstream. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, event *PredictionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Encode renders an event as the JSON body every transport sends.
func Encode(event *PredictionCompletedEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.EventType, err)
	}
	return body, nil
}

// Delivery bounds each send attempt and the retries after a failure.
type Delivery struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Resolve fills unset fields, using timeout as the attempt deadline.
func (d Delivery) Resolve(timeout time.Duration) (Delivery, error) {
	if d.Retries < 0 {
		return d, fmt.Errorf("retries must be >= 0, got %d", d.Retries)
	}
	if d.Timeout <= 0 {
		d.Timeout = timeout
	}
	if d.Backoff <= 0 {
		d.Backoff = DefaultBackoff
	}
	return d, nil
}

// Send runs send once plus up to Retries more times, each under its own
// Timeout. Errors for which permanent returns true are not retried.
func (d Delivery) Send(ctx context.Context, permanent func(error) bool, send func(context.Context) error) error {
	return Retry(ctx, 1+d.Retries, d.Backoff, permanent, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		defer cancel()
		return send(attemptCtx)
	})
}

// Retry calls fn up to attempts times, sleeping base, 2*base, 4*base...
// between calls. A nil error from fn ends the loop; so does an error that
// permanent reports as non-retriable. The last error is returned.
func Retry(ctx context.Context, attempts int, base time.Duration, permanent func(error) bool, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(base << (i - 1)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
