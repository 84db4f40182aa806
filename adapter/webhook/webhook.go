// Package webhook POSTs finished-prediction events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/justapithecus/knotfold/adapter"
	"github.com/justapithecus/knotfold/iox"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
)

// EventHeader names the event type on every request.
const EventHeader = "X-Knotfold-Event"

// Config configures the adapter. Headers are sent on every request and
// may override Content-Type.
type Config struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Adapter posts JSON events. Network errors and 5xx responses are
// retried; 4xx responses are not.
type Adapter struct {
	url      string
	header   http.Header
	delivery adapter.Delivery
	client   *http.Client
}

func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	delivery, err := adapter.Delivery{Timeout: cfg.Timeout, Retries: cfg.Retries, Backoff: cfg.Backoff}.Resolve(DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("webhook adapter: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(EventHeader, adapter.EventTypePredictionCompleted)
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return &Adapter{url: cfg.URL, header: header, delivery: delivery, client: &http.Client{}}, nil
}

func (a *Adapter) Publish(ctx context.Context, event *adapter.PredictionCompletedEvent) error {
	body, err := adapter.Encode(event)
	if err != nil {
		return err
	}
	err = a.delivery.Send(ctx, rejected, func(ctx context.Context) error {
		return a.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("webhook %s: %w", a.url, err)
	}
	return nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// rejected reports a 4xx response, which a retry will not change.
func rejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}

func (a *Adapter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = a.header.Clone()

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle keep-alive connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
