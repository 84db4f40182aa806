// Package redis announces finished predictions on a Redis pub/sub channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/knotfold/adapter"
)

const (
	DefaultChannel = "knotfold:prediction_completed"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
)

// Config configures the adapter. URL takes the go-redis form
// redis://[:password@]host:port[/db].
type Config struct {
	URL     string
	Channel string
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Adapter sends each event as one PUBLISH.
type Adapter struct {
	channel  string
	delivery adapter.Delivery
	client   *goredis.Client
}

// New parses the URL and applies defaults. It does not dial; the first
// Publish does.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	delivery, err := adapter.Delivery{Timeout: cfg.Timeout, Retries: cfg.Retries, Backoff: cfg.Backoff}.Resolve(DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Adapter{channel: channel, delivery: delivery, client: goredis.NewClient(opts)}, nil
}

func (a *Adapter) Publish(ctx context.Context, event *adapter.PredictionCompletedEvent) error {
	body, err := adapter.Encode(event)
	if err != nil {
		return err
	}
	err = a.delivery.Send(ctx, nil, func(ctx context.Context) error {
		return a.client.Publish(ctx, a.channel, body).Err()
	})
	if err != nil {
		return fmt.Errorf("redis publish to %s: %w", a.channel, err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
