package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	errTransient := errors.New("transient")
	errPermanent := errors.New("permanent")
	isPermanent := func(err error) bool { return errors.Is(err, errPermanent) }

	tests := []struct {
		name      string
		attempts  int
		results   []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", attempts: 3, results: []error{nil}, wantCalls: 1},
		{name: "succeeds on retry", attempts: 3, results: []error{errTransient, nil}, wantCalls: 2},
		{name: "exhausted", attempts: 3, results: []error{errTransient, errTransient, errTransient}, wantCalls: 3, wantErr: errTransient},
		{name: "permanent stops", attempts: 3, results: []error{errPermanent}, wantCalls: 1, wantErr: errPermanent},
		{name: "zero attempts still calls once", attempts: 0, results: []error{errTransient}, wantCalls: 1, wantErr: errTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), tt.attempts, time.Millisecond, isPermanent, func(context.Context) error {
				err := tt.results[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := Retry(ctx, 3, time.Millisecond, nil, func(context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Error("fn should not run on a canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDelivery_Resolve(t *testing.T) {
	d, err := Delivery{}.Resolve(time.Second)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Timeout != time.Second || d.Backoff != DefaultBackoff || d.Retries != 0 {
		t.Errorf("resolved = %+v", d)
	}

	kept, _ := Delivery{Timeout: time.Minute, Retries: 2, Backoff: time.Millisecond}.Resolve(time.Second)
	if kept.Timeout != time.Minute || kept.Retries != 2 || kept.Backoff != time.Millisecond {
		t.Errorf("explicit values overwritten: %+v", kept)
	}

	if _, err := (Delivery{Retries: -1}).Resolve(time.Second); err == nil {
		t.Error("expected error for negative retries")
	}
}

func TestDelivery_SendBoundsEachAttempt(t *testing.T) {
	d := Delivery{Timeout: 20 * time.Millisecond, Retries: 1, Backoff: time.Millisecond}
	var deadlines int
	err := d.Send(t.Context(), nil, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			deadlines++
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if deadlines != 2 {
		t.Errorf("attempts with deadline = %d, want 2", deadlines)
	}
}

func TestEncode(t *testing.T) {
	body, err := Encode(&PredictionCompletedEvent{EventType: EventTypePredictionCompleted, RunID: "r1", E0: -3.5})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, want := range []string{`"run_id":"r1"`, `"e0_kcal":-3.5`, `"event_type":"prediction_completed"`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}
