package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuard_RetriesTransientFailures(t *testing.T) {
	g := NewGuard(NewCircuitBreaker("translator", 3, time.Second), fastRetry(3))

	attempts := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if g.Breaker().GetState() != StateClosed {
		t.Error("Expected breaker to stay closed")
	}
}

func TestGuard_PermanentFailureNotRetried(t *testing.T) {
	g := NewGuard(NewCircuitBreaker("translator", 3, time.Second), fastRetry(3))

	attempts := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("unsupported language pair")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestGuard_OpensAfterRepeatedFailures(t *testing.T) {
	g := NewGuard(NewCircuitBreaker("recognizer", 2, time.Minute), nil)
	fail := func(ctx context.Context) error { return errors.New("boom") }

	g.Do(context.Background(), fail)
	g.Do(context.Background(), fail)

	if err := g.Do(context.Background(), fail); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestGuard_NilBreaker(t *testing.T) {
	g := NewGuard(nil, nil)
	if err := g.Do(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
