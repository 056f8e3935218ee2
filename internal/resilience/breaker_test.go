package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	boom := errors.New("boom")

	for range 3 {
		if err := b.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	current := time.Now()
	b.now = func() time.Time { return current }

	_ = b.Execute(func() error { return errors.New("boom") })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	current = current.Add(2 * time.Minute)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected half-open success, got %v", err)
	}

	// Success closed the circuit again.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected closed circuit, got %v", err)
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	current := time.Now()
	b.now = func() time.Time { return current }

	_ = b.Execute(func() error { return errors.New("boom") })
	current = current.Add(2 * time.Minute)

	// Half-open probe fails: circuit reopens immediately.
	_ = b.Execute(func() error { return errors.New("still down") })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected reopened circuit, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(2, time.Minute)

	_ = b.Execute(func() error { return errors.New("one") })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errors.New("two") })

	// Only one consecutive failure: still closed.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected closed circuit, got %v", err)
	}
}
