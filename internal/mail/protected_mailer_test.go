package mail

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyMailer struct {
	err   error
	calls int
}

func (m *flakyMailer) Send(ctx context.Context, msg Message) error {
	m.calls++
	return m.err
}

func TestProtectedMailer_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyMailer{err: errors.New("smtp down")}

	pm := NewProtectedMailer(inner, ProtectedMailerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	msg := Message{To: "x@example.com", Subject: "s", Body: "b"}

	for i := 0; i < 3; i++ {
		if err := pm.Send(context.Background(), msg); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	// circuit is now open: inner must not be called again
	before := inner.calls

	err := pm.Send(context.Background(), msg)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != before {
		t.Fatalf("inner mailer called while circuit open")
	}
}

func TestProtectedMailer_HalfOpenRecovers(t *testing.T) {
	inner := &flakyMailer{err: errors.New("smtp down")}

	pm := NewProtectedMailer(inner, ProtectedMailerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	msg := Message{To: "x@example.com"}

	if err := pm.Send(context.Background(), msg); err == nil {
		t.Fatalf("expected failure")
	}

	// provider recovers during the cooldown
	inner.err = nil
	time.Sleep(20 * time.Millisecond)

	if err := pm.Send(context.Background(), msg); err != nil {
		t.Fatalf("half-open probe should succeed: %v", err)
	}

	// and the circuit is closed again
	if err := pm.Send(context.Background(), msg); err != nil {
		t.Fatalf("closed circuit should pass through: %v", err)
	}
}

func TestProtectedMailer_TimesOutSlowSends(t *testing.T) {
	slow := &sleepyMailer{d: time.Second}

	pm := NewProtectedMailer(slow, ProtectedMailerConfig{
		Timeout: 20 * time.Millisecond,
	})

	err := pm.Send(context.Background(), Message{To: "x@example.com"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

type sleepyMailer struct {
	d time.Duration
}

func (m *sleepyMailer) Send(ctx context.Context, msg Message) error {
	select {
	case <-time.After(m.d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
