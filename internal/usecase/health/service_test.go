package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks[ComponentIndex] != CheckOK {
		t.Errorf("expected index %q, got %q", CheckOK, r.Checks[ComponentIndex])
	}
	if r.Checks[ComponentSource] != CheckOK {
		t.Errorf("expected source %q, got %q", CheckOK, r.Checks[ComponentSource])
	}
}

func TestCheck_IndexError(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, &mockPinger{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentIndex] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks[ComponentIndex])
	}
	if r.Checks[ComponentSource] != CheckOK {
		t.Errorf("expected source %q, got %q", CheckOK, r.Checks[ComponentSource])
	}
}

func TestCheck_SourceError(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentSource] != CheckError {
		t.Errorf("expected source %q, got %q", CheckError, r.Checks[ComponentSource])
	}
}

func TestCheck_NoSource(t *testing.T) {
	svc := New(&mockPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentSource]; ok {
		t.Error("source check should be absent")
	}
}

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheck_PingTimeout(t *testing.T) {
	svc := New(&mockPinger{}, slowPinger{}).WithTimeout(10 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Fatal("ping was not bounded by the timeout")
	}
	if r.Status != Degraded || r.Checks[ComponentSource] != CheckError {
		t.Errorf("unexpected report %+v", r)
	}
	if r.Checks[ComponentIndex] != CheckOK {
		t.Errorf("index = %q", r.Checks[ComponentIndex])
	}
}
