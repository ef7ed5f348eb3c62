package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, check := range []string{CheckIndex, CheckEmbedding, CheckGeneration} {
		if r.Checks[check] != CheckOK {
			t.Errorf("expected %s %q, got %q", check, CheckOK, r.Checks[check])
		}
	}
}

func TestCheck_IndexError(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, &mockChecker{}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[CheckIndex] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks[CheckIndex])
	}
	if r.Checks[CheckEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[CheckEmbedding])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{err: errors.New("timeout")}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[CheckIndex] != CheckOK {
		t.Errorf("expected index %q, got %q", CheckOK, r.Checks[CheckIndex])
	}
	if r.Checks[CheckEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[CheckEmbedding])
	}
}

func TestCheck_GenerationError(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockChecker{err: errors.New("quota")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[CheckGeneration] != CheckError {
		t.Errorf("expected generation %q, got %q", CheckError, r.Checks[CheckGeneration])
	}
}

func TestCheck_IndexDownDominates(t *testing.T) {
	svc := New(
		&mockPinger{err: errors.New("index down")},
		&mockChecker{err: errors.New("emb down")},
		&mockChecker{err: errors.New("gen down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	for _, check := range []string{CheckIndex, CheckEmbedding, CheckGeneration} {
		if r.Checks[check] != CheckError {
			t.Errorf("expected %s error", check)
		}
	}
}

func TestCheck_NoGeneration(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[CheckGeneration]; ok {
		t.Error("generation check should be absent when generation is nil")
	}
}

func TestCheck_NoOptionalCheckers_IndexError(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("fail")}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[CheckIndex] != CheckError {
		t.Error("expected index error")
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the index check, got %v", r.Checks)
	}
}
