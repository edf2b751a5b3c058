package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/storage"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	f.calls++
	return f.err
}
func (f *flakyStore) Ping(ctx context.Context) error { return f.err }
func (f *flakyStore) Close() error                   { return nil }

func TestResilientPassesDomainErrorsThrough(t *testing.T) {
	inner := &flakyStore{err: &core.NotFoundError{Kind: "project", Key: "x"}}
	cb := NewCircuitBreaker(2, 30*time.Second)
	rs := NewResilientWithBreaker(inner, cb)

	// Domain outcomes must neither retry nor count as store failures.
	for range 5 {
		err := rs.RunInTx(context.Background(), nil)
		if !core.IsNotFound(err) {
			t.Fatalf("err = %v", err)
		}
	}
	if inner.calls != 5 {
		t.Fatalf("calls = %d, domain errors were retried", inner.calls)
	}
	if cb.State() != StateClosed {
		t.Fatalf("breaker state = %s", cb.State())
	}
}

func TestResilientTripsOnStoreErrors(t *testing.T) {
	inner := &flakyStore{err: errors.New("disk I/O error")}
	cb := NewCircuitBreaker(2, 30*time.Second)
	rs := NewResilientWithBreaker(inner, cb)

	for range 2 {
		if err := rs.RunInTx(context.Background(), nil); err == nil {
			t.Fatal("expected error")
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("breaker state = %s", cb.State())
	}
	if err := rs.RunInTx(context.Background(), nil); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v", err)
	}
}

func TestResilientSucceedsEndToEnd(t *testing.T) {
	st := newTestStore(t)
	rs := NewResilient(st)

	err := rs.RunInTx(context.Background(), func(tx storage.Tx) error {
		return tx.CreateProject(core.Project{ID: "p1", Slug: "proj", HumanKey: "proj", CreatedAt: baseTime})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if err := rs.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if rs.CircuitBreakerState() != "closed" {
		t.Fatalf("state = %s", rs.CircuitBreakerState())
	}
}
