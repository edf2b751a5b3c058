package sqlite

import (
	"context"
	"time"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*ResilientStore)(nil)

// ResilientStore wraps a Store with CircuitBreaker + RetryOnDBLock for
// resilience against transient SQLite errors (database-is-locked,
// connection failures, etc.).
type ResilientStore struct {
	inner storage.Store
	cb    *CircuitBreaker
}

// NewResilient creates a ResilientStore with default circuit breaker settings
// (threshold=5, resetTimeout=30s).
func NewResilient(inner storage.Store) *ResilientStore {
	return &ResilientStore{inner: inner, cb: NewCircuitBreaker(5, 30*time.Second)}
}

// NewResilientWithBreaker creates a ResilientStore with a custom circuit breaker.
func NewResilientWithBreaker(inner storage.Store, cb *CircuitBreaker) *ResilientStore {
	return &ResilientStore{inner: inner, cb: cb}
}

// CircuitBreakerState returns the current state of the circuit breaker as a string.
func (r *ResilientStore) CircuitBreakerState() string {
	return r.cb.State().String()
}

// RunInTx retries the whole transaction on database-is-locked (a failed
// attempt has rolled back, so re-running fn is safe). Domain outcomes
// (validation, not-found) pass through without counting as store failures.
func (r *ResilientStore) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	var opErr error
	err := r.cb.Execute(func() error {
		return RetryOnDBLock(func() error {
			opErr = r.inner.RunInTx(ctx, fn)
			if opErr != nil && (core.IsNotFound(opErr) || core.IsValidation(opErr)) {
				return nil
			}
			return opErr
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

func (r *ResilientStore) Ping(ctx context.Context) error {
	return r.cb.Execute(func() error {
		return RetryOnDBLock(func() error {
			return r.inner.Ping(ctx)
		})
	})
}

// Close delegates directly to the inner store without CB or retry.
func (r *ResilientStore) Close() error {
	return r.inner.Close()
}
