// ABOUTME: Bootstrap state machine, staleness policy, and persistence tracking.
// ABOUTME: Small value types shared by the menu service.
package menu

import (
	"context"
	"time"

	"github.com/harperreed/littlelemon/internal/storage"
)

// State is the per-session bootstrap state.
type State int

const (
	StateUninitialized State = iota
	StateSchemaReady
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSchemaReady:
		return "schema_ready"
	case StatePopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// Policy decides when a non-empty cache is refetched on bootstrap.
// A zero MaxAge never refetches.
type Policy struct {
	MaxAge time.Duration
}

// IsStale reports whether a cache in the given state should be refetched.
// A cache with no population stamp counts as stale under a non-zero MaxAge.
func (p Policy) IsStale(state storage.CacheState, now time.Time) bool {
	if p.MaxAge <= 0 {
		return false
	}
	if state.PopulatedAt.IsZero() {
		return true
	}
	return now.Sub(state.PopulatedAt) > p.MaxAge
}

// persistence tracks one background write.
type persistence struct {
	done chan struct{}
	err  error
}

func newPersistence() *persistence {
	return &persistence{done: make(chan struct{})}
}

func resolved(err error) *persistence {
	p := newPersistence()
	p.finish(err)
	return p
}

func (p *persistence) finish(err error) {
	p.err = err
	close(p.done)
}

// wait blocks until the write ends or ctx is done. It returns only ctx errors;
// the write's own error is read from p.err afterwards.
func (p *persistence) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// signal returns a channel that receives the write's error exactly once.
func (p *persistence) signal() <-chan error {
	ch := make(chan error, 1)
	go func() {
		<-p.done
		ch <- p.err
	}()
	return ch
}
