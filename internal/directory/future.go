package directory

import (
	"context"
	"sync"
	"time"

	"mchat/internal/domain"
)

// Future is the pending or completed result of one lookup.
type Future struct {
	username domain.Username
	done     chan struct{}
	once     sync.Once
	timer    *time.Timer

	record domain.PublicKeyRecord
	err    error
}

func newFuture(username domain.Username) *Future {
	return &Future{username: username, done: make(chan struct{})}
}

func resolvedFuture(rec domain.PublicKeyRecord) *Future {
	f := newFuture(rec.Username)
	f.complete(rec, nil)
	return f
}

// Username returns the username being looked up.
func (f *Future) Username() domain.Username { return f.username }

// Done is closed once the lookup has completed.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result returns the outcome. It must only be called after Done is closed.
func (f *Future) Result() (domain.PublicKeyRecord, error) {
	return f.record, f.err
}

// Wait blocks until the lookup completes or ctx is done. Abandoning a wait
// does not cancel the lookup for other callers.
func (f *Future) Wait(ctx context.Context) (domain.PublicKeyRecord, error) {
	select {
	case <-f.done:
		return f.record, f.err
	case <-ctx.Done():
		return domain.PublicKeyRecord{}, ctx.Err()
	}
}

// complete records the outcome once; later calls are ignored.
func (f *Future) complete(rec domain.PublicKeyRecord, err error) bool {
	completed := false
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		f.record, f.err = rec, err
		close(f.done)
		completed = true
	})
	return completed
}
