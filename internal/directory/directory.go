package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"mchat/internal/domain"
	"mchat/internal/instrument"
	"mchat/internal/protocol/frame"
)

// DefaultTimeout bounds how long a lookup waits for the relay to answer.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the relay has no key for the username.
	ErrNotFound = errors.New("directory: public key not found")

	// ErrLookupTimeout is returned when no response arrived in time.
	ErrLookupTimeout = errors.New("directory: lookup timed out")

	// ErrDirectoryCleared is returned to lookups pending when Clear was called.
	ErrDirectoryCleared = errors.New("directory: cache cleared")
)

// Sender delivers a frame to the relay.
type Sender interface {
	SendFrame(text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(text string) error

func (fn SenderFunc) SendFrame(text string) error { return fn(text) }

// Option configures a Directory.
type Option func(*Directory)

// WithTimeout sets the lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(dir *Directory) {
		if d > 0 {
			dir.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(dir *Directory) { dir.log = l }
}

// WithMetrics records activity on m.
func WithMetrics(m *instrument.Directory) Option {
	return func(dir *Directory) { dir.metrics = m }
}

// Stats is a snapshot of the directory's bookkeeping.
type Stats struct {
	Cached  int
	Pending int
}

// Directory is a concurrency-safe public key cache with in-flight request
// coalescing.
type Directory struct {
	sender  Sender
	timeout time.Duration
	log     *log.Logger
	metrics *instrument.Directory

	// mu guards both maps so that check-then-insert on pending is atomic.
	mu      sync.Mutex
	cache   map[domain.Username]domain.PublicKeyRecord
	pending map[domain.Username]*Future
}

// New returns an empty directory that sends lookups through sender.
func New(sender Sender, opts ...Option) *Directory {
	d := &Directory{
		sender:  sender,
		timeout: DefaultTimeout,
		cache:   make(map[domain.Username]domain.PublicKeyRecord),
		pending: make(map[domain.Username]*Future),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = log.Default().WithPrefix("directory")
	}
	return d
}

// GetPublicKey returns a future for username's public key.
//
// A cached key resolves immediately. Otherwise the in-flight future for
// username is shared, or a new get-public-key frame is sent.
func (d *Directory) GetPublicKey(username domain.Username) *Future {
	d.mu.Lock()
	if rec, ok := d.cache[username]; ok {
		d.mu.Unlock()
		d.metrics.CacheHit()
		d.log.Debug("using cached public key", "user", username)
		return resolvedFuture(rec)
	}
	if f, ok := d.pending[username]; ok {
		d.mu.Unlock()
		d.metrics.Coalesced()
		d.log.Debug("public key request already pending", "user", username)
		return f
	}
	f := newFuture(username)
	f.timer = time.AfterFunc(d.timeout, func() { d.expire(f) })
	d.pending[username] = f
	d.mu.Unlock()

	d.metrics.Lookup()
	d.log.Debug("requesting public key", "user", username)
	if err := d.sender.SendFrame(frame.GetPublicKey{Username: username}.String()); err != nil {
		d.log.Warn("failed to request public key", "user", username, "err", err)
		d.fail(f, fmt.Errorf("directory: send lookup for %q: %w", username, err))
	}
	return f
}

// Lookup waits for username's public key.
func (d *Directory) Lookup(ctx context.Context, username domain.Username) (domain.PublicKeyRecord, error) {
	return d.GetPublicKey(username).Wait(ctx)
}

// Preload warms the cache for username. Failures are only logged.
func (d *Directory) Preload(username domain.Username) {
	if d.Has(username) {
		return
	}
	f := d.GetPublicKey(username)
	go func() {
		<-f.Done()
		if _, err := f.Result(); err != nil {
			d.log.Debug("failed to preload public key", "user", username, "err", err)
			return
		}
		d.log.Debug("preloaded public key", "user", username)
	}()
}

// HandleResponse parses a directory response frame and applies it.
// Malformed or unrelated frames are logged and dropped.
func (d *Directory) HandleResponse(payload string) {
	f, err := frame.Parse(payload)
	if err != nil {
		d.metrics.Dropped()
		d.log.Warn("invalid public key response", "err", err)
		return
	}
	if !d.Handle(f) {
		d.metrics.Dropped()
		d.log.Warn("unexpected frame for directory", "kind", f.Kind())
	}
}

// Handle applies a parsed public-key or public-key-not-found frame and
// reports whether f was one of those.
func (d *Directory) Handle(f frame.Frame) bool {
	switch fr := f.(type) {
	case frame.PublicKey:
		d.store(fr.Record)
	case frame.PublicKeyNotFound:
		d.metrics.NotFound()
		d.log.Info("public key not found", "user", fr.Username)
		d.mu.Lock()
		pending := d.takePendingLocked(fr.Username, nil)
		d.mu.Unlock()
		if pending != nil {
			pending.complete(domain.PublicKeyRecord{}, fmt.Errorf("%w: %q", ErrNotFound, fr.Username))
		}
	default:
		return false
	}
	return true
}

// Cached returns the cached key for username without a network lookup.
func (d *Directory) Cached(username domain.Username) (domain.PublicKeyRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.cache[username]
	return rec, ok
}

// Has reports whether username's key is cached.
func (d *Directory) Has(username domain.Username) bool {
	_, ok := d.Cached(username)
	return ok
}

// Clear drops every cached key and fails every pending lookup with ErrDirectoryCleared.
func (d *Directory) Clear() {
	d.mu.Lock()
	pending := d.pending
	d.cache = make(map[domain.Username]domain.PublicKeyRecord)
	d.pending = make(map[domain.Username]*Future)
	d.mu.Unlock()

	for _, f := range pending {
		f.complete(domain.PublicKeyRecord{}, ErrDirectoryCleared)
	}
	d.log.Debug("cache cleared")
}

// Stats returns the number of cached keys and pending lookups.
func (d *Directory) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Cached: len(d.cache), Pending: len(d.pending)}
}

// store caches rec, replacing any older record for the same username, and
// resolves the matching pending lookup.
func (d *Directory) store(rec domain.PublicKeyRecord) {
	d.mu.Lock()
	d.cache[rec.Username] = rec
	pending := d.takePendingLocked(rec.Username, nil)
	d.mu.Unlock()

	d.log.Debug("public key received and cached", "user", rec.Username)
	if pending != nil {
		pending.complete(rec, nil)
	}
}

func (d *Directory) expire(f *Future) {
	d.mu.Lock()
	pending := d.takePendingLocked(f.username, f)
	d.mu.Unlock()
	if pending == nil {
		return
	}
	d.metrics.Timeout()
	d.log.Warn("public key lookup timed out", "user", f.username, "after", d.timeout)
	pending.complete(domain.PublicKeyRecord{}, fmt.Errorf("%w: %q after %s", ErrLookupTimeout, f.username, d.timeout))
}

func (d *Directory) fail(f *Future, err error) {
	d.mu.Lock()
	pending := d.takePendingLocked(f.username, f)
	d.mu.Unlock()
	if pending != nil {
		pending.complete(domain.PublicKeyRecord{}, err)
	}
}

// takePendingLocked removes and returns the pending future for username.
// When want is non-nil, only that exact future is removed.
func (d *Directory) takePendingLocked(username domain.Username, want *Future) *Future {
	f, ok := d.pending[username]
	if !ok || (want != nil && f != want) {
		return nil
	}
	delete(d.pending, username)
	return f
}

// Compile-time assertion that Directory implements domain.KeyDirectory.
var _ domain.KeyDirectory = (*Directory)(nil)
