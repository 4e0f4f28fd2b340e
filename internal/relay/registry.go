package relay

import (
	"errors"
	"fmt"
	"sync"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/protocol/frame"
)

var (
	// ErrUsernameTaken is returned when registering a name that already has a key.
	ErrUsernameTaken = errors.New("relay: username already registered")
)

// Registry is the relay's username to public key table. All state is held
// in memory and lost on process exit.
type Registry struct {
	mu   sync.RWMutex
	keys map[domain.Username]domain.PublicKey
}

// NewRegistry returns a registry seeded with records.
func NewRegistry(records ...domain.PublicKeyRecord) *Registry {
	r := &Registry{keys: make(map[domain.Username]domain.PublicKey, len(records))}
	for _, rec := range records {
		r.keys[rec.Username] = rec.Key
	}
	return r
}

// Register stores rec. Names are first come, first served.
func (r *Registry) Register(rec domain.PublicKeyRecord) error {
	if err := frame.ValidateUsername(rec.Username); err != nil {
		return err
	}
	if err := crypto.ValidatePublicKey(rec.Key); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[rec.Username]; ok {
		return fmt.Errorf("%w: %q", ErrUsernameTaken, rec.Username)
	}
	r.keys[rec.Username] = rec.Key
	return nil
}

// Lookup returns the registered key for username.
func (r *Registry) Lookup(username domain.Username) (domain.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[username]
	return k, ok
}

// Has reports whether username is registered.
func (r *Registry) Has(username domain.Username) bool {
	_, ok := r.Lookup(username)
	return ok
}

// Len returns the number of registered usernames.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}
