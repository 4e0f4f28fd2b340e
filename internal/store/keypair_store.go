package store

import (
	"fmt"
	"math/big"
	"path/filepath"
	"sync"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/util/memzero"
)

const credentialsFile = "credentials.json"

// credential is one account's on-disk record. Field names follow the
// properties layout older clients used.
type credential struct {
	PublicN  string `json:"public.n"`
	PublicE  string `json:"public.e"`
	PrivateD sealed `json:"private.d"`
}

// Option configures a KeyPairFileStore.
type Option func(*KeyPairFileStore)

// WithScryptParams overrides the key derivation cost. Tests use a cheap
// setting; production callers keep the default.
func WithScryptParams(n, r, p int) Option {
	return func(s *KeyPairFileStore) { s.params = scryptParams{N: n, R: r, P: p} }
}

// KeyPairFileStore stores RSA key pairs keyed by username in one JSON file.
type KeyPairFileStore struct {
	dir    string
	params scryptParams
	mu     sync.Mutex
}

// NewKeyPairFileStore returns a store rooted at dir.
func NewKeyPairFileStore(dir string, opts ...Option) *KeyPairFileStore {
	s := &KeyPairFileStore{dir: dir, params: defaultScryptParams()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the credentials file location.
func (s *KeyPairFileStore) Path() string { return filepath.Join(s.dir, credentialsFile) }

// SaveKeyPair seals kp's private exponent with passphrase and writes the
// record for username, replacing any existing one.
func (s *KeyPairFileStore) SaveKeyPair(username domain.Username, passphrase string, kp domain.KeyPair) error {
	if err := crypto.ValidateKeyPair(kp); err != nil {
		return fmt.Errorf("store: refusing to save key pair for %q: %w", username, err)
	}

	raw := []byte(crypto.EncodeHex(kp.D))
	defer memzero.Zero(raw)
	sealedD, err := seal(passphrase, raw, []byte(username), s.params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds := make(map[domain.Username]credential)
	if _, err := readJSON(s.Path(), &creds); err != nil {
		return err
	}
	creds[username] = credential{
		PublicN:  crypto.EncodeHex(kp.N),
		PublicE:  crypto.EncodeHex(kp.E),
		PrivateD: sealedD,
	}
	return writeJSON(s.Path(), creds, 0o600)
}

// LoadKeyPair returns username's key pair. ok is false when no record
// exists; a wrong passphrase yields ErrWrongPassphrase.
func (s *KeyPairFileStore) LoadKeyPair(username domain.Username, passphrase string) (domain.KeyPair, bool, error) {
	s.mu.Lock()
	creds := make(map[domain.Username]credential)
	_, err := readJSON(s.Path(), &creds)
	s.mu.Unlock()
	if err != nil {
		return domain.KeyPair{}, false, err
	}

	c, ok := creds[username]
	if !ok {
		return domain.KeyPair{}, false, nil
	}
	n, err := crypto.ParseHex(c.PublicN)
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("store: %q public.n: %w", username, err)
	}
	e, err := crypto.ParseHex(c.PublicE)
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("store: %q public.e: %w", username, err)
	}
	raw, err := open(passphrase, c.PrivateD, []byte(username))
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	defer memzero.Zero(raw)
	d, err := crypto.ParseHex(string(raw))
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("store: %q private.d: %w", username, err)
	}

	kp := domain.KeyPair{N: n, E: e, D: d}
	if err := crypto.ValidateKeyPair(kp); err != nil {
		memzero.ZeroInt(d)
		return domain.KeyPair{}, false, fmt.Errorf("store: %q: %w", username, err)
	}
	return kp, true, nil
}

// HasKeyPair reports whether a record exists for username.
func (s *KeyPairFileStore) HasKeyPair(username domain.Username) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds := make(map[domain.Username]credential)
	if _, err := readJSON(s.Path(), &creds); err != nil {
		return false, err
	}
	_, ok := creds[username]
	return ok, nil
}

// PublicKey returns username's public key without unsealing anything.
func (s *KeyPairFileStore) PublicKey(username domain.Username) (domain.PublicKey, bool, error) {
	s.mu.Lock()
	creds := make(map[domain.Username]credential)
	_, err := readJSON(s.Path(), &creds)
	s.mu.Unlock()
	if err != nil {
		return domain.PublicKey{}, false, err
	}
	c, ok := creds[username]
	if !ok {
		return domain.PublicKey{}, false, nil
	}
	var n, e *big.Int
	if n, err = crypto.ParseHex(c.PublicN); err != nil {
		return domain.PublicKey{}, false, fmt.Errorf("store: %q public.n: %w", username, err)
	}
	if e, err = crypto.ParseHex(c.PublicE); err != nil {
		return domain.PublicKey{}, false, fmt.Errorf("store: %q public.e: %w", username, err)
	}
	return domain.PublicKey{N: n, E: e}, true, nil
}

// Compile-time assertion that KeyPairFileStore implements domain.KeyPairStore.
var _ domain.KeyPairStore = (*KeyPairFileStore)(nil)
