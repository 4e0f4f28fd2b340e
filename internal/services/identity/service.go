package identity

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/charmbracelet/log"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/protocol/frame"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrIdentityExists is returned by CreateIdentity when the username already
	// has a stored key pair.
	ErrIdentityExists = errors.New("identity: key pair already exists")

	// ErrKeyTooSmall is returned by CreateIdentity when the configured
	// modulus cannot carry chunked messages.
	ErrKeyTooSmall = fmt.Errorf("identity: key size below %d bits", crypto.MinIdentityKeyBits)

	// ErrNoIdentity is returned when no key pair is stored for the username.
	ErrNoIdentity = errors.New("identity: no key pair stored; run init first")
)

// Option configures a Service.
type Option func(*Service)

// WithKeyBits sets the modulus size for new key pairs. Sizes below
// crypto.MinIdentityKeyBits make CreateIdentity fail with ErrKeyTooSmall.
func WithKeyBits(bits int) Option {
	return func(s *Service) { s.keyBits = bits }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service manages the local identities held in a key pair store.
type Service struct {
	store   domain.KeyPairStore
	keyBits int
	log     *log.Logger
}

// New returns an identity service backed by the given store.
func New(s domain.KeyPairStore, opts ...Option) *Service {
	svc := &Service{store: s, keyBits: crypto.DefaultKeyBits}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.log == nil {
		svc.log = log.Default().WithPrefix("identity")
	}
	return svc
}

// CreateIdentity generates a key pair for username, saves it encrypted with
// the passphrase, and returns the identity plus its fingerprint.
func (s *Service) CreateIdentity(
	username domain.Username,
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if err := frame.ValidateUsername(username); err != nil {
		return domain.Identity{}, "", err
	}
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	if s.keyBits < crypto.MinIdentityKeyBits {
		return domain.Identity{}, "", fmt.Errorf("%w: got %d", ErrKeyTooSmall, s.keyBits)
	}
	exists, err := s.store.HasKeyPair(username)
	if err != nil {
		return domain.Identity{}, "", err
	}
	if exists {
		return domain.Identity{}, "", fmt.Errorf("%w for %q", ErrIdentityExists, username)
	}

	s.log.Info("generating key pair", "user", username, "bits", s.keyBits)
	kp, err := crypto.GenerateKeyPair(s.keyBits)
	if err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SaveKeyPair(username, passphrase, kp); err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{Username: username, KeyPair: kp}
	return id, crypto.Fingerprint(kp.Public()), nil
}

// LoadIdentity decrypts and returns the identity for username.
func (s *Service) LoadIdentity(username domain.Username, passphrase string) (domain.Identity, error) {
	kp, ok, err := s.store.LoadKeyPair(username, passphrase)
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: %q", ErrNoIdentity, username)
	}
	return domain.Identity{Username: username, KeyPair: kp}, nil
}

// LoadOrCreate returns the stored identity for username, generating and
// saving one first if none exists. created reports which happened.
func (s *Service) LoadOrCreate(
	username domain.Username,
	passphrase string,
) (id domain.Identity, fp domain.Fingerprint, created bool, err error) {
	id, err = s.LoadIdentity(username, passphrase)
	switch {
	case err == nil:
		s.log.Debug("loaded existing key pair", "user", username)
		return id, crypto.Fingerprint(id.KeyPair.Public()), false, nil
	case !errors.Is(err, ErrNoIdentity):
		return domain.Identity{}, "", false, err
	}
	id, fp, err = s.CreateIdentity(username, passphrase)
	if err != nil {
		return domain.Identity{}, "", false, err
	}
	return id, fp, true, nil
}

// FingerprintIdentity returns a short fingerprint of username's public key.
func (s *Service) FingerprintIdentity(
	username domain.Username,
	passphrase string,
) (domain.Fingerprint, error) {
	id, err := s.LoadIdentity(username, passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.KeyPair.Public()), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
