package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"mchat/internal/crypto"
	"mchat/internal/domain"
)

// FailureMarker replaces the plaintext of a message that could not be
// decrypted.
const FailureMarker = "[decryption failed]"

var (
	// ErrNoRecipient is returned when sealing a message without a peer.
	ErrNoRecipient = errors.New("message: recipient required")
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service seals and opens chat payloads for one local identity.
type Service struct {
	self      domain.Identity
	directory domain.KeyDirectory
	log       *log.Logger
	now       func() time.Time
}

// New returns a message service for self that resolves peers through dir.
func New(self domain.Identity, dir domain.KeyDirectory, opts ...Option) *Service {
	s := &Service{self: self, directory: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.Default().WithPrefix("message")
	}
	return s
}

// SealMessage waits for peer's public key and encrypts plaintext to it,
// chunking when it does not fit in one block.
func (s *Service) SealMessage(ctx context.Context, peer domain.Username, plaintext []byte) (string, error) {
	if peer == "" {
		return "", ErrNoRecipient
	}
	rec, err := s.directory.Lookup(ctx, peer)
	if err != nil {
		return "", fmt.Errorf("message: resolve %q: %w", peer, err)
	}
	ct, err := crypto.EncryptLong(plaintext, rec.Key)
	if err != nil {
		return "", fmt.Errorf("message: encrypt for %q: %w", peer, err)
	}
	return ct, nil
}

// Compose seals plaintext and wraps it in an envelope addressed to peer.
func (s *Service) Compose(ctx context.Context, peer domain.Username, plaintext []byte) (domain.Envelope, error) {
	ct, err := s.SealMessage(ctx, peer, plaintext)
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{
		Sender:    s.self.Username,
		Recipient: peer,
		Content:   ct,
		Timestamp: s.now().UnixMilli(),
	}, nil
}

// OpenMessage decrypts env's content with the local key pair.
func (s *Service) OpenMessage(env domain.Envelope) domain.DecryptedMessage {
	msg := domain.DecryptedMessage{
		From:      env.Sender,
		To:        env.Recipient,
		Timestamp: env.Timestamp,
	}
	pt, err := crypto.DecryptLong(s.self.KeyPair, env.Content)
	if err != nil {
		s.log.Warn("failed to decrypt message", "from", env.Sender, "err", err)
		msg.Plaintext = []byte(FailureMarker)
		msg.Failed = true
		return msg
	}
	msg.Plaintext = pt
	return msg
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
