package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"mchat/internal/directory"
	"mchat/internal/domain"
	"mchat/internal/instrument"
	"mchat/internal/protocol/auth"
	"mchat/internal/protocol/frame"
	"mchat/internal/services/message"
)

var (
	// ErrRejected is returned by Login when the relay refuses the signature.
	ErrRejected = errors.New("client: authentication rejected")

	// ErrNotAuthenticated is returned by Send before a successful Login.
	ErrNotAuthenticated = errors.New("client: not authenticated")

	// ErrUsernameTaken is returned by Register for a name that already has a key.
	ErrUsernameTaken = errors.New("client: username already registered")

	// ErrRegistrationFailed is returned when the relay refuses a registration.
	ErrRegistrationFailed = errors.New("client: registration failed")
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger shared by the session and its components.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithLookupTimeout sets how long key lookups wait for the relay.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Session) { s.lookupTimeout = d }
}

// WithDirectoryMetrics records key directory activity on m.
func WithDirectoryMetrics(m *instrument.Directory) Option {
	return func(s *Session) { s.dirMetrics = m }
}

// WithMessageHandler sets the callback for decrypted chat messages. It runs
// on the Run goroutine.
func WithMessageHandler(fn func(domain.DecryptedMessage)) Option {
	return func(s *Session) { s.onMessage = fn }
}

// Session is one identity's conversation with the relay.
type Session struct {
	self      domain.Identity
	transport domain.Transport
	log       *log.Logger

	lookupTimeout time.Duration
	dirMetrics    *instrument.Directory
	onMessage     func(domain.DecryptedMessage)

	auth      *auth.Authenticator
	directory *directory.Directory
	messages  *message.Service

	// registration answers are routed to the single in-flight Register call.
	regMu      sync.Mutex
	regReplies chan frame.Frame
}

// New binds self to an established transport.
func New(self domain.Identity, t domain.Transport, opts ...Option) *Session {
	s := &Session{
		self:          self,
		transport:     t,
		lookupTimeout: directory.DefaultTimeout,
		regReplies:    make(chan frame.Frame, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.Default()
	}
	s.auth = auth.New(self)
	s.directory = directory.New(directory.SenderFunc(s.sendFrame),
		directory.WithTimeout(s.lookupTimeout),
		directory.WithLogger(s.log.WithPrefix("directory")),
		directory.WithMetrics(s.dirMetrics),
	)
	s.messages = message.New(self, s.directory, message.WithLogger(s.log.WithPrefix("message")))
	return s
}

// Directory returns the session's public key directory.
func (s *Session) Directory() *directory.Directory { return s.directory }

// State returns the login state.
func (s *Session) State() auth.State { return s.auth.State() }

// Run reads and dispatches inbound envelopes until ctx is done or the
// transport fails.
func (s *Session) Run(ctx context.Context) error {
	for {
		env, err := s.transport.Receive(ctx)
		if err != nil {
			return err
		}
		s.handle(env)
	}
}

func (s *Session) handle(env domain.Envelope) {
	f, err := frame.Parse(env.Content)
	if err != nil {
		s.log.Warn("dropping malformed frame", "err", err)
		return
	}

	switch fr := f.(type) {
	case frame.Challenge:
		s.answerChallenge(fr)
	case frame.AuthSuccess:
		s.finishLogin(true)
	case frame.AuthFailure:
		s.finishLogin(false)
	case frame.PublicKey, frame.PublicKeyNotFound:
		s.directory.Handle(fr)
	case frame.UsernameExists, frame.UsernameAvailable, frame.RegisterSuccess, frame.RegisterFailure:
		select {
		case s.regReplies <- fr:
		default:
			s.log.Warn("unexpected registration reply", "kind", fr.Kind())
		}
	case frame.Chat:
		if env.Sender == "" {
			s.log.Info("relay notice", "text", fr.Text)
			return
		}
		msg := s.messages.OpenMessage(env)
		if s.onMessage != nil {
			s.onMessage(msg)
		}
	default:
		s.log.Debug("ignoring frame", "kind", f.Kind())
	}
}

func (s *Session) answerChallenge(fr frame.Challenge) {
	if err := s.auth.SetChallenge(fr.Hex); err != nil {
		s.log.Warn("rejecting challenge", "err", err)
		return
	}
	resp, err := s.auth.BuildResponse()
	if err != nil {
		s.log.Warn("failed to answer challenge", "err", err)
		return
	}
	if err := s.sendFrame(resp.String()); err != nil {
		s.log.Warn("failed to send auth response", "err", err)
	}
}

func (s *Session) finishLogin(success bool) {
	if err := s.auth.HandleResult(success); err != nil {
		s.log.Warn("ignoring auth result", "success", success, "err", err)
	}
}

// Login runs the challenge-response handshake and blocks until the relay
// answers or ctx is done.
func (s *Session) Login(ctx context.Context) error {
	done := make(chan auth.State, 1)
	unsubscribe := s.auth.OnStateChange(func(st auth.State) {
		if st.Terminal() {
			select {
			case done <- st:
			default:
			}
		}
	})
	defer unsubscribe()
	if st := s.auth.State(); st.Terminal() {
		return loginResult(st)
	}

	if err := s.sendFrame(frame.AuthRequest{}.String()); err != nil {
		return fmt.Errorf("client: send auth request: %w", err)
	}
	select {
	case st := <-done:
		err := loginResult(st)
		if err == nil {
			s.log.Info("authenticated", "user", s.self.Username)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func loginResult(st auth.State) error {
	if st == auth.Authenticated {
		return nil
	}
	return ErrRejected
}

// Register publishes the local public key under the local username.
func (s *Session) Register(ctx context.Context) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	reply, err := s.roundTrip(ctx, frame.CheckUsername{Username: s.self.Username})
	if err != nil {
		return err
	}
	switch reply.(type) {
	case frame.UsernameExists:
		return fmt.Errorf("%w: %q", ErrUsernameTaken, s.self.Username)
	case frame.UsernameAvailable:
	default:
		return fmt.Errorf("%w: unexpected %s reply", ErrRegistrationFailed, reply.Kind())
	}

	reply, err = s.roundTrip(ctx, frame.Register{Record: s.self.PublicRecord()})
	if err != nil {
		return err
	}
	switch fr := reply.(type) {
	case frame.RegisterSuccess:
		s.log.Info("registered", "user", s.self.Username)
		return nil
	case frame.RegisterFailure:
		return fmt.Errorf("%w: %s", ErrRegistrationFailed, fr.Reason)
	default:
		return fmt.Errorf("%w: unexpected %s reply", ErrRegistrationFailed, reply.Kind())
	}
}

func (s *Session) roundTrip(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	// Drop a stale reply left by an earlier call that gave up waiting.
	select {
	case <-s.regReplies:
	default:
	}
	if err := s.sendFrame(req.String()); err != nil {
		return nil, fmt.Errorf("client: send %s: %w", req.Kind(), err)
	}
	select {
	case reply := <-s.regReplies:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup resolves a peer's public key through the directory.
func (s *Session) Lookup(ctx context.Context, peer domain.Username) (domain.PublicKeyRecord, error) {
	return s.directory.Lookup(ctx, peer)
}

// Send encrypts text for peer and hands it to the relay.
func (s *Session) Send(ctx context.Context, peer domain.Username, text string) error {
	if s.auth.State() != auth.Authenticated {
		return ErrNotAuthenticated
	}
	env, err := s.messages.Compose(ctx, peer, []byte(text))
	if err != nil {
		return err
	}
	return s.transport.Send(env)
}

// Close logs the directory cache stats, drops the cache and closes the
// transport.
func (s *Session) Close() error {
	st := s.directory.Stats()
	s.log.Info("directory stats", "cached", st.Cached, "pending", st.Pending)
	s.directory.Clear()
	return s.transport.Close()
}

func (s *Session) sendFrame(text string) error {
	return s.transport.Send(domain.Envelope{
		Sender:    s.self.Username,
		Content:   text,
		Timestamp: time.Now().UnixMilli(),
	})
}
