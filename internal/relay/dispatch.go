package relay

import (
	"errors"
	"time"

	"mchat/internal/domain"
	"mchat/internal/protocol/auth"
	"mchat/internal/protocol/frame"
)

// dispatch handles one inbound envelope from p.
func (s *Server) dispatch(p *peer, env domain.Envelope) {
	f, err := frame.Parse(env.Content)
	if err != nil {
		s.metrics.Frame("malformed")
		s.log.Warn("dropping malformed frame", "remote", p.remote, "err", err)
		return
	}
	s.metrics.Frame(f.Kind().String())

	if f.Kind() != frame.KindChat && !p.limiter.Allow() {
		s.metrics.RateLimited()
		s.log.Warn("rate limited", "remote", p.remote, "kind", f.Kind())
		return
	}

	switch fr := f.(type) {
	case frame.AuthRequest:
		s.issueChallenge(p)
	case frame.AuthResponse:
		s.verify(p, fr)
	case frame.GetPublicKey:
		s.lookup(p, fr.Username)
	case frame.CheckUsername:
		if s.registry.Has(fr.Username) {
			s.reply(p, frame.UsernameExists{})
		} else {
			s.reply(p, frame.UsernameAvailable{})
		}
	case frame.Register:
		s.register(p, fr.Record)
	case frame.Chat:
		s.forward(p, env)
	default:
		// Server-to-client frames are meaningless here.
		s.log.Debug("ignoring frame from client", "remote", p.remote, "kind", f.Kind())
	}
}

func (s *Server) issueChallenge(p *peer) {
	if p.isRejected() {
		s.log.Warn("refusing auth-request after failed login", "remote", p.remote)
		s.reply(p, frame.AuthFailure{})
		return
	}
	c, err := auth.NewChallenge(s.random, auth.DefaultChallengeSize)
	if err != nil {
		s.log.Error("failed to generate challenge", "err", err)
		s.reply(p, frame.AuthFailure{})
		return
	}
	p.setChallenge(c)
	s.reply(p, frame.Challenge{Hex: c})
}

func (s *Server) verify(p *peer, fr frame.AuthResponse) {
	challenge := p.takeChallenge()
	ok := false
	switch pub, registered := s.registry.Lookup(fr.Username); {
	case p.isRejected():
		s.log.Warn("auth-response after failed login", "remote", p.remote, "user", fr.Username)
	case challenge == "":
		s.log.Warn("auth-response without a challenge", "remote", p.remote, "user", fr.Username)
	case !registered:
		s.log.Warn("auth-response for unknown user", "remote", p.remote, "user", fr.Username)
	default:
		ok = auth.VerifyResponse(challenge, fr.Signature, pub)
	}
	s.metrics.Auth(ok)
	if !ok {
		// A failed login on an unauthenticated connection is final.
		if p.name() == "" {
			p.reject()
		}
		s.reply(p, frame.AuthFailure{})
		return
	}
	s.bind(p, fr.Username)
	s.log.Info("user authenticated", "user", fr.Username, "remote", p.remote)
	s.reply(p, frame.AuthSuccess{})
}

func (s *Server) lookup(p *peer, username domain.Username) {
	pub, ok := s.registry.Lookup(username)
	if !ok {
		s.reply(p, frame.PublicKeyNotFound{Username: username})
		return
	}
	s.reply(p, frame.PublicKey{Record: domain.PublicKeyRecord{Username: username, Key: pub}})
}

func (s *Server) register(p *peer, rec domain.PublicKeyRecord) {
	if err := s.registry.Register(rec); err != nil {
		reason := "invalid key"
		if errors.Is(err, ErrUsernameTaken) {
			reason = "username taken"
		}
		s.log.Warn("registration refused", "user", rec.Username, "err", err)
		s.reply(p, frame.RegisterFailure{Reason: reason})
		return
	}
	s.log.Info("user registered", "user", rec.Username, "remote", p.remote)
	s.reply(p, frame.RegisterSuccess{})
}

// forward relays a chat envelope from an authenticated peer. The sender is
// always rewritten to the authenticated name.
func (s *Server) forward(p *peer, env domain.Envelope) {
	from := p.name()
	if from == "" {
		s.log.Warn("dropping chat from unauthenticated connection", "remote", p.remote)
		return
	}
	env.Sender = from
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().UnixMilli()
	}

	if env.Recipient == "" {
		s.broadcast(p, env)
		return
	}

	s.mu.RLock()
	to, online := s.online[env.Recipient]
	s.mu.RUnlock()
	if !online || !to.send(env) {
		s.metrics.Undelivered()
		s.log.Info("chat not delivered", "from", from, "to", env.Recipient, "online", online)
	}
}

func (s *Server) broadcast(from *peer, env domain.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for u, p := range s.online {
		if p == from {
			continue
		}
		if !p.send(env) {
			s.metrics.Undelivered()
			s.log.Info("broadcast not delivered", "to", u)
		}
	}
}

func (s *Server) reply(p *peer, f frame.Frame) {
	if !p.send(domain.Envelope{Content: f.String(), Timestamp: time.Now().UnixMilli()}) {
		s.log.Warn("outbox full, dropping reply", "remote", p.remote, "kind", f.Kind())
	}
}
