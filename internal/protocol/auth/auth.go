package auth

import (
	"errors"
	"fmt"
	"sync"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/protocol/frame"
)

// State is the client-side handshake state.
type State int

const (
	Idle State = iota
	ChallengeReceived
	ResponseSent
	Authenticated
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChallengeReceived:
		return "challenge-received"
	case ResponseSent:
		return "response-sent"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == Authenticated || s == Rejected }

var (
	// ErrNoChallengeSet is returned by BuildResponse before a challenge arrived.
	ErrNoChallengeSet = errors.New("auth: no challenge set")

	// ErrUnexpectedResult is returned for an auth result with no response outstanding.
	ErrUnexpectedResult = errors.New("auth: result without a pending response")

	// ErrTerminal is returned for any input after the handshake finished.
	ErrTerminal = errors.New("auth: handshake already finished")
)

// Authenticator holds the handshake state for one session.
//
// All methods are safe for concurrent use; transitions are serialised.
type Authenticator struct {
	id domain.Identity

	mu        sync.Mutex
	state     State
	challenge string
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func(State)
}

// New returns an Idle authenticator that signs with id's private key.
func New(id domain.Identity) *Authenticator {
	return &Authenticator{id: id}
}

// State returns the current handshake state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnStateChange registers fn to be called after every transition. Callbacks
// run on the goroutine that caused the transition, outside the lock. The
// returned func removes fn; it is safe to call more than once.
func (a *Authenticator) OnStateChange(fn func(State)) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners = append(a.listeners, listener{id: id, fn: fn})
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, l := range a.listeners {
			if l.id == id {
				a.listeners = append(a.listeners[:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetChallenge stores the verifier-issued challenge, replacing any earlier one.
func (a *Authenticator) SetChallenge(challengeHex string) error {
	if challengeHex == "" {
		return fmt.Errorf("%w: empty challenge", crypto.ErrDecode)
	}
	if _, err := crypto.DecodeHexBytes(challengeHex); err != nil {
		return err
	}
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return ErrTerminal
	}
	a.challenge = challengeHex
	a.transitionLocked(ChallengeReceived)
	return nil
}

// BuildResponse signs SHA-256 of the stored challenge and binds the
// signature to the local username. The challenge is consumed.
func (a *Authenticator) BuildResponse() (frame.AuthResponse, error) {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return frame.AuthResponse{}, ErrTerminal
	}
	if a.state != ChallengeReceived || a.challenge == "" {
		a.mu.Unlock()
		return frame.AuthResponse{}, ErrNoChallengeSet
	}

	digest, err := crypto.ChallengeDigest(a.challenge)
	if err != nil {
		a.mu.Unlock()
		return frame.AuthResponse{}, err
	}
	resp := frame.AuthResponse{
		Signature: crypto.Sign(a.id.KeyPair, digest),
		Username:  a.id.Username,
	}
	a.challenge = ""
	a.transitionLocked(ResponseSent)
	return resp, nil
}

// HandleResult applies the verifier's verdict to an outstanding response.
func (a *Authenticator) HandleResult(success bool) error {
	a.mu.Lock()
	switch {
	case a.state.Terminal():
		a.mu.Unlock()
		return ErrTerminal
	case a.state != ResponseSent:
		a.mu.Unlock()
		return ErrUnexpectedResult
	}
	next := Rejected
	if success {
		next = Authenticated
	}
	a.transitionLocked(next)
	return nil
}

// transitionLocked moves to next, releases the lock and notifies listeners.
func (a *Authenticator) transitionLocked(next State) {
	a.state = next
	listeners := make([]func(State), 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l.fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
