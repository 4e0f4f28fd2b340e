package frame

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"mchat/internal/crypto"
	"mchat/internal/domain"
)

// Kind identifies the type of a parsed frame.
type Kind int

const (
	KindChat Kind = iota
	KindAuthRequest
	KindChallenge
	KindAuthResponse
	KindAuthSuccess
	KindAuthFailure
	KindGetPublicKey
	KindPublicKey
	KindPublicKeyNotFound
	KindCheckUsername
	KindUsernameExists
	KindUsernameAvailable
	KindRegister
	KindRegisterSuccess
	KindRegisterFailure
)

var kindNames = [...]string{
	KindChat:              "chat",
	KindAuthRequest:       "auth-request",
	KindChallenge:         "challenge",
	KindAuthResponse:      "auth-response",
	KindAuthSuccess:       "auth-success",
	KindAuthFailure:       "auth-failure",
	KindGetPublicKey:      "get-public-key",
	KindPublicKey:         "public-key",
	KindPublicKeyNotFound: "public-key-not-found",
	KindCheckUsername:     "check-username",
	KindUsernameExists:    "username-exists",
	KindUsernameAvailable: "username-available",
	KindRegister:          "register",
	KindRegisterSuccess:   "register-success",
	KindRegisterFailure:   "register-failure",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

var (
	// ErrMalformed is returned when a frame starts with a known command but
	// its fields cannot be parsed.
	ErrMalformed = errors.New("frame: malformed")

	// ErrInvalidUsername is returned for usernames that cannot be framed.
	ErrInvalidUsername = errors.New("frame: invalid username")
)

// Frame is one protocol message. String encodes it for the wire.
type Frame interface {
	Kind() Kind
	String() string
}

type (
	AuthRequest struct{}

	Challenge struct {
		Hex string
	}

	AuthResponse struct {
		Signature *big.Int
		Username  domain.Username
	}

	AuthSuccess struct{}

	AuthFailure struct{}

	GetPublicKey struct {
		Username domain.Username
	}

	// PublicKey is the directory's answer for a known username.
	PublicKey struct {
		Record domain.PublicKeyRecord
	}

	PublicKeyNotFound struct {
		Username domain.Username
	}

	CheckUsername struct {
		Username domain.Username
	}

	UsernameExists struct{}

	UsernameAvailable struct{}

	Register struct {
		Record domain.PublicKeyRecord
	}

	RegisterSuccess struct{}

	RegisterFailure struct {
		Reason string
	}

	// Chat is any text that is not a protocol command.
	Chat struct {
		Text string
	}
)

func (AuthRequest) Kind() Kind       { return KindAuthRequest }
func (Challenge) Kind() Kind         { return KindChallenge }
func (AuthResponse) Kind() Kind      { return KindAuthResponse }
func (AuthSuccess) Kind() Kind       { return KindAuthSuccess }
func (AuthFailure) Kind() Kind       { return KindAuthFailure }
func (GetPublicKey) Kind() Kind      { return KindGetPublicKey }
func (PublicKey) Kind() Kind         { return KindPublicKey }
func (PublicKeyNotFound) Kind() Kind { return KindPublicKeyNotFound }
func (CheckUsername) Kind() Kind     { return KindCheckUsername }
func (UsernameExists) Kind() Kind    { return KindUsernameExists }
func (UsernameAvailable) Kind() Kind { return KindUsernameAvailable }
func (Register) Kind() Kind          { return KindRegister }
func (RegisterSuccess) Kind() Kind   { return KindRegisterSuccess }
func (RegisterFailure) Kind() Kind   { return KindRegisterFailure }
func (Chat) Kind() Kind              { return KindChat }

func (AuthRequest) String() string { return "auth-request" }

func (f Challenge) String() string { return "challenge:" + strings.ToLower(f.Hex) }

func (f AuthResponse) String() string {
	return "auth-response:" + crypto.EncodeHex(f.Signature) + ":" + f.Username.String()
}

func (AuthSuccess) String() string { return "auth-success" }

func (AuthFailure) String() string { return "auth-failure" }

func (f GetPublicKey) String() string { return "get-public-key:" + f.Username.String() }

func (f PublicKey) String() string { return "public-key:" + encodeRecord(f.Record) }

func (f PublicKeyNotFound) String() string {
	return "public-key-not-found:" + f.Username.String()
}

func (f CheckUsername) String() string { return "check-username:" + f.Username.String() }

func (UsernameExists) String() string { return "username-exists" }

func (UsernameAvailable) String() string { return "username-available" }

func (f Register) String() string { return "register:" + encodeRecord(f.Record) }

func (RegisterSuccess) String() string { return "register-success" }

func (f RegisterFailure) String() string { return "register-failure:" + f.Reason }

func (f Chat) String() string { return f.Text }

func encodeRecord(r domain.PublicKeyRecord) string {
	return r.Username.String() + ":" + crypto.EncodeHex(r.Key.N) + ":" + crypto.EncodeHex(r.Key.E)
}

// ValidateUsername reports whether u can travel inside a frame field.
func ValidateUsername(u domain.Username) error {
	s := u.String()
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if strings.ContainsAny(s, ":| \t\r\n") {
		return fmt.Errorf("%w: %q contains a separator or whitespace", ErrInvalidUsername, s)
	}
	return nil
}
