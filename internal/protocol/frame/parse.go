package frame

import (
	"fmt"
	"strings"

	"mchat/internal/crypto"
	"mchat/internal/domain"
)

type command struct {
	prefix string
	// exact commands carry no fields and must match the whole frame.
	exact bool
	parse func(body string) (Frame, error)
}

// commands is matched in order and the first match wins. No prefix here is
// a prefix of another entry, so the order only matters for readability.
var commands = []command{
	{prefix: "auth-request", exact: true, parse: func(string) (Frame, error) { return AuthRequest{}, nil }},
	{prefix: "challenge:", parse: parseChallenge},
	{prefix: "auth-response:", parse: parseAuthResponse},
	{prefix: "auth-success", exact: true, parse: func(string) (Frame, error) { return AuthSuccess{}, nil }},
	{prefix: "auth-failure", exact: true, parse: func(string) (Frame, error) { return AuthFailure{}, nil }},
	{prefix: "get-public-key:", parse: func(b string) (Frame, error) {
		u, err := parseUsername(b)
		return GetPublicKey{Username: u}, err
	}},
	{prefix: "public-key-not-found:", parse: func(b string) (Frame, error) {
		u, err := parseUsername(b)
		return PublicKeyNotFound{Username: u}, err
	}},
	{prefix: "public-key:", parse: func(b string) (Frame, error) {
		r, err := parseRecord(b)
		return PublicKey{Record: r}, err
	}},
	{prefix: "check-username:", parse: func(b string) (Frame, error) {
		u, err := parseUsername(b)
		return CheckUsername{Username: u}, err
	}},
	{prefix: "username-exists", exact: true, parse: func(string) (Frame, error) { return UsernameExists{}, nil }},
	{prefix: "username-available", exact: true, parse: func(string) (Frame, error) { return UsernameAvailable{}, nil }},
	{prefix: "register:", parse: func(b string) (Frame, error) {
		r, err := parseRecord(b)
		return Register{Record: r}, err
	}},
	{prefix: "register-success", exact: true, parse: func(string) (Frame, error) { return RegisterSuccess{}, nil }},
	{prefix: "register-failure:", parse: func(b string) (Frame, error) { return RegisterFailure{Reason: b}, nil }},
}

// Parse converts a transport frame into its typed form.
//
// Text matching no command is returned as Chat. A known command with bad
// fields returns ErrMalformed and a nil Frame.
func Parse(text string) (Frame, error) {
	for _, c := range commands {
		if c.exact {
			if text != c.prefix {
				continue
			}
			return c.parse("")
		}
		body, ok := strings.CutPrefix(text, c.prefix)
		if !ok {
			continue
		}
		f, err := c.parse(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, strings.TrimSuffix(c.prefix, ":"), err)
		}
		return f, nil
	}
	return Chat{Text: text}, nil
}

func parseChallenge(body string) (Frame, error) {
	if _, err := crypto.DecodeHexBytes(body); err != nil || body == "" {
		return nil, fmt.Errorf("challenge is not hex")
	}
	return Challenge{Hex: strings.ToLower(body)}, nil
}

func parseAuthResponse(body string) (Frame, error) {
	sigHex, user, ok := strings.Cut(body, ":")
	if !ok {
		return nil, fmt.Errorf("want <signature>:<username>")
	}
	sig, err := crypto.ParseHex(sigHex)
	if err != nil {
		return nil, err
	}
	u, err := parseUsername(user)
	if err != nil {
		return nil, err
	}
	return AuthResponse{Signature: sig, Username: u}, nil
}

func parseUsername(s string) (domain.Username, error) {
	u := domain.Username(s)
	if err := ValidateUsername(u); err != nil {
		return "", err
	}
	return u, nil
}

func parseRecord(body string) (domain.PublicKeyRecord, error) {
	parts := strings.Split(body, ":")
	if len(parts) != 3 {
		return domain.PublicKeyRecord{}, fmt.Errorf("want <username>:<n>:<e>, got %d fields", len(parts))
	}
	u, err := parseUsername(parts[0])
	if err != nil {
		return domain.PublicKeyRecord{}, err
	}
	n, err := crypto.ParseHex(parts[1])
	if err != nil {
		return domain.PublicKeyRecord{}, err
	}
	e, err := crypto.ParseHex(parts[2])
	if err != nil {
		return domain.PublicKeyRecord{}, err
	}
	return domain.PublicKeyRecord{Username: u, Key: domain.PublicKey{N: n, E: e}}, nil
}
