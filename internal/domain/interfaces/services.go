package interfaces

import (
	"context"

	domaintypes "mchat/internal/domain/types"
)

// IdentityService creates and loads the local identity.
type IdentityService interface {
	CreateIdentity(
		username domaintypes.Username,
		passphrase string,
	) (domaintypes.Identity, domaintypes.Fingerprint, error)
	LoadIdentity(username domaintypes.Username, passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(
		username domaintypes.Username,
		passphrase string,
	) (domaintypes.Fingerprint, error)
}

// KeyDirectory resolves peers' public keys.
type KeyDirectory interface {
	Lookup(ctx context.Context, username domaintypes.Username) (domaintypes.PublicKeyRecord, error)
	Preload(username domaintypes.Username)
}

// MessageService encrypts outgoing and decrypts incoming chat payloads.
type MessageService interface {
	SealMessage(ctx context.Context, peer domaintypes.Username, plaintext []byte) (string, error)
	OpenMessage(env domaintypes.Envelope) domaintypes.DecryptedMessage
}
