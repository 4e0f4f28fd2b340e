package interfaces

import domaintypes "mchat/internal/domain/types"

// KeyPairStore persists key pairs by username, protected by a passphrase.
type KeyPairStore interface {
	SaveKeyPair(username domaintypes.Username, passphrase string, kp domaintypes.KeyPair) error
	LoadKeyPair(
		username domaintypes.Username,
		passphrase string,
	) (domaintypes.KeyPair, bool, error)
	HasKeyPair(username domaintypes.Username) (bool, error)
}
