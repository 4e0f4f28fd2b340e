package domain

import (
	interfaces "mchat/internal/domain/interfaces"
	types "mchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username         = types.Username
	Fingerprint      = types.Fingerprint
	PublicKey        = types.PublicKey
	KeyPair          = types.KeyPair
	PublicKeyRecord  = types.PublicKeyRecord
	Identity         = types.Identity
	Envelope         = types.Envelope
	DecryptedMessage = types.DecryptedMessage
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyPairStore    = interfaces.KeyPairStore
	Transport       = interfaces.Transport
	IdentityService = interfaces.IdentityService
	KeyDirectory    = interfaces.KeyDirectory
	MessageService  = interfaces.MessageService
)
