// Package identity manages creation, encryption and loading of local RSA
// identities.
//
// It enforces passphrase policy, generates key pairs, and persists them via
// the domain.KeyPairStore. One home directory may hold several identities,
// each keyed by username.
package identity
