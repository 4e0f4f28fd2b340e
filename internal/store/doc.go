// Package store provides file-based persistence for MChat credentials.
//
// KeyPairFileStore keeps every local account's RSA key pair in a single JSON
// document under the configured home directory. Public components are stored
// as hex; the private exponent is sealed with a passphrase-derived key.
// All methods are concurrency-safe via internal locking.
package store
