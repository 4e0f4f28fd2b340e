package store

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the sealed blob format stored on disk.
	sealedFormatVersion = 1
)

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// sealed private key has been modified or corrupted.
	ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted credentials")
)

// scryptParams are the key derivation tunables recorded in every blob.
type scryptParams struct {
	N, R, P int
}

func defaultScryptParams() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

// sealed is the JSON structure holding a ciphertext and its KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw. ad is bound into the
// AEAD so a blob cannot be moved to another account.
func seal(passphrase string, raw, ad []byte, params scryptParams) (sealed, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return sealed{}, err
	}
	aead, err := deriveAEAD(passphrase, salt[:], params)
	if err != nil {
		return sealed{}, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; the salt-bound key is never reused
	return sealed{
		V:      sealedFormatVersion,
		Salt:   salt[:],
		N:      params.N,
		R:      params.R,
		P:      params.P,
		Cipher: aead.Seal(nil, nonce[:], raw, additionalData(salt[:], ad)),
	}, nil
}

// open decrypts s with a key derived from passphrase.
func open(passphrase string, s sealed, ad []byte) ([]byte, error) {
	if s.V > sealedFormatVersion {
		return nil, fmt.Errorf("store: unsupported sealed format version %d", s.V)
	}
	aead, err := deriveAEAD(passphrase, s.Salt, scryptParams{N: s.N, R: s.R, P: s.P})
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], s.Cipher, additionalData(s.Salt, ad))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func deriveAEAD(passphrase string, salt []byte, params scryptParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, params.N, params.R, params.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}
	return chacha20poly1305.New(key)
}

func additionalData(salt, ad []byte) []byte {
	out := make([]byte, 0, len(salt)+len(ad))
	return append(append(out, salt...), ad...)
}
