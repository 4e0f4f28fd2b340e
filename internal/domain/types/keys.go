package types

import "math/big"

// PublicKey is the public half (n, e) of an RSA key pair.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// Size returns the modulus length in bytes.
func (p PublicKey) Size() int {
	if p.N == nil {
		return 0
	}
	return (p.N.BitLen() + 7) / 8
}

// Equal reports whether p and o carry the same modulus and exponent.
func (p PublicKey) Equal(o PublicKey) bool {
	if p.N == nil || p.E == nil || o.N == nil || o.E == nil {
		return false
	}
	return p.N.Cmp(o.N) == 0 && p.E.Cmp(o.E) == 0
}

// KeyPair is an RSA modulus with its public and private exponents.
//
// E and D are inverses modulo (p-1)(q-1) for the discarded prime factors of N.
type KeyPair struct {
	N *big.Int
	E *big.Int
	D *big.Int
}

// Public returns the public half of the key pair.
func (k KeyPair) Public() PublicKey {
	return PublicKey{N: k.N, E: k.E}
}

// PublicKeyRecord is a peer's public key as served by the key directory.
type PublicKeyRecord struct {
	Username Username
	Key      PublicKey
}
