package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"mchat/internal/domain"
)

const (
	// DefaultKeyBits is the modulus size used for new identities.
	DefaultKeyBits = 1024

	// MinIdentityKeyBits is the smallest modulus accepted for a chat
	// identity. Its byte length stays well above ChunkLimit, so every
	// chunk of a long message fits in one block.
	MinIdentityKeyBits = 1024

	// DefaultPublicExponent is the first candidate tried for e.
	DefaultPublicExponent = 65537

	minKeyBits = 64
)

var (
	// ErrKeyGen is returned when prime generation or inversion fails.
	ErrKeyGen = errors.New("crypto: key generation failed")

	// ErrInvalidKey is returned for keys that are missing components or do
	// not round-trip.
	ErrInvalidKey = errors.New("crypto: invalid key")

	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// GenerateKeyPair returns a fresh key pair with a bits-long modulus.
func GenerateKeyPair(bits int) (domain.KeyPair, error) {
	return GenerateKeyPairFrom(rand.Reader, bits)
}

// GenerateKeyPairFrom draws the key pair's primes from random.
func GenerateKeyPairFrom(random io.Reader, bits int) (domain.KeyPair, error) {
	if bits < minKeyBits || bits%2 != 0 {
		return domain.KeyPair{}, fmt.Errorf("%w: unsupported modulus size %d", ErrKeyGen, bits)
	}

	p, err := rand.Prime(random, bits/2)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGen, err)
	}
	var q *big.Int
	for q == nil || q.Cmp(p) == 0 {
		if q, err = rand.Prime(random, bits/2); err != nil {
			return domain.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGen, err)
		}
	}

	n := new(big.Int).Mul(p, q)
	totient := new(big.Int).Mul(
		new(big.Int).Sub(p, bigOne),
		new(big.Int).Sub(q, bigOne),
	)

	// e stays odd; it only moves off 65537 when that shares a factor with the totient.
	e := big.NewInt(DefaultPublicExponent)
	gcd := new(big.Int)
	for gcd.GCD(nil, nil, e, totient).Cmp(bigOne) != 0 {
		e.Add(e, bigTwo)
	}

	d := new(big.Int).ModInverse(e, totient)
	if d == nil {
		return domain.KeyPair{}, fmt.Errorf("%w: public exponent has no inverse", ErrKeyGen)
	}
	return domain.KeyPair{N: n, E: e, D: d}, nil
}

// ValidateKeyPair checks that kp is complete and that its exponents invert
// each other on a probe value.
func ValidateKeyPair(kp domain.KeyPair) error {
	if err := ValidatePublicKey(kp.Public()); err != nil {
		return err
	}
	if kp.D == nil || kp.D.Cmp(bigOne) <= 0 {
		return fmt.Errorf("%w: missing private exponent", ErrInvalidKey)
	}
	probe := big.NewInt(2)
	c := new(big.Int).Exp(probe, kp.E, kp.N)
	if new(big.Int).Exp(c, kp.D, kp.N).Cmp(probe) != 0 {
		return fmt.Errorf("%w: exponents do not match modulus", ErrInvalidKey)
	}
	return nil
}

// ValidatePublicKey checks that pub has a usable modulus and exponent.
func ValidatePublicKey(pub domain.PublicKey) error {
	if pub.N == nil || pub.N.Cmp(bigTwo) <= 0 {
		return fmt.Errorf("%w: missing modulus", ErrInvalidKey)
	}
	if pub.E == nil || pub.E.Cmp(bigOne) <= 0 {
		return fmt.Errorf("%w: missing public exponent", ErrInvalidKey)
	}
	return nil
}
