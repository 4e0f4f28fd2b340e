package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"mchat/internal/domain"
)

// ChallengeDigest hashes the decoded challenge bytes with SHA-256 and returns
// the digest as an unsigned integer, ready for Sign or Verify.
func ChallengeDigest(challengeHex string) (*big.Int, error) {
	raw, err := DecodeHexBytes(challengeHex)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return new(big.Int).SetBytes(sum[:]), nil
}

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes n || e with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub domain.PublicKey) domain.Fingerprint {
	h := sha256.New()
	if pub.N != nil {
		h.Write(pub.N.Bytes())
	}
	h.Write([]byte{':'})
	if pub.E != nil {
		h.Write(pub.E.Bytes())
	}
	sum := h.Sum(nil)
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}
