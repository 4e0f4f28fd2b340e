package auth

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"mchat/internal/crypto"
	"mchat/internal/domain"
)

// DefaultChallengeSize is the number of random bytes in a challenge.
const DefaultChallengeSize = 32

// NewChallenge reads size random bytes from r and returns them hex-encoded.
func NewChallenge(r io.Reader, size int) (string, error) {
	if size <= 0 {
		size = DefaultChallengeSize
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("auth: challenge: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// VerifyResponse reports whether sig is a valid signature over the
// challenge's SHA-256 digest under the claimed public key.
func VerifyResponse(challengeHex string, sig *big.Int, claimed domain.PublicKey) bool {
	digest, err := crypto.ChallengeDigest(challengeHex)
	if err != nil {
		return false
	}
	return crypto.Verify(digest, sig, claimed)
}
