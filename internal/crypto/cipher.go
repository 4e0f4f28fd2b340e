package crypto

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"mchat/internal/domain"
)

const (
	// ChunkLimit is the largest plaintext, in bytes, encrypted as one block.
	// It must stay well below the modulus byte length.
	ChunkLimit = 100

	// ChunkedPrefix marks a ciphertext made of several encrypted blocks.
	ChunkedPrefix = "CHUNKED:"

	// ChunkSeparator joins the hex blocks of a chunked ciphertext.
	ChunkSeparator = "|"
)

var (
	// ErrMessageTooLarge is returned when a plaintext integer is not below
	// the recipient's modulus.
	ErrMessageTooLarge = errors.New("crypto: message too large for key")

	// ErrDecode is returned for ciphertexts that are not valid hex or have
	// a malformed chunk structure.
	ErrDecode = errors.New("crypto: malformed ciphertext")
)

// Sign returns digest^d mod n.
func Sign(kp domain.KeyPair, digest *big.Int) *big.Int {
	return new(big.Int).Exp(digest, kp.D, kp.N)
}

// Verify reports whether sig^e mod n equals digest under pub.
func Verify(digest, sig *big.Int, pub domain.PublicKey) bool {
	if digest == nil || sig == nil || ValidatePublicKey(pub) != nil {
		return false
	}
	if sig.Sign() < 0 || sig.Cmp(pub.N) >= 0 {
		return false
	}
	return new(big.Int).Exp(sig, pub.E, pub.N).Cmp(digest) == 0
}

// Encrypt encrypts plaintext as a single block and returns it as hex.
//
// plaintext is read as an unsigned big-endian integer, which must be smaller
// than the modulus.
func Encrypt(plaintext []byte, pub domain.PublicKey) (string, error) {
	if err := ValidatePublicKey(pub); err != nil {
		return "", err
	}
	m := new(big.Int).SetBytes(plaintext)
	if m.Cmp(pub.N) >= 0 {
		return "", fmt.Errorf("%w: %d bytes for a %d-bit modulus",
			ErrMessageTooLarge, len(plaintext), pub.N.BitLen())
	}
	return EncodeHex(new(big.Int).Exp(m, pub.E, pub.N)), nil
}

// Decrypt reverses Encrypt with the local key pair.
func Decrypt(kp domain.KeyPair, ciphertext string) ([]byte, error) {
	if err := ValidatePublicKey(kp.Public()); err != nil {
		return nil, err
	}
	c, err := ParseHex(ciphertext)
	if err != nil {
		return nil, err
	}
	if c.Cmp(kp.N) >= 0 {
		return nil, fmt.Errorf("%w: block exceeds modulus", ErrDecode)
	}
	return new(big.Int).Exp(c, kp.D, kp.N).Bytes(), nil
}

// EncryptLong encrypts plaintext of any length.
//
// Payloads up to ChunkLimit bytes produce a single hex block. Longer payloads
// are split into ChunkLimit-sized pieces, each encrypted on its own and
// joined as ChunkedPrefix + c1 | c2 | ...
func EncryptLong(plaintext []byte, pub domain.PublicKey) (string, error) {
	if len(plaintext) <= ChunkLimit {
		return Encrypt(plaintext, pub)
	}
	if err := ValidatePublicKey(pub); err != nil {
		return "", err
	}
	if pub.Size() <= ChunkLimit {
		return "", fmt.Errorf("%w: %d-byte modulus cannot hold %d-byte chunks",
			ErrMessageTooLarge, pub.Size(), ChunkLimit)
	}

	chunks := SplitChunks(plaintext, ChunkLimit)
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		block, err := Encrypt(chunk, pub)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return ChunkedPrefix + strings.Join(blocks, ChunkSeparator), nil
}

// DecryptLong reverses EncryptLong, accepting both single-block and chunked
// ciphertexts.
func DecryptLong(kp domain.KeyPair, ciphertext string) ([]byte, error) {
	body, chunked := strings.CutPrefix(ciphertext, ChunkedPrefix)
	if !chunked {
		return Decrypt(kp, ciphertext)
	}

	blocks := strings.Split(body, ChunkSeparator)
	out := make([]byte, 0, len(blocks)*ChunkLimit)
	for i, block := range blocks {
		if block == "" {
			return nil, fmt.Errorf("%w: empty chunk %d", ErrDecode, i)
		}
		pt, err := Decrypt(kp, block)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		out = append(out, pt...)
	}
	return out, nil
}

// SplitChunks cuts p into consecutive pieces of at most limit bytes.
// The final piece may be shorter. An empty p yields one empty piece.
func SplitChunks(p []byte, limit int) [][]byte {
	if limit <= 0 || len(p) <= limit {
		return [][]byte{p}
	}
	chunks := make([][]byte, 0, (len(p)+limit-1)/limit)
	for start := 0; start < len(p); start += limit {
		end := min(start+limit, len(p))
		chunks = append(chunks, p[start:end])
	}
	return chunks
}
