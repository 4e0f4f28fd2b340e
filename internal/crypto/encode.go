package crypto

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// EncodeHex renders x as lowercase hex without prefix or padding.
func EncodeHex(x *big.Int) string { return x.Text(16) }

// ParseHex parses an unsigned hex integer as written by EncodeHex.
func ParseHex(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty value", ErrDecode)
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return nil, fmt.Errorf("%w: invalid hex %q", ErrDecode, s)
		}
	}
	x, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%w: invalid hex %q", ErrDecode, s)
	}
	return x, nil
}

// DecodeHexBytes decodes an even-length hex string into bytes.
func DecodeHexBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
