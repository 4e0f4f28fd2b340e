package crypto_test

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mchat/internal/crypto"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kp := testKey(t)

	for i := 0; i < 20; i++ {
		m, err := rand.Int(rand.Reader, kp.N)
		require.NoError(t, err)

		ct, err := crypto.Encrypt(m.Bytes(), kp.Public())
		require.NoError(t, err)
		require.Equal(t, strings.ToLower(ct), ct)
		require.False(t, strings.HasPrefix(ct, "0x"))

		pt, err := crypto.Decrypt(kp, ct)
		require.NoError(t, err)
		require.Equal(t, 0, m.Cmp(new(big.Int).SetBytes(pt)))
	}
}

func TestEncrypt_EmptyPlaintextIsZero(t *testing.T) {
	kp := testKey(t)

	ct, err := crypto.Encrypt(nil, kp.Public())
	require.NoError(t, err)
	require.Equal(t, "0", ct)

	pt, err := crypto.Decrypt(kp, ct)
	require.NoError(t, err)
	require.Empty(t, pt)
}

func TestEncrypt_LeadingZerosAreDropped(t *testing.T) {
	kp := testKey(t)

	ct, err := crypto.Encrypt([]byte{0, 0, 'h', 'i'}, kp.Public())
	require.NoError(t, err)
	pt, err := crypto.Decrypt(kp, ct)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), pt)
}

func TestEncrypt_MessageTooLarge(t *testing.T) {
	kp := testKey(t)

	ct, err := crypto.Encrypt(kp.N.Bytes(), kp.Public())
	require.ErrorIs(t, err, crypto.ErrMessageTooLarge)
	require.Empty(t, ct)

	tooBig := bytes.Repeat([]byte{0xff}, kp.Public().Size())
	ct, err = crypto.Encrypt(tooBig, kp.Public())
	require.ErrorIs(t, err, crypto.ErrMessageTooLarge)
	require.Empty(t, ct)

	justBelow := new(big.Int).Sub(kp.N, big.NewInt(1))
	_, err = crypto.Encrypt(justBelow.Bytes(), kp.Public())
	require.NoError(t, err)
}

func TestDecrypt_Malformed(t *testing.T) {
	kp := testKey(t)

	for _, bad := range []string{"", "xyz", "12 34", "-5"} {
		_, err := crypto.Decrypt(kp, bad)
		require.ErrorIs(t, err, crypto.ErrDecode, "input %q", bad)
	}
	_, err := crypto.Decrypt(kp, crypto.EncodeHex(kp.N))
	require.ErrorIs(t, err, crypto.ErrDecode)
}

func TestSignVerify(t *testing.T) {
	kp := testKey(t)

	digest, err := crypto.ChallengeDigest("ab12")
	require.NoError(t, err)

	sig := crypto.Sign(kp, digest)
	require.True(t, crypto.Verify(digest, sig, kp.Public()))

	for _, bit := range []int{0, 7, 100, 255} {
		flipped := new(big.Int).SetBit(new(big.Int).Set(digest), bit, digest.Bit(bit)^1)
		require.False(t, crypto.Verify(flipped, sig, kp.Public()), "digest bit %d", bit)

		badSig := new(big.Int).SetBit(new(big.Int).Set(sig), bit, sig.Bit(bit)^1)
		require.False(t, crypto.Verify(digest, badSig, kp.Public()), "signature bit %d", bit)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	kp := testKey(t)
	other, err := crypto.GenerateKeyPair(crypto.DefaultKeyBits)
	require.NoError(t, err)

	digest, err := crypto.ChallengeDigest("00ff00ff")
	require.NoError(t, err)
	sig := crypto.Sign(kp, digest)

	require.False(t, crypto.Verify(digest, sig, other.Public()))
	require.False(t, crypto.Verify(digest, nil, kp.Public()))
}

func TestSplitChunks_Boundaries(t *testing.T) {
	exact := bytes.Repeat([]byte("a"), crypto.ChunkLimit)
	require.Len(t, crypto.SplitChunks(exact, crypto.ChunkLimit), 1)

	over := bytes.Repeat([]byte("a"), crypto.ChunkLimit+1)
	chunks := crypto.SplitChunks(over, crypto.ChunkLimit)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], crypto.ChunkLimit)
	require.Len(t, chunks[1], 1)

	require.Equal(t, [][]byte{{}}, crypto.SplitChunks([]byte{}, crypto.ChunkLimit))
}

func TestEncryptLong_RoundTrip(t *testing.T) {
	kp := testKey(t)

	sizes := []int{0, 1, crypto.ChunkLimit, crypto.ChunkLimit + 1, 3*crypto.ChunkLimit + 17}
	for _, n := range sizes {
		msg := []byte(strings.Repeat("hello, wörld ", n/13+1))[:n]

		ct, err := crypto.EncryptLong(msg, kp.Public())
		require.NoError(t, err)
		require.Equal(t, n > crypto.ChunkLimit, strings.HasPrefix(ct, crypto.ChunkedPrefix), "size %d", n)

		pt, err := crypto.DecryptLong(kp, ct)
		require.NoError(t, err)
		require.Equal(t, string(msg), string(pt), "size %d", n)
	}
}

func TestEncryptLong_ChunkCount(t *testing.T) {
	kp := testKey(t)

	msg := bytes.Repeat([]byte("x"), crypto.ChunkLimit+1)
	ct, err := crypto.EncryptLong(msg, kp.Public())
	require.NoError(t, err)

	body := strings.TrimPrefix(ct, crypto.ChunkedPrefix)
	require.Len(t, strings.Split(body, crypto.ChunkSeparator), 2)
}

func TestEncryptLong_SmallModulus(t *testing.T) {
	small, err := crypto.GenerateKeyPair(512)
	require.NoError(t, err)

	ct, err := crypto.EncryptLong(bytes.Repeat([]byte("x"), crypto.ChunkLimit+1), small.Public())
	require.ErrorIs(t, err, crypto.ErrMessageTooLarge)
	require.Empty(t, ct)
}

func TestDecryptLong_Malformed(t *testing.T) {
	kp := testKey(t)

	good, err := crypto.Encrypt([]byte("hi"), kp.Public())
	require.NoError(t, err)

	cases := []string{
		crypto.ChunkedPrefix,
		crypto.ChunkedPrefix + good + crypto.ChunkSeparator,
		crypto.ChunkedPrefix + good + crypto.ChunkSeparator + "nothex",
		"nothex",
	}
	for _, ct := range cases {
		_, err := crypto.DecryptLong(kp, ct)
		require.ErrorIs(t, err, crypto.ErrDecode, "ciphertext %q", ct)
	}
}
