package auth_test

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/protocol/auth"
)

func makeIdentity(t *testing.T, name string) domain.Identity {
	t.Helper()
	kp, err := crypto.GenerateKeyPair(512)
	require.NoError(t, err)
	return domain.Identity{Username: domain.Username(name), KeyPair: kp}
}

func TestBuildResponse_WithoutChallenge(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))

	_, err := a.BuildResponse()
	require.ErrorIs(t, err, auth.ErrNoChallengeSet)
	require.Equal(t, auth.Idle, a.State())
}

func TestHandshake_Success(t *testing.T) {
	alice := makeIdentity(t, "alice")
	a := auth.New(alice)

	require.NoError(t, a.SetChallenge("ab12"))
	require.Equal(t, auth.ChallengeReceived, a.State())

	resp, err := a.BuildResponse()
	require.NoError(t, err)
	require.Equal(t, auth.ResponseSent, a.State())
	require.Equal(t, alice.Username, resp.Username)
	require.True(t, auth.VerifyResponse("ab12", resp.Signature, alice.KeyPair.Public()))

	require.NoError(t, a.HandleResult(true))
	require.Equal(t, auth.Authenticated, a.State())
	require.True(t, a.State().Terminal())
}

func TestHandshake_Rejected(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))
	require.NoError(t, a.SetChallenge("00"))
	_, err := a.BuildResponse()
	require.NoError(t, err)

	require.NoError(t, a.HandleResult(false))
	require.Equal(t, auth.Rejected, a.State())

	require.ErrorIs(t, a.SetChallenge("ab12"), auth.ErrTerminal)
	_, err = a.BuildResponse()
	require.ErrorIs(t, err, auth.ErrTerminal)
	require.ErrorIs(t, a.HandleResult(true), auth.ErrTerminal)
}

func TestChallengeIsConsumed(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))
	require.NoError(t, a.SetChallenge("ab12"))
	_, err := a.BuildResponse()
	require.NoError(t, err)

	_, err = a.BuildResponse()
	require.ErrorIs(t, err, auth.ErrNoChallengeSet)
}

func TestSetChallenge_Overwrites(t *testing.T) {
	alice := makeIdentity(t, "alice")
	a := auth.New(alice)
	require.NoError(t, a.SetChallenge("aaaa"))
	require.NoError(t, a.SetChallenge("bbbb"))

	resp, err := a.BuildResponse()
	require.NoError(t, err)
	require.True(t, auth.VerifyResponse("bbbb", resp.Signature, alice.KeyPair.Public()))
	require.False(t, auth.VerifyResponse("aaaa", resp.Signature, alice.KeyPair.Public()))
}

func TestSetChallenge_Malformed(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))
	for _, bad := range []string{"", "abc", "zz"} {
		require.ErrorIs(t, a.SetChallenge(bad), crypto.ErrDecode, "%q", bad)
	}
	require.Equal(t, auth.Idle, a.State())
}

func TestHandleResult_Unexpected(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))
	require.ErrorIs(t, a.HandleResult(true), auth.ErrUnexpectedResult)

	require.NoError(t, a.SetChallenge("ab12"))
	require.ErrorIs(t, a.HandleResult(true), auth.ErrUnexpectedResult)
	require.Equal(t, auth.ChallengeReceived, a.State())
}

func TestOnStateChange(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))

	var (
		mu   sync.Mutex
		seen []auth.State
	)
	a.OnStateChange(func(s auth.State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	require.NoError(t, a.SetChallenge("ab12"))
	_, err := a.BuildResponse()
	require.NoError(t, err)
	require.NoError(t, a.HandleResult(true))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []auth.State{auth.ChallengeReceived, auth.ResponseSent, auth.Authenticated}, seen)
}

func TestOnStateChange_Unsubscribe(t *testing.T) {
	a := auth.New(makeIdentity(t, "alice"))

	var kept, dropped int
	a.OnStateChange(func(auth.State) { kept++ })
	unsubscribe := a.OnStateChange(func(auth.State) { dropped++ })

	require.NoError(t, a.SetChallenge("ab12"))
	unsubscribe()
	unsubscribe()

	_, err := a.BuildResponse()
	require.NoError(t, err)
	require.NoError(t, a.HandleResult(false))

	require.Equal(t, 3, kept)
	require.Equal(t, 1, dropped)
}

func TestVerifyResponse_WrongKeyOrSignature(t *testing.T) {
	alice := makeIdentity(t, "alice")
	mallory := makeIdentity(t, "mallory")

	challenge, err := auth.NewChallenge(rand.Reader, 0)
	require.NoError(t, err)
	require.Len(t, challenge, 2*auth.DefaultChallengeSize)

	a := auth.New(alice)
	require.NoError(t, a.SetChallenge(challenge))
	resp, err := a.BuildResponse()
	require.NoError(t, err)

	require.True(t, auth.VerifyResponse(challenge, resp.Signature, alice.KeyPair.Public()))
	require.False(t, auth.VerifyResponse(challenge, resp.Signature, mallory.KeyPair.Public()))
	require.False(t, auth.VerifyResponse(challenge, new(big.Int).Add(resp.Signature, big.NewInt(1)),
		alice.KeyPair.Public()))
	require.False(t, auth.VerifyResponse("not-hex", resp.Signature, alice.KeyPair.Public()))
}

func TestNewChallenge_Fresh(t *testing.T) {
	c1, err := auth.NewChallenge(rand.Reader, 16)
	require.NoError(t, err)
	c2, err := auth.NewChallenge(rand.Reader, 16)
	require.NoError(t, err)
	require.NotEqual(t, c1, c2)

	_, err = auth.NewChallenge(bytes.NewReader([]byte{1, 2}), 16)
	require.Error(t, err)
}
