package message_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/services/message"
)

var (
	keysOnce   sync.Once
	alice, bob domain.Identity
	keysErr    error
)

func identities(t *testing.T) (domain.Identity, domain.Identity) {
	t.Helper()
	keysOnce.Do(func() {
		var a, b domain.KeyPair
		if a, keysErr = crypto.GenerateKeyPair(1024); keysErr != nil {
			return
		}
		if b, keysErr = crypto.GenerateKeyPair(1024); keysErr != nil {
			return
		}
		alice = domain.Identity{Username: "alice", KeyPair: a}
		bob = domain.Identity{Username: "bob", KeyPair: b}
	})
	require.NoError(t, keysErr)
	return alice, bob
}

type staticDirectory map[domain.Username]domain.PublicKeyRecord

func (d staticDirectory) Lookup(_ context.Context, u domain.Username) (domain.PublicKeyRecord, error) {
	rec, ok := d[u]
	if !ok {
		return domain.PublicKeyRecord{}, errors.New("not found")
	}
	return rec, nil
}

func (staticDirectory) Preload(domain.Username) {}

func quiet() message.Option { return message.WithLogger(log.New(io.Discard)) }

func TestSealOpen_RoundTrip(t *testing.T) {
	a, b := identities(t)
	dir := staticDirectory{"bob": b.PublicRecord()}
	sender := message.New(a, dir, quiet(), message.WithClock(func() time.Time { return time.UnixMilli(1700) }))
	receiver := message.New(b, staticDirectory{}, quiet())

	for _, text := range []string{"hi bob", strings.Repeat("long message ", 40)} {
		env, err := sender.Compose(context.Background(), "bob", []byte(text))
		require.NoError(t, err)
		require.Equal(t, domain.Username("alice"), env.Sender)
		require.Equal(t, domain.Username("bob"), env.Recipient)
		require.Equal(t, int64(1700), env.Timestamp)

		got := receiver.OpenMessage(env)
		require.False(t, got.Failed)
		require.Equal(t, text, string(got.Plaintext))
		require.Equal(t, domain.Username("alice"), got.From)
	}
}

func TestSeal_LongMessageIsChunked(t *testing.T) {
	a, b := identities(t)
	sender := message.New(a, staticDirectory{"bob": b.PublicRecord()}, quiet())

	ct, err := sender.SealMessage(context.Background(), "bob", []byte(strings.Repeat("x", 250)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ct, crypto.ChunkedPrefix))
	require.Len(t, strings.Split(strings.TrimPrefix(ct, crypto.ChunkedPrefix), crypto.ChunkSeparator), 3)
}

func TestSeal_UnknownPeer(t *testing.T) {
	a, _ := identities(t)
	sender := message.New(a, staticDirectory{}, quiet())

	_, err := sender.SealMessage(context.Background(), "carol", []byte("hi"))
	require.Error(t, err)

	_, err = sender.SealMessage(context.Background(), "", []byte("hi"))
	require.ErrorIs(t, err, message.ErrNoRecipient)
}

func TestOpen_FailureMarker(t *testing.T) {
	a, b := identities(t)
	// Sealed for bob, opened by alice.
	sender := message.New(a, staticDirectory{"bob": b.PublicRecord()}, quiet())
	wrongReader := message.New(a, staticDirectory{}, quiet())

	env, err := sender.Compose(context.Background(), "bob", []byte("secret"))
	require.NoError(t, err)
	got := wrongReader.OpenMessage(env)
	if !got.Failed {
		// Textbook RSA with the wrong key yields garbage rather than an error.
		require.NotEqual(t, "secret", string(got.Plaintext))
	}

	for _, content := range []string{"not hex at all", "CHUNKED:ab||cd", ""} {
		got := wrongReader.OpenMessage(domain.Envelope{Sender: "bob", Content: content})
		require.True(t, got.Failed, content)
		require.Equal(t, message.FailureMarker, string(got.Plaintext))
	}
}
