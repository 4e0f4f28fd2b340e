package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mchat/internal/crypto"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]byte(`Home = "/tmp/mchat-test"`))
	require.NoError(t, err)
	require.Equal(t, "/tmp/mchat-test", cfg.Home)
	require.Equal(t, defaultServerURL, cfg.ServerURL)
	require.Equal(t, crypto.DefaultKeyBits, cfg.KeyBits)
	require.Equal(t, 10, cfg.LookupTimeout)
	require.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load([]byte(`
Home = "/tmp/mchat-test"
ServerURL = "wss://chat.example.org/chat"
Username = "alice"
KeyBits = 2048
LookupTimeout = 3

[Logging]
File = "/tmp/mchat.log"
Level = "warning"
`))
	require.NoError(t, err)
	require.Equal(t, "wss://chat.example.org/chat", cfg.ServerURL)
	require.Equal(t, "alice", cfg.Username)
	require.Equal(t, 2048, cfg.KeyBits)
	require.Equal(t, 3, cfg.LookupTimeout)
	require.Equal(t, "WARN", cfg.Logging.Level)
	require.Equal(t, "/tmp/mchat.log", cfg.Logging.File)
}

func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"scheme":   `Home = "/x"` + "\n" + `ServerURL = "http://127.0.0.1/chat"`,
		"username": `Home = "/x"` + "\n" + `Username = "a:b"`,
		"bits":     `Home = "/x"` + "\n" + `KeyBits = 100`,
		"small":    `Home = "/x"` + "\n" + `KeyBits = 512`,
		"odd":      `Home = "/x"` + "\n" + `KeyBits = 1025`,
		"timeout":  `Home = "/x"` + "\n" + `LookupTimeout = -1`,
		"level":    "Home = \"/x\"\n[Logging]\nLevel = \"LOUD\"",
		"toml":     `Home = `,
	} {
		_, err := Load([]byte(body))
		require.Error(t, err, name)
	}
}

func TestLoad_MinimumKeyBitsCarriesLongMessages(t *testing.T) {
	cfg, err := Load([]byte(`Home = "/x"` + "\n" + `KeyBits = 1024`))
	require.NoError(t, err)

	kp, err := crypto.GenerateKeyPair(cfg.KeyBits)
	require.NoError(t, err)
	msg := bytes.Repeat([]byte("m"), 2*crypto.ChunkLimit+30)
	ct, err := crypto.EncryptLong(msg, kp.Public())
	require.NoError(t, err)
	pt, err := crypto.DecryptLong(kp, ct)
	require.NoError(t, err)
	require.Equal(t, msg, pt)
}

func TestLoadHome(t *testing.T) {
	home := t.TempDir()

	cfg, err := LoadHome(home)
	require.NoError(t, err)
	require.Equal(t, home, cfg.Home)

	require.NoError(t, os.WriteFile(filepath.Join(home, ConfigFile), []byte(`Username = "bob"`), 0o600))
	cfg, err = LoadHome(home)
	require.NoError(t, err)
	require.Equal(t, home, cfg.Home)
	require.Equal(t, "bob", cfg.Username)
}

func TestNewLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mchat.log")
	l, closer, err := NewLogger(&Logging{File: file, Level: "DEBUG"})
	require.NoError(t, err)
	require.NotNil(t, closer)
	l.Debug("hello", "k", "v")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(b), "hello")

	_, closer, err = NewLogger(&Logging{Disable: true})
	require.NoError(t, err)
	require.Nil(t, closer)
}
