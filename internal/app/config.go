package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/protocol/frame"
)

const (
	// ConfigFile is the config file name looked up inside the home directory.
	ConfigFile = "mchat.toml"

	defaultHomeDir       = ".mchat"
	defaultServerURL     = "ws://127.0.0.1:8080/chat"
	defaultLogLevel      = "INFO"
	defaultLookupTimeout = 10
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARN", "INFO", "DEBUG":
	case "WARNING":
		lvl = "WARN"
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Config holds runtime wiring options for building the app.
type Config struct {
	// Home is the directory holding credentials, e.g. $HOME/.mchat.
	Home string

	// ServerURL is the relay's WebSocket endpoint.
	ServerURL string

	// Username is the default local account.
	Username string

	// KeyBits is the modulus size for new key pairs.
	KeyBits int

	// LookupTimeout is the number of seconds a public key lookup may wait
	// for the relay.
	LookupTimeout int

	Logging *Logging
}

// FixupAndValidate applies defaults to config entries and validates them.
func (c *Config) FixupAndValidate() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: resolve home: %w", err)
		}
		c.Home = filepath.Join(dir, defaultHomeDir)
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("config: ServerURL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("config: ServerURL '%v' must use ws or wss", c.ServerURL)
	}
	if c.Username != "" {
		if err := frame.ValidateUsername(domain.Username(c.Username)); err != nil {
			return fmt.Errorf("config: Username: %w", err)
		}
	}
	switch {
	case c.KeyBits == 0:
		c.KeyBits = crypto.DefaultKeyBits
	case c.KeyBits < crypto.MinIdentityKeyBits || c.KeyBits%2 != 0:
		return fmt.Errorf("config: KeyBits %d is invalid (need an even size of at least %d)",
			c.KeyBits, crypto.MinIdentityKeyBits)
	}
	switch {
	case c.LookupTimeout == 0:
		c.LookupTimeout = defaultLookupTimeout
	case c.LookupTimeout < 0:
		return errors.New("config: LookupTimeout must be positive")
	}
	if c.Logging == nil {
		c.Logging = &Logging{Level: defaultLogLevel}
	}
	return c.Logging.validate()
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

// LoadHome reads ConfigFile from home if present and falls back to defaults
// otherwise. An empty home means $HOME/.mchat.
func LoadHome(home string) (*Config, error) {
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home: %w", err)
		}
		home = filepath.Join(dir, defaultHomeDir)
	}

	cfg := new(Config)
	b, err := os.ReadFile(filepath.Join(home, ConfigFile))
	switch {
	case err == nil:
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", ConfigFile, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	if cfg.Home == "" {
		cfg.Home = home
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
