package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	identitysvc "mchat/internal/services/identity"
	"mchat/internal/store"
)

// Wire bundles the logger, store and services for the CLI.
type Wire struct {
	Log      *log.Logger
	Store    *store.KeyPairFileStore
	Identity *identitysvc.Service

	logFile io.Closer
}

// NewWire constructs the dependency graph from cfg. cfg must have passed
// FixupAndValidate.
func NewWire(cfg *Config) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	logger, closer, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	keyStore := store.NewKeyPairFileStore(cfg.Home)
	ids := identitysvc.New(keyStore,
		identitysvc.WithKeyBits(cfg.KeyBits),
		identitysvc.WithLogger(logger.WithPrefix("identity")),
	)

	return &Wire{
		Log:      logger,
		Store:    keyStore,
		Identity: ids,
		logFile:  closer,
	}, nil
}

// Close releases the log file, if any.
func (w *Wire) Close() error {
	if w.logFile == nil {
		return nil
	}
	return w.logFile.Close()
}

// NewLogger builds the root logger described by lCfg. The returned closer is
// non-nil when a log file was opened.
func NewLogger(lCfg *Logging) (*log.Logger, io.Closer, error) {
	if lCfg == nil {
		lCfg = &Logging{Level: defaultLogLevel}
	}
	if lCfg.Disable {
		return log.New(io.Discard), nil, nil
	}
	level, err := log.ParseLevel(strings.ToLower(lCfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("config: Logging: %w", err)
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if lCfg.File != "" {
		f, err := os.OpenFile(lCfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "mchat",
		Level:           level,
	}), closer, nil
}
