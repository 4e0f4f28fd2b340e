package app

import (
	"context"
	"fmt"
	"time"

	"mchat/internal/client"
	"mchat/internal/domain"
	"mchat/internal/relay"
)

// App is the CLI's view of the configured environment.
type App struct {
	Config *Config
	*Wire
}

// New builds an App from a validated config.
func New(cfg *Config) (*App, error) {
	w, err := NewWire(cfg)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Wire: w}, nil
}

// Username resolves the account to act as: the explicit name if set,
// otherwise the configured default.
func (a *App) Username(explicit string) (domain.Username, error) {
	name := explicit
	if name == "" {
		name = a.Config.Username
	}
	if name == "" {
		return "", fmt.Errorf("username required (--username or Username in %s)", ConfigFile)
	}
	return domain.Username(name), nil
}

// Connect dials the relay and returns an unauthenticated session for id.
// The caller must start Run before logging in.
func (a *App) Connect(ctx context.Context, id domain.Identity, opts ...client.Option) (*client.Session, error) {
	conn, err := relay.Dial(ctx, a.Config.ServerURL)
	if err != nil {
		return nil, err
	}
	base := []client.Option{
		client.WithLogger(a.Log.WithPrefix("session")),
		client.WithLookupTimeout(time.Duration(a.Config.LookupTimeout) * time.Second),
	}
	return client.New(id, conn, append(base, opts...)...), nil
}
