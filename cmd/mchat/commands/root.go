package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mchat/internal/app"
	"mchat/internal/client"
	"mchat/internal/domain"
)

var (
	home       string
	passphrase string
	serverURL  string
	username   string
	logLevel   string
	appCtx     *app.App
)

func Execute() error {
	root := &cobra.Command{
		Use:           "mchat",
		Short:         "RSA-authenticated encrypted chat CLI",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadHome(home)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if username != "" {
				cfg.Username = username
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if err := cfg.FixupAndValidate(); err != nil {
				return err
			}
			appCtx, err = app.New(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.mchat)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&serverURL, "server", "", "relay WebSocket URL (e.g. ws://127.0.0.1:8080/chat)")
	root.PersistentFlags().StringVarP(&username, "username", "u", "", "local account name")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(initCmd(), fingerprintCmd(), registerCmd(), lookupCmd(), sendCmd(), chatCmd())
	return root.Execute()
}

// loadIdentity decrypts the selected account's key pair.
func loadIdentity() (domain.Identity, error) {
	if passphrase == "" {
		return domain.Identity{}, fmt.Errorf("passphrase required (-p)")
	}
	u, err := appCtx.Username("")
	if err != nil {
		return domain.Identity{}, err
	}
	return appCtx.Identity.LoadIdentity(u, passphrase)
}

// withSession dials the relay as the selected account, runs the frame loop
// and, when login is set, authenticates before calling fn.
func withSession(
	ctx context.Context,
	login bool,
	fn func(ctx context.Context, s *client.Session) error,
	opts ...client.Option,
) error {
	id, err := loadIdentity()
	if err != nil {
		return err
	}
	s, err := appCtx.Connect(ctx, id, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	g.Go(func() error {
		if login {
			if err := s.Login(gctx); err != nil {
				return err
			}
		}
		if err := fn(gctx, s); err != nil {
			return err
		}
		cancel()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Run stopping because fn finished is the normal exit.
		return nil
	}
	return err
}
