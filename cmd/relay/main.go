package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"mchat/internal/relay"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
		perSec   float64
		burst    int
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run the MChat WebSocket relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(strings.ToLower(logLevel))
			if err != nil {
				return err
			}
			logger := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				Prefix:          "relay",
				Level:           level,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, addr, relay.NewServer(
				relay.WithServerLogger(logger),
				relay.WithRateLimit(rate.Limit(perSec), burst),
			))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().Float64Var(&perSec, "rate", 5, "control frames per second allowed per connection")
	cmd.Flags().IntVar(&burst, "burst", 20, "control frame burst per connection")
	return cmd
}

func serve(ctx context.Context, logger *log.Logger, addr string, srv *relay.Server) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("relay listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Close()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
