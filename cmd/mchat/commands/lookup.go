package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mchat/internal/client"
	"mchat/internal/crypto"
	"mchat/internal/domain"
)

// lookup <user>...: resolve peers' keys concurrently and print fingerprints.
func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <user>...",
		Short: "Fetch peers' public keys and print their fingerprints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), true, func(ctx context.Context, s *client.Session) error {
				fps := make([]domain.Fingerprint, len(args))
				g, gctx := errgroup.WithContext(ctx)
				for i, name := range args {
					g.Go(func() error {
						rec, err := s.Lookup(gctx, domain.Username(name))
						if err != nil {
							return err
						}
						fps[i] = crypto.Fingerprint(rec.Key)
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
				for i, name := range args {
					fmt.Printf("%s\t%s\n", name, fps[i])
				}
				return nil
			})
		},
	}
}
