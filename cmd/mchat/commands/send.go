package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mchat/internal/client"
	"mchat/internal/domain"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.Username(args[0])
			return withSession(cmd.Context(), true, func(ctx context.Context, s *client.Session) error {
				if err := s.Send(ctx, peer, args[1]); err != nil {
					return err
				}
				fmt.Println("sent")
				return nil
			})
		},
	}
}
