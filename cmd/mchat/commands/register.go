package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mchat/internal/client"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish your public key to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), false, func(ctx context.Context, s *client.Session) error {
				if err := s.Register(ctx); err != nil {
					return err
				}
				fmt.Println("Registered public key with relay")
				return nil
			})
		},
	}
	return cmd
}
