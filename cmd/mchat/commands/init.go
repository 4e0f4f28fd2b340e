package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate an RSA identity and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			u, err := appCtx.Username("")
			if err != nil {
				return err
			}
			_, fp, err := appCtx.Identity.CreateIdentity(u, passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Identity created for %s.\nFingerprint: %s\n", u, fp)
			return nil
		},
	}
}
