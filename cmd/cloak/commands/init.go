package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloak/internal/crypto"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them encrypted at rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			id, err := crypto.NewIdentity()
			if err != nil {
				return err
			}
			if err := appCtx.Identity.SaveIdentity(pass, id); err != nil {
				return err
			}
			fmt.Printf("Identity created.\nKey fingerprint: %s\n", crypto.IdentityFingerprint(id.XPub.Slice()))
			return nil
		},
	}
}
