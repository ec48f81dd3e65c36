package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloak/internal/domain"
)

// startSessionCmd performs the X3DH handshake against a peer's pre-key
// bundle and persists the new session.
func startSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			me, err := username()
			if err != nil {
				return err
			}
			peer := domain.RemoteIdentity(args[0])

			record, err := appCtx.Exchange.Initiate(cmd.Context(), pass, domain.RemoteIdentity(me), peer)
			if err != nil {
				return fmt.Errorf("starting session with %q: %w", peer, err)
			}
			fmt.Printf("Session with %s: %s\nSafety number: %s\n", peer, record.Status, record.Fingerprint)
			fmt.Println("Compare the safety number out of band, then run: cloak verify", args[0], "<safety number>")
			return nil
		},
	}
}
