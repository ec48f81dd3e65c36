package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloak/internal/domain"
)

// recv: fetch and decrypt queued messages for --username.
func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			if _, err := username(); err != nil {
				return err
			}

			appCtx.Messages.OnDecryptionFailed(func(t domain.Tombstone) {
				fmt.Printf("[%s] <message could not be decrypted: %s>\n", t.From, t.Reason)
			})

			msgs, err := appCtx.Messages.Receive(cmd.Context(), pass, limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				marker := ""
				if !m.Encrypted {
					marker = " (unencrypted)"
				}
				fmt.Printf("[%s]%s %s\n", m.From, marker, string(m.Plaintext))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to fetch (0 = all)")
	return cmd
}
