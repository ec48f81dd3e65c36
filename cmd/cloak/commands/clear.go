package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloak/internal/domain"
)

// clear <peer>: delete a session and its skipped message keys.
func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <peer>",
		Short: "Delete a session and its cached message keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ConversationID(args[0])
			if err := appCtx.Sessions.DeleteSession(id); err != nil {
				return err
			}
			fmt.Printf("session with %s cleared\n", args[0])
			return nil
		},
	}
}
