package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// status: list sessions and their verification state.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List sessions and their verification state",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := appCtx.Sessions.ListSessions()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, r := range records {
				updated := time.Unix(r.UpdatedUTC, 0).UTC().Format(time.RFC3339)
				fmt.Printf("%-20s %-12s updated %s\n", r.Remote, r.Status, updated)
				if r.Fingerprint != "" {
					fmt.Printf("  safety number: %s\n", r.Fingerprint)
				}
				if r.FailureReason != "" {
					fmt.Printf("  failure: %s\n", r.FailureReason)
				}
			}
			return nil
		},
	}
}
