package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloak/internal/domain"
)

// scan <text>: run the content scanner without sending anything.
func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <text>",
		Short: "Run the content scanner over text without sending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := appCtx.Scanner.Scan(cmd.Context(), args[0], domain.ScanContext{})
			printViolations(d)
			fmt.Printf("allowed: %v\nsuggested action: %s\n", d.Allowed, d.SuggestedAction)
			if d.SanitizedContent != "" {
				fmt.Printf("sanitized: %s\n", d.SanitizedContent)
			}
			return nil
		},
	}
}
