package commands

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cloak/internal/domain"
)

func verifyCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "verify <peer> <fingerprint>...",
		Short: "Verify a session fingerprint compared out of band",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.ConversationID(args[0])
			// The grouped fingerprint splits into several shell words.
			supplied := strings.Join(args[1:], " ")

			var m domain.VerificationMethod
			switch strings.ToLower(method) {
			case "manual":
				m = domain.VerifyMethodManual
			case "biometric":
				m = domain.VerifyMethodBiometric
			default:
				return errors.Errorf("unknown verification method %q", method)
			}

			result, err := appCtx.Verifier.Verify(cmd.Context(), peer, supplied, m)
			if errors.Is(err, domain.ErrFingerprintMismatch) {
				fmt.Println("FINGERPRINT MISMATCH. The session has been marked FAILED.")
				fmt.Println("Do not send sensitive messages; the channel may be intercepted.")
				return err
			}
			if err != nil {
				return err
			}
			if !result.Verified {
				fmt.Printf("Not verified: %s\n", result.Reason)
				return nil
			}
			fmt.Printf("Session with %s verified (%s)\n", peer, method)
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "manual", "verification method: manual or biometric")
	return cmd
}
