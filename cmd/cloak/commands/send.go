package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cloak/internal/domain"
)

// send <peer> <message>: scan, encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Scan, encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := username(); err != nil {
				return err
			}
			peer := domain.ConversationID(args[0])

			receipt, err := appCtx.Messages.Send(cmd.Context(), peer, args[1])
			if err != nil {
				if receipt.State == domain.SendBlocked {
					printViolations(receipt.Decision)
				}
				return err
			}

			if receipt.State == domain.SendAwaitingUser {
				printViolations(receipt.Decision)
				receipt, err = resolveInteractive(cmd, receipt.Token)
				if err != nil {
					return err
				}
				if receipt.State == domain.SendBlocked {
					fmt.Println("cancelled")
					return nil
				}
			}

			if receipt.Encrypted {
				fmt.Println("sent (encrypted)")
			} else {
				fmt.Println("sent UNENCRYPTED: no secure session with this peer")
			}
			return nil
		},
	}
}

func printViolations(d domain.ScanDecision) {
	for _, v := range d.Violations {
		fmt.Printf("scan: %s (%d match(es))\n", v.Category, v.MatchCount)
	}
	for _, w := range d.Warnings {
		fmt.Printf("scan warning: %s\n", w)
	}
}

// resolveInteractive asks the user what to do with a suspended send.
func resolveInteractive(cmd *cobra.Command, token domain.ConfirmationToken) (domain.SendReceipt, error) {
	fmt.Print("send [a]s-is, [r]edacted, [e]ncrypted-only, or [c]ancel? ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return domain.SendReceipt{}, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "a":
		return appCtx.Messages.Resolve(cmd.Context(), token, domain.ActionProceed)
	case "r":
		return appCtx.Messages.Resolve(cmd.Context(), token, domain.ActionRedact)
	case "e":
		return appCtx.Messages.Resolve(cmd.Context(), token, domain.ActionForceEncrypt)
	default:
		if err := appCtx.Messages.Cancel(token); err != nil {
			return domain.SendReceipt{}, err
		}
		return domain.SendReceipt{State: domain.SendBlocked}, nil
	}
}
