package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"cloak/internal/app"
)

var appCtx *app.App

// Execute builds the root command, binds flags to viper (env prefix CLOAK)
// and runs the CLI.
func Execute() error {
	root := &cobra.Command{
		Use:   "cloak",
		Short: "End-to-end encrypted messaging with outbound content scanning",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home := viper.GetString("home")
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".cloak")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			log := zap.NewNop()
			if viper.GetBool("verbose") {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				log = l
			}

			a, err := app.New(app.Config{
				Home:            home,
				RelayURL:        viper.GetString("relay"),
				Identity:        viper.GetString("username"),
				RequireVerified: viper.GetBool("require-verified"),
				ConfirmOnWarn:   viper.GetBool("confirm-on-warn"),
				Logger:          log,
			}, stdinAuthenticator{})
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx != nil {
				return appCtx.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "config dir (default ~/.cloak)")
	pf.StringP("passphrase", "p", "", "passphrase protecting the identity keys")
	pf.String("relay", "http://127.0.0.1:8080", "relay base URL")
	pf.StringP("username", "u", "", "your identity name (same as you registered with)")
	pf.Bool("require-verified", false, "only encrypt to fingerprint-verified sessions")
	pf.Bool("confirm-on-warn", true, "ask before sending messages with scan findings")
	pf.Bool("verbose", false, "enable debug logging")

	viper.SetEnvPrefix("CLOAK")
	viper.AutomaticEnv()
	for _, name := range []string{
		"home", "passphrase", "relay", "username",
		"require-verified", "confirm-on-warn", "verbose",
	} {
		if err := viper.BindPFlag(name, pf.Lookup(name)); err != nil {
			return err
		}
	}

	root.AddCommand(
		initCmd(), registerCmd(), startSessionCmd(), verifyCmd(),
		sendCmd(), recvCmd(), scanCmd(), statusCmd(), clearCmd(),
	)
	return root.Execute()
}

func passphrase() (string, error) {
	p := viper.GetString("passphrase")
	if p == "" {
		return "", errRequired("passphrase (-p)")
	}
	return p, nil
}

func username() (string, error) {
	u := viper.GetString("username")
	if u == "" {
		return "", errRequired("--username")
	}
	return u, nil
}
