package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/config"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/secret"
	"github.com/spf13/cobra"
)

// NewSecretCommand creates the secret command group.
func NewSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage connection password encryption",
		Long: `Generate the secret key used to seal connection passwords and seal
passwords for the catalog's encrypted_password field.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "genkey",
		Short: "Print a new random secret key",
		Long:  `Print a new base64 secret key. Store it as secret_key or DASHQUERY_SECRET_KEY.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := secret.GenerateKey()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt [password]",
		Short: "Seal a password with the configured secret key",
		Long:  `Seal a password with secret_key. Without an argument the password is read from stdin.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg.SecretKey == "" {
				return errors.New("secret_key is not configured (run 'dashquery secret genkey')")
			}
			box, err := secret.NewBox(cfg.SecretKey)
			if err != nil {
				return err
			}

			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}

			sealed, err := box.Encrypt(plain)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	})
	return cmd
}
