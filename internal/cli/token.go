package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"graphmail/internal/config"
)

func newTokenCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Acquire an app-only token to check the credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.ValidateCredentials(cfg); err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			tokens := newTokenManager(cfg.Graph, newLogger(cmd.ErrOrStderr(), cfg.Log, verbose))

			token, err := tokens.GetAccessToken(cmd.Context(), cfg.Graph.ClientID, cfg.Graph.TenantID, cfg.Graph.ClientSecret)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Token acquired.")
			if expiry, ok := tokens.Expiry(cfg.Graph.ClientID, cfg.Graph.TenantID); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Expires: %s\n", expiry.Format(time.RFC3339))
			}
			if show {
				fmt.Fprintln(cmd.OutOrStdout(), token)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print the access token")

	return cmd
}
