package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"graphmail/internal/config"
	"graphmail/internal/secrets"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication and config setup",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		tenantID     string
		clientID     string
		clientSecret string
		authority    string
		useKeyring   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store app registration credentials and the target mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("tenant-id") {
				cfg.Graph.TenantID = tenantID
			}
			if cmd.Flags().Changed("client-id") {
				cfg.Graph.ClientID = clientID
			}
			if cmd.Flags().Changed("client-secret") {
				cfg.Graph.ClientSecret = clientSecret
			}
			if cmd.Flags().Changed("mailbox") {
				cfg.Graph.Mailbox, _ = cmd.Flags().GetString("mailbox")
			}
			if cmd.Flags().Changed("authority") {
				cfg.Graph.Authority = authority
			}

			if err := config.Validate(cfg); err != nil {
				return err
			}

			if useKeyring {
				if err := secrets.SetClientSecret(cfg.Graph.TenantID, cfg.Graph.ClientID, cfg.Graph.ClientSecret); err != nil {
					return err
				}
				cfg.Graph.ClientSecret = ""
				fmt.Fprintln(cmd.OutOrStdout(), "Client secret stored in keyring.")
			} else if cfg.Graph.SecretSource == "keyring" {
				// Loaded from the keyring; keep it out of the file.
				cfg.Graph.ClientSecret = ""
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Directory (tenant) id")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Application (client) id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret")
	cmd.Flags().StringVar(&authority, "authority", "", "Login host, e.g. login.microsoftonline.us")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "Store the client secret in the OS keyring instead of the config file")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored client secret from the keyring and config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Graph.TenantID == "" || cfg.Graph.ClientID == "" {
				return fmt.Errorf("%w: graph.tenant_id and graph.client_id are required", config.ErrConfiguration)
			}

			err = secrets.DeleteClientSecret(cfg.Graph.TenantID, cfg.Graph.ClientID)
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "Client secret removed from keyring.")
			case errors.Is(err, secrets.ErrSecretNotFound):
			default:
				return err
			}

			if cfg.Graph.ClientSecret != "" {
				cfg.Graph.ClientSecret = ""
				path, err := config.Save(cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Client secret cleared from %s\n", path)
			}
			return nil
		},
	}
	return cmd
}
