package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"graphmail/internal/config"
	"graphmail/internal/secrets"
)

const clientSecretEnv = "GRAPHMAIL_GRAPH_CLIENT_SECRET" //nolint:gosec // env var name, not a credential

// loadConfig resolves the client secret from env, then the config file,
// then the keyring.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if _, ok := os.LookupEnv(clientSecretEnv); ok {
		cfg.Graph.SecretSource = "env"
		return cfg, nil
	}

	if cfg.Graph.ClientSecret != "" {
		cfg.Graph.SecretSource = "config"
		return cfg, nil
	}

	if cfg.Graph.TenantID == "" || cfg.Graph.ClientID == "" {
		return cfg, nil
	}

	secret, err := secrets.GetClientSecret(cfg.Graph.TenantID, cfg.Graph.ClientID)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return cfg, nil
		}
		return cfg, err
	}

	cfg.Graph.ClientSecret = secret
	cfg.Graph.SecretSource = "keyring"
	return cfg, nil
}

// loadCommandConfig applies the persistent --mailbox override.
func loadCommandConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if mailbox, _ := cmd.Flags().GetString("mailbox"); strings.TrimSpace(mailbox) != "" {
		cfg.Graph.Mailbox = strings.TrimSpace(mailbox)
	}
	return cfg, nil
}
