package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"graphmail/internal/auth"
	"graphmail/internal/config"
	"graphmail/internal/graph"
)

// newTokenManager is swapped out in tests to point at a fake token endpoint.
var newTokenManager = func(cfg config.GraphConfig, logger logrus.FieldLogger) *auth.Manager {
	return auth.NewManager(
		auth.WithAuthority(cfg.Authority),
		auth.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		auth.WithLogger(logger),
	)
}

// session is everything a command needs to talk to one mailbox.
type session struct {
	cfg    config.Config
	logger *logrus.Logger
	tokens *auth.Manager
	client *graph.Client
	reader *graph.Reader
	sender *graph.Sender
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadCommandConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log, verbose)
	tokens := newTokenManager(cfg.Graph, logger)

	client, err := graph.NewClientFromConfig(cfg.Graph, tokens, graph.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"mailbox":       cfg.Graph.Mailbox,
		"secret_source": cfg.Graph.SecretSource,
	}).Debug("session opened")

	return &session{
		cfg:    cfg,
		logger: logger,
		tokens: tokens,
		client: client,
		reader: graph.NewReader(client),
		sender: graph.NewSender(client),
	}, nil
}

// resolveFolder maps a display name to a folder id. Anything that is not a
// known display name is assumed to be an id already.
func (s *session) resolveFolder(ctx context.Context, nameOrID string) (string, error) {
	folder, err := s.reader.GetFolder(ctx, nameOrID)
	if err == nil {
		return folder.ID, nil
	}
	if errors.Is(err, graph.ErrFolderNotFound) {
		return nameOrID, nil
	}
	return "", err
}
