package cli

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"graphmail/internal/config"
)

// newLogger honours log.level and log.format; --verbose forces debug.
func newLogger(out io.Writer, cfg config.LogConfig, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}
