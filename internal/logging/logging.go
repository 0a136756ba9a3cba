package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Mirai3103/fib-api/internal/config"
)

// Setup configures the standard logrus logger from cfg.
func Setup(cfg config.LogConfig, out io.Writer) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	if out != nil {
		logrus.SetOutput(out)
	}

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return nil
}

// SetLevel changes the level at runtime; invalid levels are logged and ignored.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Ignoring invalid log level %q", level)
		return
	}
	if lvl == logrus.GetLevel() {
		return
	}
	logrus.SetLevel(lvl)
	logrus.Infof("Log level changed to %s", lvl)
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
