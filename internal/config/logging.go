// internal/config/logging.go
package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging applies the log level and format to the standard logrus logger.
func ConfigureLogging(cfg LogConfig) {
	if cfg.Format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, falling back to info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
