// Package logger constructs the shared structured logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a JSON-formatted logger at the given level. An unknown level
// falls back to info.
func New(logLevel string) *logrus.Logger {
	log := logrus.New()

	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}
