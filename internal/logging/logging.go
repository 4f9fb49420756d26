package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Output formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New builds a logger writing to w (stderr when nil).
// An empty level means info; an unknown level or format is an error.
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)

	switch strings.ToLower(format) {
	case "", FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	return logger, nil
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Component returns l tagged with a component field, or a discard logger
// tagged the same way when l is nil.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	if l == nil {
		l = Discard()
	}
	return l.WithField("component", name)
}

