package ros

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Severity mirrors rosconsole's level names so node.Logger().SetSeverity
// reads like the rest of the rosconsole-style logging API.
type Severity uint8

const (
	LogLevelDebug Severity = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

func (s Severity) logrusLevel() logrus.Level {
	switch s {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.FatalLevel
	}
}

// Logger is the logging façade every node, publisher, subscriber and
// service exchanges instead of talking to a concrete backend directly.
// User code may call node.SetLogger to substitute its own implementation.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	// WithField and WithFields return a derived Logger carrying
	// structured context for the lifetime of the returned value, the
	// way callers attach "topic"/"pubURI"/"service" in the pack's
	// edwinhayes-rosgo fork.
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger

	SetSeverity(s Severity)
}

// logrusLogger backs the default Logger with a sirupsen/logrus entry.
type logrusLogger struct {
	entry *logrus.Entry
	base  *logrus.Logger
}

// NewDefaultLogger returns the Logger every defaultNode starts with: a
// logrus.Logger writing to stderr in a human-readable text format.
func NewDefaultLogger() Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: logrus.NewEntry(base), base: base}
}

func (l *logrusLogger) Debug(v ...interface{})                 { l.entry.Debug(v...) }
func (l *logrusLogger) Debugf(format string, v ...interface{}) { l.entry.Debugf(format, v...) }
func (l *logrusLogger) Info(v ...interface{})                  { l.entry.Info(v...) }
func (l *logrusLogger) Infof(format string, v ...interface{})  { l.entry.Infof(format, v...) }
func (l *logrusLogger) Warn(v ...interface{})                  { l.entry.Warn(v...) }
func (l *logrusLogger) Warnf(format string, v ...interface{})  { l.entry.Warnf(format, v...) }
func (l *logrusLogger) Error(v ...interface{})                 { l.entry.Error(v...) }
func (l *logrusLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }
func (l *logrusLogger) Fatal(v ...interface{})                 { l.entry.Error(v...) }
func (l *logrusLogger) Fatalf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value), base: l.base}
}

func (l *logrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields)), base: l.base}
}

func (l *logrusLogger) SetSeverity(s Severity) {
	l.base.SetLevel(s.logrusLevel())
}
