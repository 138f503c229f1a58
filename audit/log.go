// Package audit provides the structured logging surface used throughout
// the engine, reproducing the call-site shape of Boulder's blog.Logger
// (Notice/Warning/AuditErr/AuditInfo/Info/Debug) but backed by
// github.com/sirupsen/logrus rather than Boulder's internal syslog
// writer, which isn't part of this repository's retrieval pack.
package audit

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the audit/operational logging interface every package in this
// engine takes instead of calling the standard log package directly.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Notice(msg string)
	Noticef(format string, args ...interface{})
	Warning(msg string)
	Warningf(format string, args ...interface{})
	Err(msg string)
	Errf(format string, args ...interface{})
	AuditErr(msg string)
	AuditInfo(msg string)
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a Logger backed by a JSON-formatted logrus instance writing
// to stderr, with component set to a constant field on every entry so
// multiplexed CLI/daemon logs can be filtered by source package.
func New(component string) Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stderr)
	return &logrusLogger{entry: l.WithField("component", component)}
}

// NewMock returns a Logger that discards all output, for use in tests that
// need a Logger but don't assert on its content.
func NewMock() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusLogger{entry: l.WithField("component", "mock")}
}

func (l *logrusLogger) Debug(msg string)                            { l.entry.Debug(msg) }
func (l *logrusLogger) Debugf(format string, args ...interface{})   { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Info(msg string)                             { l.entry.Info(msg) }
func (l *logrusLogger) Infof(format string, args ...interface{})    { l.entry.Infof(format, args...) }
func (l *logrusLogger) Notice(msg string)                           { l.entry.Info(msg) }
func (l *logrusLogger) Noticef(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warning(msg string)                          { l.entry.Warning(msg) }
func (l *logrusLogger) Warningf(format string, args ...interface{}) { l.entry.Warningf(format, args...) }
func (l *logrusLogger) Err(msg string)                              { l.entry.Error(msg) }
func (l *logrusLogger) Errf(format string, args ...interface{})     { l.entry.Errorf(format, args...) }
func (l *logrusLogger) AuditErr(msg string)                         { l.entry.WithField("audit", true).Error(msg) }
func (l *logrusLogger) AuditInfo(msg string)                        { l.entry.WithField("audit", true).Info(msg) }
