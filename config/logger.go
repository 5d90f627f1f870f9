package config

import "log"

// StdLogger adapts the standard library's *log.Logger to the Logger
// capability interface.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger wraps log.Default() (or a caller-supplied logger) as a Logger.
func NewStdLogger(l *log.Logger) StdLogger {
	if l == nil {
		l = log.Default()
	}
	return StdLogger{Logger: l}
}

func (s StdLogger) Infof(format string, args ...any) {
	s.Printf("INFO  "+format, args...)
}

func (s StdLogger) Warnf(format string, args ...any) {
	s.Printf("WARN  "+format, args...)
}

func (s StdLogger) Errorf(format string, args ...any) {
	s.Printf("ERROR "+format, args...)
}
