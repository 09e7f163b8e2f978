package log

import (
	"fmt"

	"github.com/cfxwasm/sdk/invoker"
	"go.uber.org/zap"
)

var logger = zap.New(NewCore())

// L returns the package logger.
func L() *zap.Logger {
	return logger
}

// SetLogger replaces the package logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Print sends msg to the host log verbatim.
func Print(msg string) {
	invoker.CurrentHost().Log(msg)
}

// Printf formats according to a format specifier and sends the result to
// the host log.
func Printf(format string, args ...any) {
	Print(fmt.Sprintf(format, args...))
}
