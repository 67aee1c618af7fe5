// Package logx is the pipeline's thin logging shim: a package-level
// *slog.Logger that every other package logs through, so a caller of this
// module can redirect or reconfigure logging once via SetLogger instead of
// threading a logger through every constructor.
package logx

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// SetLogger replaces the package-level logger used by Debug/Info/Warn/Error.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

func Debug(msg string, args ...any) { logger.Load().Debug(msg, args...) }
func Info(msg string, args ...any)  { logger.Load().Info(msg, args...) }
func Warn(msg string, args ...any)  { logger.Load().Warn(msg, args...) }
func Error(msg string, args ...any) { logger.Load().Error(msg, args...) }
