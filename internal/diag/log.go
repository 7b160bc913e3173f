// Package diag provides the compiler's advisory, non-semantic logging.
// Nothing here participates in compilation results: per spec §5, the
// process-wide verbose flag is "advisory only and does not affect
// semantics."
package diag

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.Mutex
	logger = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	return l
}

// SetVerbose toggles the package-level logger between Warn (default) and
// Debug level, mirroring Options.Verbose. It is safe to call from
// multiple call frames; since compilation is single-threaded and
// synchronous (spec §5), callers should set it once at the start of a
// compile call.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
}

// Log returns the shared logger instance.
func Log() *logrus.Logger {
	return logger
}
