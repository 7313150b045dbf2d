package publishers

import "github.com/samvad-hq/retrofit-go/pkg/retrofit"

// Logger is the logging surface publishers rely on.
type Logger = retrofit.Logger

type noopLogger = retrofit.NopLogger

func ensureLogger(log Logger) Logger {
	return retrofit.EnsureLogger(log)
}
