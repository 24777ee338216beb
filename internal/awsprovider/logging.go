package awsprovider

import "go.uber.org/zap"

// newLogger builds the structured logger every provisioning, dispatch, and
// teardown path logs through. debug selects development-style (console,
// debug-level) encoding; otherwise the quieter production config is used.
func newLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// Building a logger from a static config should never fail; fall
		// back to a no-op logger rather than panicking the caller.
		return zap.NewNop()
	}
	return logger
}
