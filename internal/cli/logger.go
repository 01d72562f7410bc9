package cli

import "go.uber.org/zap"

// newLogger wraps zap for verbose debug output. Without --verbose it is a
// nop so the hot paths stay free of logging overhead.
func newLogger(globals *Globals) *zap.SugaredLogger {
	if globals == nil || !globals.Verbose {
		return zap.NewNop().Sugar()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	logger, _ := cfg.Build()
	return logger.Sugar()
}
