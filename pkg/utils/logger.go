package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger writing to stderr, so that reports on stdout
// stay clean. When debug is true, uses development config (human-readable,
// debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// NewCLILogger is like NewLogger but, outside debug mode, only reports
// warnings and errors in console format.
func NewCLILogger(debug bool) (*zap.Logger, error) {
	if debug {
		return NewLogger(true)
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
