package utils

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(true) returned nil logger")
		}
		_ = logger.Sync()
	})

	t.Run("production mode returns production logger", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(false) returned nil logger")
		}
		_ = logger.Sync()
	})
}

func TestNewCLILogger(t *testing.T) {
	logger, err := NewCLILogger(false)
	if err != nil {
		t.Fatalf("NewCLILogger(false) error: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Error("info level should be disabled outside debug mode")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Error("warn level should be enabled")
	}
	debug, err := NewCLILogger(true)
	if err != nil {
		t.Fatalf("NewCLILogger(true) error: %v", err)
	}
	if !debug.Core().Enabled(zap.DebugLevel) {
		t.Error("debug level should be enabled in debug mode")
	}
}
