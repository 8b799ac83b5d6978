package utils

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupLogging(t *testing.T) {
	// Test with default log level
	logger := SetupLogging("", "")
	if logger == nil {
		t.Fatal("Expected logger to be created, got nil")
	}

	// Test with specific log levels
	logger = SetupLogging("debug", "")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("warn", "")
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level to be warn, got %s", logger.Level)
	}

	logger = SetupLogging("error", "")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level to be error, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid", "")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}
}

func TestSetupLoggingEnvFallback(t *testing.T) {
	os.Setenv("SYNC_LOG_LEVEL", "debug")
	defer os.Unsetenv("SYNC_LOG_LEVEL")

	logger := SetupLogging("", "")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level from environment to be debug, got %s", logger.Level)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	os.Setenv("TEST_SYNC_VAR", "configured")
	defer os.Unsetenv("TEST_SYNC_VAR")

	if got := GetEnvOrDefault("TEST_SYNC_VAR", "fallback"); got != "configured" {
		t.Errorf("Expected 'configured', got %q", got)
	}

	os.Unsetenv("TEST_SYNC_VAR")
	if got := GetEnvOrDefault("TEST_SYNC_VAR", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback', got %q", got)
	}

	os.Setenv("TEST_SYNC_VAR", "")
	if got := GetEnvOrDefault("TEST_SYNC_VAR", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback' for empty value, got %q", got)
	}
}
