package logger

import "testing"

func TestNewLoggerEnvironments(t *testing.T) {
	t.Parallel()
	for _, env := range []string{"prod", "local", "dev", "cli"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Errorf("Expected logger for %q, got error %v", env, err)
			continue
		}
		_ = l.Sync()
	}
}

func TestNewLoggerUnknownEnvironment(t *testing.T) {
	t.Parallel()
	if _, err := NewLogger("staging"); err == nil {
		t.Error("Expected error for unknown environment")
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	t.Parallel()
	l, err := NewLogger("cli", "debug")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("Expected debug level to be enabled")
	}
	if _, err := NewLogger("cli", "loud"); err == nil {
		t.Error("Expected error for invalid level")
	}
}
