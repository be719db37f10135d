package logging

import "testing"

func TestLevelFromEnvDefaultsToInfo(t *testing.T) {
	t.Setenv("SVCTREE_LOG_LEVEL", "")
	if lvl := levelFromEnv(); lvl.Level().String() != "INFO" {
		t.Fatalf("expected INFO default, got %v", lvl)
	}
}

func TestLevelFromEnvHonorsDebug(t *testing.T) {
	t.Setenv("SVCTREE_LOG_LEVEL", "debug")
	if lvl := levelFromEnv(); lvl.Level().String() != "DEBUG" {
		t.Fatalf("expected DEBUG, got %v", lvl)
	}
}

func TestInitReturnsUsableLogger(t *testing.T) {
	l := Init("test-component")
	if l == nil {
		t.Fatalf("expected non-nil logger")
	}
}
