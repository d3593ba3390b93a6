package logger

import "testing"

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	if err := Init("not-a-level"); err != nil {
		t.Fatalf("init error: %v", err)
	}

	if Logger() == nil {
		t.Fatal("expected a usable logger")
	}
}

func TestWithModuleReturnsChild(t *testing.T) {
	if WithModule("test") == nil {
		t.Fatal("expected a child logger")
	}
}
