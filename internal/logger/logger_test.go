package logger

import (
	"bytes"
	"os"
	"testing"
)

func reset() {
	SetLevel(LevelInfo)
	SetOutput(os.Stderr)
}

func TestSetLevel(t *testing.T) {
	defer reset()

	SetLevel(LevelDebug)
	if !IsDebug() {
		t.Error("expected debug after SetLevel(LevelDebug)")
	}

	SetLevel(LevelWarn)
	if IsDebug() {
		t.Error("expected no debug after SetLevel(LevelWarn)")
	}
	if GetLevel() != LevelWarn {
		t.Errorf("unexpected level: %v", GetLevel())
	}
}

func TestDebug_WhenDebug(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelDebug)

	Debug("test message %s", "arg")

	if buf.String() != "[DEBUG] test message arg\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestDebug_WhenInfo(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("test message")

	if buf.Len() > 0 {
		t.Error("expected no debug output at info level")
	}
}

func TestInfo(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("info message %d", 42)

	if buf.String() != "[INFO] info message 42\n" {
		t.Errorf("unexpected info output: %q", buf.String())
	}
}

func TestQuietKeepsWarningsAndErrors(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)

	Info("hidden")
	Section("hidden")
	Warn("warning message")
	Error("error message")

	want := "[WARN] warning message\n[ERROR] error message\n"
	if buf.String() != want {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Section("Test Section")

	if buf.String() != "\n=== Test Section ===\n" {
		t.Errorf("unexpected section output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			SetLevel(LevelDebug)
			Debug("concurrent %d", i)
			IsDebug()
			SetLevel(LevelInfo)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
