package logging

import (
	"context"
	"testing"
)

func TestNew_DefaultsToStandard(t *testing.T) {
	logger, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()
	if _, ok := logger.(*standardLogger); !ok {
		t.Errorf("New() type = %T, want *standardLogger", logger)
	}
}

func TestNew_UnknownModeErrors(t *testing.T) {
	_, err := New(context.Background(), Config{Mode: "bogus"})
	if err == nil {
		t.Fatal("New() with an unknown mode: want error, got nil")
	}
}

func TestNew_CloudModeRequiresProject(t *testing.T) {
	_, err := New(context.Background(), Config{Mode: ModeCloud})
	if err == nil {
		t.Fatal("New() with cloud mode and no GCPProject: want error, got nil")
	}
}

func TestStandardLogger_ScrubsSecretsFromMessages(t *testing.T) {
	logger := newStandardLogger()
	defer logger.Close()

	// Scrub is exercised directly since the standard sink writes to
	// os.Stdout; the scrubbing behavior itself lives in internal/security
	// and is covered there. This asserts the logger wires it in.
	scrubbed := logger.scrubber.Scrub("api_key: abcdefghijklmnopqrstuvwxyz123456")
	if scrubbed == "api_key: abcdefghijklmnopqrstuvwxyz123456" {
		t.Error("standardLogger.scrubber did not redact an API key pattern")
	}
}
