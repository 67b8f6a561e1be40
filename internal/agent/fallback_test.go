package agent

import (
	"context"
	"testing"
)

type stubAdapter struct {
	kind Kind
	out  string
	err  error
}

func (s *stubAdapter) ValidateModel(model string) bool                { return true }
func (s *stubAdapter) GenerateConfig(cfg AgentConfig) (string, error)  { return s.out, s.err }
func (s *stubAdapter) FormatPrompt(prompt string) string               { return prompt }
func (s *stubAdapter) ParseResponse(raw string) ParsedResponse         { return ParsedResponse{} }
func (s *stubAdapter) GetMemoryFilename() string                       { return "MEMORY.md" }
func (s *stubAdapter) GetExecutableName() string                       { return string(s.kind) }
func (s *stubAdapter) GetCapabilities() CliCapabilities                { return CliCapabilities{} }
func (s *stubAdapter) Initialize(ctx context.Context, wc *WorkloadContext, cfg AgentConfig) error {
	return nil
}
func (s *stubAdapter) Cleanup(ctx context.Context, wc *WorkloadContext) error { return nil }
func (s *stubAdapter) HealthCheck(ctx context.Context) HealthStatus           { return HealthStatus{} }

func TestGenerateConfigWithFallback_PrimarySucceeds(t *testing.T) {
	Register("stub-primary-ok", func() Adapter { return &stubAdapter{kind: "stub-primary-ok", out: "rendered"} })

	out, used, err := GenerateConfigWithFallback("stub-primary-ok", "stub-fallback", AgentConfig{})
	if err != nil {
		t.Fatalf("GenerateConfigWithFallback() error = %v", err)
	}
	if used != "stub-primary-ok" {
		t.Errorf("used = %q, want stub-primary-ok", used)
	}
	if out != "rendered" {
		t.Errorf("out = %q, want rendered", out)
	}
}

func TestGenerateConfigWithFallback_RetriesOnConfigGenerationError(t *testing.T) {
	Register("stub-primary-fails", func() Adapter {
		return &stubAdapter{kind: "stub-primary-fails", err: &ConfigGenerationError{Field: "model"}}
	})
	Register("stub-fallback-ok", func() Adapter { return &stubAdapter{kind: "stub-fallback-ok", out: "fallback-rendered"} })

	out, used, err := GenerateConfigWithFallback("stub-primary-fails", "stub-fallback-ok", AgentConfig{})
	if err != nil {
		t.Fatalf("GenerateConfigWithFallback() error = %v", err)
	}
	if used != "stub-fallback-ok" {
		t.Errorf("used = %q, want stub-fallback-ok", used)
	}
	if out != "fallback-rendered" {
		t.Errorf("out = %q, want fallback-rendered", out)
	}
}

func TestGenerateConfigWithFallback_NoFallbackConfigured(t *testing.T) {
	Register("stub-primary-fails-nofallback", func() Adapter {
		return &stubAdapter{kind: "stub-primary-fails-nofallback", err: &ConfigGenerationError{Field: "model"}}
	})

	_, _, err := GenerateConfigWithFallback("stub-primary-fails-nofallback", "", AgentConfig{})
	if err == nil {
		t.Fatal("GenerateConfigWithFallback() with no fallback: want error, got nil")
	}
}

func TestGenerateConfigWithFallback_NonFatalErrorNotRetried(t *testing.T) {
	Register("stub-primary-other-error", func() Adapter {
		return &stubAdapter{kind: "stub-primary-other-error", err: &TemplateError{Template: "x"}}
	})
	Register("stub-fallback-unused", func() Adapter { return &stubAdapter{kind: "stub-fallback-unused", out: "should not be used"} })

	_, _, err := GenerateConfigWithFallback("stub-primary-other-error", "stub-fallback-unused", AgentConfig{})
	if err == nil {
		t.Fatal("GenerateConfigWithFallback() with non-fatal error: want error, got nil")
	}
}
