package agent

import (
	"context"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/agentmesh/controller/internal/template"
	"github.com/agentmesh/controller/internal/validate"
)

// Adapter is the contract every CLI kind implementation must satisfy.
// Adapters are stateless between invocations; all state lives in the
// enclosing workload.
type Adapter interface {
	// ValidateModel reports whether model looks like a name this CLI
	// accepts. Never fails; non-matches simply return false.
	ValidateModel(model string) bool

	// GenerateConfig renders the on-disk configuration artefact this CLI
	// expects, from the fully-resolved AgentConfig.
	GenerateConfig(cfg AgentConfig) (string, error)

	// FormatPrompt applies this CLI's prompt dialect to raw prompt text.
	FormatPrompt(prompt string) string

	// ParseResponse normalises raw CLI stdout into a ParsedResponse.
	// Infallible: malformed lines fold into a plain-text segment.
	ParseResponse(raw string) ParsedResponse

	// GetMemoryFilename returns the filename this CLI auto-loads for
	// cross-invocation memory (e.g. "CLAUDE.md").
	GetMemoryFilename() string

	// GetExecutableName returns the command this CLI is invoked as.
	GetExecutableName() string

	// GetCapabilities returns this CLI's static capability matrix.
	GetCapabilities() CliCapabilities

	// Initialize prepares a workload's filesystem/environment for this CLI.
	Initialize(ctx context.Context, wc *WorkloadContext, cfg AgentConfig) error

	// Cleanup releases anything Initialize set up.
	Cleanup(ctx context.Context, wc *WorkloadContext) error

	// HealthCheck reports the adapter's own operability. Never panics;
	// failures are captured in the Details/Errors maps.
	HealthCheck(ctx context.Context) HealthStatus
}

// BaseAdapter factors out the machinery shared by every CLI-specific
// adapter: template rendering, AgentConfig validation, and the default
// initialize/cleanup/health_check behaviour (file-writing, env injection).
type BaseAdapter struct {
	Kind           Kind
	TemplateName   string
	MemoryFilename string
	Executable     string
	Capabilities   CliCapabilities
}

// configFieldJSONNames maps AgentConfig's Go field names to the json tag
// reported in ConfigGenerationError, so validator.v10's struct-level field
// names don't leak into adapter error messages.
var configFieldJSONNames = map[string]string{
	"AgentIdentity": "agent_identity",
	"CLI":           "cli",
	"GitHubApp":     "github_app",
	"Model":         "model",
}

// ValidateConfig checks cfg's `validate:"required"` fields (agent_identity,
// cli, github_app, model), returning a ConfigGenerationError naming the
// first one missing.
func (b *BaseAdapter) ValidateConfig(cfg AgentConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].StructField()
		if jsonName, ok := configFieldJSONNames[field]; ok {
			field = jsonName
		}
		return &ConfigGenerationError{Field: field}
	}
	return err
}

// RenderTemplate renders the adapter's named template against a JSON-ish
// context map. Template rendering itself is treated as an opaque function
// per the system design; here it is backed by the Mustache-style renderer
// shared with prompt construction.
func (b *BaseAdapter) RenderTemplate(context map[string]string) (string, error) {
	out, err := template.Render(b.TemplateName, context)
	if err != nil {
		return "", &TemplateError{Template: b.TemplateName, Cause: err}
	}
	return out, nil
}

// Initialize performs the default container preparation: writes nothing on
// its own (per-adapter GenerateConfig output is written by the caller) but
// injects AGENT_CLI and AGENT_GITHUB_APP into the workload environment.
func (b *BaseAdapter) Initialize(ctx context.Context, wc *WorkloadContext, cfg AgentConfig) error {
	if wc.Env == nil {
		wc.Env = map[string]string{}
	}
	wc.Env["AGENT_CLI"] = string(cfg.CLI)
	wc.Env["AGENT_GITHUB_APP"] = cfg.GitHubApp
	return nil
}

// Cleanup is a no-op by default; adapters override when they hold
// resources (e.g. a long-lived session file) that must be released.
func (b *BaseAdapter) Cleanup(ctx context.Context, wc *WorkloadContext) error {
	return nil
}

// HealthCheck reports OK by default. A failed health check downgrades the
// adapter to Warning but never stops dispatch.
func (b *BaseAdapter) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Overall: "OK",
		Details: map[string]bool{"executable_configured": b.Executable != ""},
		Errors:  map[string]string{},
	}
}

// GetMemoryFilename returns the configured memory filename.
func (b *BaseAdapter) GetMemoryFilename() string { return b.MemoryFilename }

// GetExecutableName returns the configured executable name.
func (b *BaseAdapter) GetExecutableName() string { return b.Executable }

// GetCapabilities returns the configured capability matrix.
func (b *BaseAdapter) GetCapabilities() CliCapabilities { return b.Capabilities }

// FirstNonEmptyString implements the config-generation precedence rule:
// cli_config, then settings, then an AgentConfig field value, then a
// CLI-specific default — the first non-empty string wins.
func FirstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// StringFromMap extracts a string value for key from m, returning "" if
// absent or not a string.
func StringFromMap(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SaturatingF64ToF32 performs a saturating, non-finite-rejecting numeric
// coercion: NaN/Inf or out-of-range values fall back to the provided
// default rather than overflowing or producing garbage.
func SaturatingF64ToF32(v float64, fallback float32) float32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	if v > math.MaxFloat32 {
		return math.MaxFloat32
	}
	if v < -math.MaxFloat32 {
		return -math.MaxFloat32
	}
	return float32(v)
}
