package agent

import (
	"os"
	"time"
)

// Defaults from the external interfaces contract (§6): callers may omit
// these, in which case the adapter fills them in.
const (
	DefaultApprovalPolicy   = "never"
	DefaultSandboxMode      = "danger-full-access"
	DefaultProjectDocMaxBytes = 32_768
)

// ConfigMetadata is carried by every CLI-specific configuration artefact.
type ConfigMetadata struct {
	Timestamp     time.Time `json:"timestamp" toml:"timestamp"`
	CorrelationID string    `json:"correlation_id" toml:"correlation_id"`
	CLI           string    `json:"cli" toml:"cli"`
	GitHubApp     string    `json:"github_app" toml:"github_app"`
}

// ConfigParams is the common agent-parameter block every CLI's
// configuration artefact carries, regardless of on-disk format.
type ConfigParams struct {
	Model          string   `json:"model" toml:"model"`
	MaxTokens      int      `json:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Temperature    float64  `json:"temperature,omitempty" toml:"temperature,omitempty"`
	ApprovalPolicy string   `json:"approval_policy" toml:"approval_policy"`
	SandboxMode    string   `json:"sandbox_mode" toml:"sandbox_mode"`
	ToolURL        string   `json:"tool_url,omitempty" toml:"tool_url,omitempty"`
	ToolList       []string `json:"tool_list,omitempty" toml:"tool_list,omitempty"`
}

// ResolveRemoteToolsURL resolves the remote MCP tools endpoint: the
// AgentConfig's tool bundle first, then env var TOOLS_SERVER_URL, then the
// in-cluster fallback for namespace ns.
func ResolveRemoteToolsURL(cfg AgentConfig, namespace string) string {
	if cfg.Tools != nil && cfg.Tools.RemoteToolsURL != "" {
		return cfg.Tools.RemoteToolsURL
	}
	if v := os.Getenv("TOOLS_SERVER_URL"); v != "" {
		return v
	}
	if namespace == "" {
		namespace = "default"
	}
	return "http://tools." + namespace + ".svc.cluster.local:3000/mcp"
}

// BuildParams assembles the common ConfigParams block for cfg, applying the
// "first non-empty wins" precedence rule (cli_config, then settings, then
// AgentConfig fields, then CLI-specific default) for approval policy and
// sandbox mode, and the saturating numeric coercion for temperature.
func BuildParams(cfg AgentConfig, namespace string, toolList []string) ConfigParams {
	approval := FirstNonEmptyString(
		StringFromMap(cfg.CLIConfig, "approval_policy"),
		StringFromMap(cfg.Settings, "approval_policy"),
		DefaultApprovalPolicy,
	)
	sandbox := FirstNonEmptyString(
		StringFromMap(cfg.CLIConfig, "sandbox_mode"),
		StringFromMap(cfg.Settings, "sandbox_mode"),
		DefaultSandboxMode,
	)

	maxTokens := 0
	if cfg.TokenBudget != nil {
		maxTokens = *cfg.TokenBudget
	}

	temp := 0.0
	if cfg.Temperature != nil {
		temp = float64(SaturatingF64ToF32(*cfg.Temperature, 0))
	}

	return ConfigParams{
		Model:          cfg.Model,
		MaxTokens:      maxTokens,
		Temperature:    temp,
		ApprovalPolicy: approval,
		SandboxMode:    sandbox,
		ToolURL:        ResolveRemoteToolsURL(cfg, namespace),
		ToolList:       toolList,
	}
}

// BuildMetadata assembles the common ConfigMetadata block.
func BuildMetadata(cfg AgentConfig) ConfigMetadata {
	ts := cfg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return ConfigMetadata{
		Timestamp:     ts,
		CorrelationID: cfg.CorrelationID,
		CLI:           string(cfg.CLI),
		GitHubApp:     cfg.GitHubApp,
	}
}
