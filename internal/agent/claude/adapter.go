// Package claude implements the agent.Adapter contract for Anthropic's
// Claude Code CLI.
package claude

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/agentmesh/controller/internal/agent"
)

var modelPattern = regexp.MustCompile(`(?i)^claude-`)

func init() {
	agent.Register(agent.KindClaude, New)
}

// Adapter implements agent.Adapter for Claude Code.
type Adapter struct {
	agent.BaseAdapter
	Namespace string
}

// New creates a new Claude Code adapter.
func New() agent.Adapter {
	return &Adapter{
		BaseAdapter: agent.BaseAdapter{
			Kind:           agent.KindClaude,
			MemoryFilename: "CLAUDE.md",
			Executable:     "claude",
			Capabilities: agent.CliCapabilities{
				SupportsStreaming:     true,
				SupportsMultimodal:    true,
				SupportsFunctionCalls: true,
				SupportsSystemPrompts: true,
				MaxContextTokens:      200_000,
				MemoryStrategy:        agent.MemoryStrategyFile,
				ConfigFormat:          agent.ConfigFormatJSON,
				AcceptedAuthMethods:   []string{"api_key", "oauth", "bedrock"},
			},
		},
	}
}

// ValidateModel reports whether model looks like a Claude model name.
// Never fails; non-matches simply return false.
func (a *Adapter) ValidateModel(model string) bool {
	return modelPattern.MatchString(model)
}

type claudeDoc struct {
	Metadata agent.ConfigMetadata `json:"metadata"`
	Agent    agent.ConfigParams   `json:"agent"`
	AuthMode string               `json:"auth_mode"`
	SystemPromptFile string       `json:"system_prompt_file,omitempty"`
}

// GenerateConfig renders the JSON configuration artefact Claude Code reads
// on disk. Values are pulled from cli_config first, then settings, then
// AgentConfig fields, then the CLI default — first non-empty wins.
func (a *Adapter) GenerateConfig(cfg agent.AgentConfig) (string, error) {
	if err := a.ValidateConfig(cfg); err != nil {
		return "", err
	}

	authMode := agent.FirstNonEmptyString(
		agent.StringFromMap(cfg.CLIConfig, "auth_mode"),
		agent.StringFromMap(cfg.Settings, "auth_mode"),
		"api",
	)

	doc := claudeDoc{
		Metadata: agent.BuildMetadata(cfg),
		Agent:    agent.BuildParams(cfg, a.Namespace, toolNames(cfg)),
		AuthMode: authMode,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &agent.TemplateError{Template: "claude_config", Cause: err}
	}
	return string(out), nil
}

func toolNames(cfg agent.AgentConfig) []string {
	if cfg.Tools == nil {
		return nil
	}
	names := make([]string, 0, len(cfg.Tools.LocalServers))
	for _, t := range cfg.Tools.LocalServers {
		names = append(names, t.Name)
	}
	return names
}

// FormatPrompt applies Claude Code's prompt dialect: plain text, no
// wrapping required.
func (a *Adapter) FormatPrompt(prompt string) string {
	return prompt
}

// ParseResponse normalises Claude Code's NDJSON stream-json output.
func (a *Adapter) ParseResponse(raw string) agent.ParsedResponse {
	return parseStreamJSON(raw)
}

// Initialize writes the memory file marker into the workload env on top of
// the base adapter's AGENT_CLI/AGENT_GITHUB_APP injection.
func (a *Adapter) Initialize(ctx context.Context, wc *agent.WorkloadContext, cfg agent.AgentConfig) error {
	if err := a.BaseAdapter.Initialize(ctx, wc, cfg); err != nil {
		return err
	}
	wc.Env["CLAUDE_CODE_USE_BEDROCK"] = "0"
	return nil
}
