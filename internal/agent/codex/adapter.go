// Package codex implements the agent.Adapter contract for OpenAI's Codex
// CLI.
package codex

import (
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/agentmesh/controller/internal/agent"
)

var modelPattern = regexp.MustCompile(`(?i)^(o[0-9]|gpt-|codex-)`)

func init() {
	agent.Register(agent.KindCodex, New)
}

// Adapter implements agent.Adapter for the Codex CLI.
type Adapter struct {
	agent.BaseAdapter
	Namespace string
}

// New creates a new Codex adapter.
func New() agent.Adapter {
	return &Adapter{
		BaseAdapter: agent.BaseAdapter{
			Kind:           agent.KindCodex,
			MemoryFilename: "AGENTS.md",
			Executable:     "codex",
			Capabilities: agent.CliCapabilities{
				SupportsStreaming:     true,
				SupportsMultimodal:    false,
				SupportsFunctionCalls: true,
				SupportsSystemPrompts: true,
				MaxContextTokens:      128_000,
				MemoryStrategy:        agent.MemoryStrategyFile,
				ConfigFormat:          agent.ConfigFormatTOML,
				AcceptedAuthMethods:   []string{"api_key"},
			},
		},
	}
}

// ValidateModel reports whether model looks like a model Codex accepts.
// Never fails; non-matches simply return false.
func (a *Adapter) ValidateModel(model string) bool {
	return modelPattern.MatchString(model)
}

type codexDoc struct {
	Metadata agent.ConfigMetadata `toml:"metadata"`
	Agent    agent.ConfigParams   `toml:"agent"`
	ReasoningEffort string        `toml:"model_reasoning_effort,omitempty"`
}

// GenerateConfig renders the TOML configuration Codex reads via -c
// key=value overlays, matching the CLI table's TOML/AGENTS.md entry.
func (a *Adapter) GenerateConfig(cfg agent.AgentConfig) (string, error) {
	if err := a.ValidateConfig(cfg); err != nil {
		return "", err
	}

	reasoning := agent.FirstNonEmptyString(
		agent.StringFromMap(cfg.CLIConfig, "model_reasoning_effort"),
		agent.StringFromMap(cfg.Settings, "model_reasoning_effort"),
		"",
	)

	doc := codexDoc{
		Metadata:        agent.BuildMetadata(cfg),
		Agent:           agent.BuildParams(cfg, a.Namespace, toolNames(cfg)),
		ReasoningEffort: reasoning,
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return "", &agent.TemplateError{Template: "codex_config", Cause: err}
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

// FormatPrompt appends Codex's status-signal instructions to the developer
// instructions, the same convention the CLI's own exec harness uses to
// surface milestone signals in plain-text output.
func (a *Adapter) FormatPrompt(prompt string) string {
	return prompt + "\n\n" + statusSignalInstructions
}

const statusSignalInstructions = `When you complete a significant milestone, output a status signal on its own line in this format:
AGENT_STATUS: STATUS_NAME optional message

Available status values:
- TESTS_PASSED, TESTS_FAILED, PR_CREATED, PUSHED, COMPLETE, NOTHING_TO_DO, BLOCKED, ANALYZING, TESTS_RUNNING`

// ParseResponse normalises Codex CLI's --json JSONL output.
func (a *Adapter) ParseResponse(raw string) agent.ParsedResponse {
	return parseJSONL(raw)
}
