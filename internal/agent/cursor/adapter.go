// Package cursor implements the agent.Adapter contract for the Cursor CLI
// agent.
package cursor

import (
	"encoding/json"
	"regexp"

	"github.com/agentmesh/controller/internal/agent"
)

var modelPattern = regexp.MustCompile(`(?i)^(cursor-|claude-|gpt-|o[0-9])`)

func init() {
	agent.Register(agent.KindCursor, New)
}

// Adapter implements agent.Adapter for the Cursor CLI. Cursor's own model
// catalog re-exports several upstream providers, so model validation is
// permissive by design.
type Adapter struct {
	agent.BaseAdapter
	Namespace string
}

// New creates a new Cursor adapter.
func New() agent.Adapter {
	return &Adapter{
		BaseAdapter: agent.BaseAdapter{
			Kind:           agent.KindCursor,
			MemoryFilename: ".cursor/rules/agent.mdc",
			Executable:     "cursor-agent",
			Capabilities: agent.CliCapabilities{
				SupportsStreaming:     true,
				SupportsMultimodal:    true,
				SupportsFunctionCalls: true,
				SupportsSystemPrompts: true,
				MaxContextTokens:      200_000,
				MemoryStrategy:        agent.MemoryStrategyFile,
				ConfigFormat:          agent.ConfigFormatJSON,
				AcceptedAuthMethods:   []string{"api_key"},
			},
		},
	}
}

// ValidateModel reports whether model looks like one of the model families
// Cursor re-exports. Never fails; non-matches simply return false.
func (a *Adapter) ValidateModel(model string) bool {
	return modelPattern.MatchString(model)
}

type cursorDoc struct {
	Metadata agent.ConfigMetadata   `json:"metadata"`
	Agent    agent.ConfigParams     `json:"agent"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// GenerateConfig renders Cursor's JSON configuration. Cursor additionally
// accepts a free-form "raw" passthrough block, sourced from cli_config's
// "raw" key when present, for settings the common schema doesn't cover.
func (a *Adapter) GenerateConfig(cfg agent.AgentConfig) (string, error) {
	if err := a.ValidateConfig(cfg); err != nil {
		return "", err
	}

	var raw map[string]interface{}
	if v, ok := cfg.CLIConfig["raw"]; ok {
		if m, ok := v.(map[string]interface{}); ok {
			raw = m
		}
	}

	doc := cursorDoc{
		Metadata: agent.BuildMetadata(cfg),
		Agent:    agent.BuildParams(cfg, a.Namespace, toolNames(cfg)),
		Raw:      raw,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &agent.TemplateError{Template: "cursor_config", Cause: err}
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

// FormatPrompt applies Cursor's prompt dialect: plain text, no wrapping
// required.
func (a *Adapter) FormatPrompt(prompt string) string {
	return prompt
}

// ParseResponse normalises Cursor CLI's NDJSON output.
func (a *Adapter) ParseResponse(raw string) agent.ParsedResponse {
	return agent.ParseLines(raw)
}
