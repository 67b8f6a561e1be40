// Package factory implements the agent.Adapter contract for Factory AI's
// droid CLI.
package factory

import (
	"encoding/json"
	"regexp"

	"github.com/agentmesh/controller/internal/agent"
)

var modelPattern = regexp.MustCompile(`(?i)^(claude-|gpt-|o[0-9]|gemini-)`)

func init() {
	agent.Register(agent.KindFactory, New)
}

// Adapter implements agent.Adapter for Factory's droid CLI.
type Adapter struct {
	agent.BaseAdapter
	Namespace string
}

// New creates a new Factory adapter.
func New() agent.Adapter {
	return &Adapter{
		BaseAdapter: agent.BaseAdapter{
			Kind:           agent.KindFactory,
			MemoryFilename: "AGENTS.md",
			Executable:     "droid",
			Capabilities: agent.CliCapabilities{
				SupportsStreaming:     true,
				SupportsMultimodal:    false,
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
// droid re-exports. Never fails; non-matches simply return false.
func (a *Adapter) ValidateModel(model string) bool {
	return modelPattern.MatchString(model)
}

type factoryDoc struct {
	Metadata agent.ConfigMetadata `json:"metadata"`
	Agent    agent.ConfigParams   `json:"agent"`
}

// GenerateConfig renders the JSON configuration droid reads on startup.
func (a *Adapter) GenerateConfig(cfg agent.AgentConfig) (string, error) {
	if err := a.ValidateConfig(cfg); err != nil {
		return "", err
	}

	doc := factoryDoc{
		Metadata: agent.BuildMetadata(cfg),
		Agent:    agent.BuildParams(cfg, a.Namespace, toolNames(cfg)),
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &agent.TemplateError{Template: "factory_config", Cause: err}
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

// FormatPrompt applies droid's prompt dialect: plain text, no wrapping
// required.
func (a *Adapter) FormatPrompt(prompt string) string {
	return prompt
}

// ParseResponse normalises droid's NDJSON output, which reports tool calls
// via explicit "type": "tool_call" events rather than a commands array.
func (a *Adapter) ParseResponse(raw string) agent.ParsedResponse {
	return agent.ParseLines(raw)
}
