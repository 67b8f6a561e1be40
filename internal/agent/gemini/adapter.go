// Package gemini implements the agent.Adapter contract for Google's Gemini
// CLI.
package gemini

import (
	"encoding/json"
	"regexp"

	"github.com/agentmesh/controller/internal/agent"
)

var modelPattern = regexp.MustCompile(`(?i)^gemini-`)

func init() {
	agent.Register(agent.KindGemini, New)
}

// Adapter implements agent.Adapter for the Gemini CLI.
type Adapter struct {
	agent.BaseAdapter
	Namespace string
}

// New creates a new Gemini adapter.
func New() agent.Adapter {
	return &Adapter{
		BaseAdapter: agent.BaseAdapter{
			Kind:           agent.KindGemini,
			MemoryFilename: "GEMINI.md",
			Executable:     "gemini",
			Capabilities: agent.CliCapabilities{
				SupportsStreaming:     true,
				SupportsMultimodal:    true,
				SupportsFunctionCalls: true,
				SupportsSystemPrompts: true,
				MaxContextTokens:      1_000_000,
				MemoryStrategy:        agent.MemoryStrategyFile,
				ConfigFormat:          agent.ConfigFormatJSON,
				AcceptedAuthMethods:   []string{"api_key", "oauth"},
			},
		},
	}
}

// ValidateModel reports whether model looks like a Gemini model name.
// Never fails; non-matches simply return false.
func (a *Adapter) ValidateModel(model string) bool {
	return modelPattern.MatchString(model)
}

type geminiDoc struct {
	Metadata agent.ConfigMetadata `json:"metadata"`
	Agent    agent.ConfigParams   `json:"agent"`
}

// GenerateConfig renders the JSON settings.json the Gemini CLI reads on
// startup.
func (a *Adapter) GenerateConfig(cfg agent.AgentConfig) (string, error) {
	if err := a.ValidateConfig(cfg); err != nil {
		return "", err
	}

	doc := geminiDoc{
		Metadata: agent.BuildMetadata(cfg),
		Agent:    agent.BuildParams(cfg, a.Namespace, toolNames(cfg)),
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &agent.TemplateError{Template: "gemini_config", Cause: err}
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

// FormatPrompt applies Gemini's prompt dialect: plain text, no wrapping
// required.
func (a *Adapter) FormatPrompt(prompt string) string {
	return prompt
}

// ParseResponse normalises Gemini CLI's NDJSON output, which reports tool
// calls via a top-level "commands" array.
func (a *Adapter) ParseResponse(raw string) agent.ParsedResponse {
	return agent.ParseLines(raw)
}
