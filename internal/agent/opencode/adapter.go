// Package opencode implements the agent.Adapter contract for the OpenCode
// CLI.
package opencode

import (
	"encoding/json"
	"regexp"

	"github.com/agentmesh/controller/internal/agent"
)

var modelPattern = regexp.MustCompile(`.+/.+`)

func init() {
	agent.Register(agent.KindOpenCode, New)
}

// Adapter implements agent.Adapter for the OpenCode CLI. OpenCode models
// are addressed as "<provider>/<model>", so validation only checks shape.
type Adapter struct {
	agent.BaseAdapter
	Namespace string
}

// New creates a new OpenCode adapter.
func New() agent.Adapter {
	return &Adapter{
		BaseAdapter: agent.BaseAdapter{
			Kind:           agent.KindOpenCode,
			MemoryFilename: "OPENCODE.md",
			Executable:     "opencode",
			Capabilities: agent.CliCapabilities{
				SupportsStreaming:     true,
				SupportsMultimodal:    false,
				SupportsFunctionCalls: true,
				SupportsSystemPrompts: true,
				MaxContextTokens:      128_000,
				MemoryStrategy:        agent.MemoryStrategyFile,
				ConfigFormat:          agent.ConfigFormatJSON,
				AcceptedAuthMethods:   []string{"api_key"},
			},
		},
	}
}

// ValidateModel reports whether model follows OpenCode's
// "<provider>/<model>" addressing scheme. Never fails; non-matches simply
// return false.
func (a *Adapter) ValidateModel(model string) bool {
	return modelPattern.MatchString(model)
}

type opencodeDoc struct {
	Metadata agent.ConfigMetadata `json:"metadata"`
	Agent    agent.ConfigParams   `json:"agent"`
}

// GenerateConfig renders the JSON opencode.json configuration.
func (a *Adapter) GenerateConfig(cfg agent.AgentConfig) (string, error) {
	if err := a.ValidateConfig(cfg); err != nil {
		return "", err
	}

	doc := opencodeDoc{
		Metadata: agent.BuildMetadata(cfg),
		Agent:    agent.BuildParams(cfg, a.Namespace, toolNames(cfg)),
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &agent.TemplateError{Template: "opencode_config", Cause: err}
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

// FormatPrompt applies OpenCode's prompt dialect: plain text, no wrapping
// required.
func (a *Adapter) FormatPrompt(prompt string) string {
	return prompt
}

// ParseResponse normalises OpenCode's NDJSON output, which reports tool
// calls via a top-level "commands" array.
func (a *Adapter) ParseResponse(raw string) agent.ParsedResponse {
	return agent.ParseLines(raw)
}
