package codex

import (
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/agentmesh/controller/internal/agent"
)

func TestAdapter_ValidateModel(t *testing.T) {
	a := New()
	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-5-codex", true},
		{"o3-mini", true},
		{"claude-opus-4-6", false},
	}
	for _, tt := range tests {
		if got := a.ValidateModel(tt.model); got != tt.want {
			t.Errorf("ValidateModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestAdapter_GetMemoryFilename(t *testing.T) {
	a := New()
	if got := a.GetMemoryFilename(); got != "AGENTS.md" {
		t.Errorf("GetMemoryFilename() = %q, want %q", got, "AGENTS.md")
	}
}

func TestAdapter_GenerateConfig_TOML(t *testing.T) {
	a := New()
	cfg := agent.AgentConfig{
		AgentIdentity: "impl-runner",
		CLI:           agent.KindCodex,
		GitHubApp:     "5dlabs-rex",
		Model:         "gpt-5-codex",
		CLIConfig:     map[string]interface{}{"model_reasoning_effort": "high"},
	}

	out, err := a.GenerateConfig(cfg)
	if err != nil {
		t.Fatalf("GenerateConfig() error = %v", err)
	}

	var doc codexDoc
	if err := toml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("GenerateConfig() produced invalid TOML: %v\n%s", err, out)
	}
	if doc.Agent.Model != "gpt-5-codex" {
		t.Errorf("Agent.Model = %q", doc.Agent.Model)
	}
	if doc.ReasoningEffort != "high" {
		t.Errorf("ReasoningEffort = %q, want %q", doc.ReasoningEffort, "high")
	}
}

func TestAdapter_FormatPrompt_AppendsStatusSignals(t *testing.T) {
	a := New()
	got := a.FormatPrompt("fix the bug")
	if !strings.HasPrefix(got, "fix the bug") || !strings.Contains(got, "AGENT_STATUS") {
		t.Errorf("FormatPrompt() = %q", got)
	}
}

func TestAdapter_ParseResponse_ItemCompleted(t *testing.T) {
	a := New()
	raw := `{"type":"item.completed","item":{"type":"agent_message","text":"Fixed the off-by-one."}}
{"type":"item.completed","item":{"type":"function_call","tool_name":"apply_patch","call_id":"c1"}}
{"type":"turn.completed","usage":{"input_tokens":80,"output_tokens":20}}`

	got := a.ParseResponse(raw)
	if !strings.Contains(got.Text, "Fixed the off-by-one.") {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.ToolCalls) != 1 || got.ToolCalls[0].Name != "apply_patch" || got.ToolCalls[0].ID != "c1" {
		t.Fatalf("ToolCalls = %v", got.ToolCalls)
	}
	if got.Metadata.InputTokens != 80 || got.Metadata.OutputTokens != 20 {
		t.Errorf("Metadata = %+v", got.Metadata)
	}
	if got.FinishReason != agent.FinishToolCall {
		t.Errorf("FinishReason = %v, want ToolCall", got.FinishReason)
	}
}

func TestAdapter_ParseResponse_TurnFailed(t *testing.T) {
	a := New()
	raw := `{"type":"turn.failed","error":{"message":"rate limited"}}`
	got := a.ParseResponse(raw)
	if got.FinishReason != agent.FinishError {
		t.Errorf("FinishReason = %v, want Error", got.FinishReason)
	}
	if !strings.Contains(got.Text, "rate limited") {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestAdapter_ParseResponse_Empty(t *testing.T) {
	a := New()
	got := a.ParseResponse("")
	if got.Text != "" || got.FinishReason != agent.FinishStop {
		t.Errorf("ParseResponse(empty) = %+v", got)
	}
}
