package gemini

import (
	"encoding/json"
	"testing"

	"github.com/agentmesh/controller/internal/agent"
)

func TestAdapter_ValidateModel(t *testing.T) {
	a := New()
	if !a.ValidateModel("gemini-2.5-pro") {
		t.Error("ValidateModel(gemini-2.5-pro) = false, want true")
	}
	if a.ValidateModel("gpt-4o") {
		t.Error("ValidateModel(gpt-4o) = true, want false")
	}
}

func TestAdapter_GetMemoryFilename(t *testing.T) {
	a := New()
	if got := a.GetMemoryFilename(); got != "GEMINI.md" {
		t.Errorf("GetMemoryFilename() = %q, want %q", got, "GEMINI.md")
	}
}

func TestAdapter_GenerateConfig(t *testing.T) {
	a := New()
	cfg := agent.AgentConfig{
		AgentIdentity: "qa-runner",
		CLI:           agent.KindGemini,
		GitHubApp:     "5dlabs-tess",
		Model:         "gemini-2.5-pro",
	}
	out, err := a.GenerateConfig(cfg)
	if err != nil {
		t.Fatalf("GenerateConfig() error = %v", err)
	}
	var doc geminiDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Agent.Model != "gemini-2.5-pro" {
		t.Errorf("Agent.Model = %q", doc.Agent.Model)
	}
}

func TestAdapter_ParseResponse_CommandsArray(t *testing.T) {
	a := New()
	raw := `{"type":"result","text":"analysis complete","commands":[{"name":"read_file","args":{"path":"main.go"}}]}`
	got := a.ParseResponse(raw)
	if len(got.ToolCalls) != 1 || got.ToolCalls[0].Name != "read_file" {
		t.Fatalf("ToolCalls = %v", got.ToolCalls)
	}
	if got.FinishReason != agent.FinishToolCall {
		t.Errorf("FinishReason = %v, want ToolCall", got.FinishReason)
	}
}
