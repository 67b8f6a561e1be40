package agent

import (
	"encoding/json"
	"strings"
)

// rawLine is the top-level discriminator shape every adapter's NDJSON
// stream line is matched against. CLI-specific adapters pre-normalise
// their own event shapes into this common envelope before calling
// ParseLines (see each adapter's parse.go).
type rawLine struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	ToolArgs json.RawMessage `json:"tool_args,omitempty"`
	ToolID   string          `json:"tool_id,omitempty"`
	Commands []rawCommand    `json:"commands,omitempty"`
	IsError  bool            `json:"is_error,omitempty"`
	Error    string          `json:"error,omitempty"`
	Model    string          `json:"model,omitempty"`
	Input    int             `json:"input_tokens,omitempty"`
	Output   int             `json:"output_tokens,omitempty"`
}

type rawCommand struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ParseLines implements the shared line-by-line JSON decoding pass
// described in §4.1: each line is matched on a `type` discriminator
// (message, tool_call, tool_result, result, error); unrecognised lines
// become plain-text segments appended after structured content. Finish
// reason is Error if any error/is_error result was seen, else ToolCall if
// any tool calls were extracted, else Stop.
//
// Tool-call extraction supports both the top-level `commands: [...]` array
// shape (Codex/Gemini/OpenCode) and the explicit `type: tool_call` event
// shape (Factory); arguments default to an empty object if missing or null.
func ParseLines(raw string) ParsedResponse {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParsedResponse{
			Text:         "",
			ToolCalls:    nil,
			FinishReason: FinishStop,
		}
	}

	var (
		textParts   []string
		plainParts  []string
		toolCalls   []ToolCall
		sawError    bool
		errorText   string
		meta        ResponseMetadata
	)
	meta.Extra = map[string]interface{}{}

	lines := strings.Split(raw, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rl rawLine
		if err := json.Unmarshal([]byte(line), &rl); err != nil || rl.Type == "" {
			// Unrecognised line: fold into plain text, appended after
			// structured content.
			plainParts = append(plainParts, line)
			continue
		}

		switch rl.Type {
		case "message":
			if rl.Text != "" {
				textParts = append(textParts, rl.Text)
			}
		case "tool_call":
			toolCalls = append(toolCalls, ToolCall{
				Name:      rl.ToolName,
				Arguments: decodeArgs(rl.ToolArgs),
				ID:        rl.ToolID,
			})
		case "tool_result":
			if rl.Text != "" {
				textParts = append(textParts, rl.Text)
			}
		case "result":
			if rl.Text != "" {
				textParts = append(textParts, rl.Text)
			}
			if rl.IsError {
				sawError = true
				errorText = rl.Error
			}
			if rl.Model != "" {
				meta.Model = rl.Model
			}
			if rl.Input > 0 {
				meta.InputTokens = rl.Input
			}
			if rl.Output > 0 {
				meta.OutputTokens = rl.Output
			}
			for _, cmd := range rl.Commands {
				toolCalls = append(toolCalls, ToolCall{Name: cmd.Name, Arguments: decodeArgs(cmd.Args)})
			}
		case "error":
			sawError = true
			if rl.Error != "" {
				errorText = rl.Error
			} else if rl.Text != "" {
				errorText = rl.Text
			}
		default:
			plainParts = append(plainParts, line)
		}

		if len(rl.Commands) > 0 && rl.Type != "result" {
			for _, cmd := range rl.Commands {
				toolCalls = append(toolCalls, ToolCall{Name: cmd.Name, Arguments: decodeArgs(cmd.Args)})
			}
		}
	}

	allText := strings.Join(append(textParts, plainParts...), "\n")

	finish := FinishStop
	if sawError {
		finish = FinishError
		if errorText != "" {
			meta.Extra["error"] = errorText
		}
	} else if len(toolCalls) > 0 {
		finish = FinishToolCall
	}

	return ParsedResponse{
		Text:         allText,
		ToolCalls:    toolCalls,
		Metadata:     meta,
		FinishReason: finish,
	}
}

func decodeArgs(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}
