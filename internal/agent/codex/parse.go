package codex

import (
	"encoding/json"
	"strings"

	"github.com/agentmesh/controller/internal/agent"
)

type event struct {
	Type  string      `json:"type"`
	Item  *eventItem  `json:"item,omitempty"`
	Delta *eventDelta `json:"delta,omitempty"`
	Usage *eventUsage `json:"usage,omitempty"`
	Error *eventError `json:"error,omitempty"`
}

type eventItem struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Output    string          `json:"output,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	ToolID    string          `json:"call_id,omitempty"`
}

type eventDelta struct {
	Text string `json:"text,omitempty"`
}

type eventUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type eventError struct {
	Message string `json:"message"`
}

// parseJSONL parses Codex CLI's --json JSONL stream, per the shared
// line-oriented contract: unrecognised lines fold into plain text,
// commands surface as tool calls, and finish reason follows the
// Error > ToolCall > Stop precedence.
func parseJSONL(raw string) agent.ParsedResponse {
	if strings.TrimSpace(raw) == "" {
		return agent.ParsedResponse{FinishReason: agent.FinishStop}
	}

	var textParts, plainParts []string
	var toolCalls []agent.ToolCall
	var usage eventUsage
	var sawError bool

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var evt event
		if err := json.Unmarshal([]byte(line), &evt); err != nil || evt.Type == "" {
			plainParts = append(plainParts, line)
			continue
		}

		switch evt.Type {
		case "item.completed":
			if evt.Item == nil {
				continue
			}
			switch evt.Item.Type {
			case "agent_message":
				if evt.Item.Text != "" {
					textParts = append(textParts, evt.Item.Text)
				}
			case "command_execution", "file_change":
				if evt.Item.Output != "" {
					textParts = append(textParts, evt.Item.Output)
				}
			case "function_call":
				toolCalls = append(toolCalls, agent.ToolCall{
					Name:      evt.Item.ToolName,
					Arguments: decodeArgs(evt.Item.ToolInput),
					ID:        evt.Item.ToolID,
				})
			}
		case "item.delta", "response.output_text.delta":
			if evt.Delta != nil && evt.Delta.Text != "" {
				textParts = append(textParts, evt.Delta.Text)
			}
		case "turn.completed":
			if evt.Usage != nil {
				usage = *evt.Usage
			}
		case "turn.failed", "error":
			sawError = true
			if evt.Error != nil && evt.Error.Message != "" {
				textParts = append(textParts, evt.Error.Message)
			}
		default:
			plainParts = append(plainParts, line)
		}
	}

	text := strings.TrimSpace(strings.Join(append(textParts, plainParts...), "\n"))

	finish := agent.FinishStop
	switch {
	case sawError:
		finish = agent.FinishError
	case len(toolCalls) > 0:
		finish = agent.FinishToolCall
	}

	return agent.ParsedResponse{
		Text:      text,
		ToolCalls: toolCalls,
		Metadata: agent.ResponseMetadata{
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			Extra:        map[string]interface{}{},
		},
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
