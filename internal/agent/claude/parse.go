package claude

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/agentmesh/controller/internal/agent"
)

// eventType enumerates event types in Claude Code's stream-json output.
type eventType string

const (
	eventSystem    eventType = "system"
	eventAssistant eventType = "assistant"
	eventUser      eventType = "user"
	eventResult    eventType = "result"
)

type blockType string

const (
	blockText       blockType = "text"
	blockThinking   blockType = "thinking"
	blockToolUse    blockType = "tool_use"
	blockToolResult blockType = "tool_result"
)

type tokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type rawContentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Name    string          `json:"name,omitempty"`
	ID      string          `json:"id,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Content interface{}     `json:"content,omitempty"`
}

type rawEvent struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
}

type rawMessage struct {
	Content []rawContentBlock `json:"content"`
}

type rawResult struct {
	Content    []rawContentBlock `json:"content"`
	Usage      *tokenUsage       `json:"usage,omitempty"`
	StopReason string            `json:"stop_reason,omitempty"`
	IsError    bool              `json:"is_error,omitempty"`
}

// parseStreamJSON parses Claude Code's NDJSON stream-json output into a
// ParsedResponse, per the shared contract: malformed lines fold into the
// plain-text segment, appended after structured content; tool calls appear
// in emission order.
func parseStreamJSON(raw string) agent.ParsedResponse {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return agent.ParsedResponse{FinishReason: agent.FinishStop}
	}

	var (
		textParts  [][]byte
		plainParts [][]byte
		toolCalls  []agent.ToolCall
		usage      *tokenUsage
		sawError   bool
	)

	lines := bytes.Split([]byte(raw), []byte("\n"))
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var evt rawEvent
		if err := json.Unmarshal(line, &evt); err != nil || evt.Type == "" {
			plainParts = append(plainParts, line)
			continue
		}

		switch eventType(evt.Type) {
		case eventAssistant, eventUser:
			var msg rawMessage
			if err := json.Unmarshal(evt.Message, &msg); err != nil {
				plainParts = append(plainParts, line)
				continue
			}
			extractBlocks(msg.Content, &textParts, &toolCalls)
			if evt.IsError {
				sawError = true
			}

		case eventResult:
			var res rawResult
			if err := json.Unmarshal(evt.Result, &res); err != nil {
				plainParts = append(plainParts, line)
				continue
			}
			extractBlocks(res.Content, &textParts, &toolCalls)
			if res.Usage != nil {
				usage = res.Usage
			}
			if res.IsError || evt.IsError {
				sawError = true
			}

		case eventSystem:
			// System events carry no user-visible text or tool calls.

		default:
			plainParts = append(plainParts, line)
		}
	}

	allText := strings.Join(
		[]string{string(bytes.Join(textParts, []byte("\n"))), string(bytes.Join(plainParts, []byte("\n")))},
		"\n",
	)
	allText = strings.Trim(allText, "\n")

	finish := agent.FinishStop
	if sawError {
		finish = agent.FinishError
	} else if len(toolCalls) > 0 {
		finish = agent.FinishToolCall
	}

	meta := agent.ResponseMetadata{Extra: map[string]interface{}{}}
	if usage != nil {
		meta.InputTokens = usage.InputTokens
		meta.OutputTokens = usage.OutputTokens
	}

	return agent.ParsedResponse{
		Text:         allText,
		ToolCalls:    toolCalls,
		Metadata:     meta,
		FinishReason: finish,
	}
}

func extractBlocks(blocks []rawContentBlock, textParts *[][]byte, toolCalls *[]agent.ToolCall) {
	for _, block := range blocks {
		switch blockType(block.Type) {
		case blockText:
			if block.Text != "" {
				*textParts = append(*textParts, []byte(block.Text))
			}
		case blockToolUse:
			*toolCalls = append(*toolCalls, agent.ToolCall{
				Name:      block.Name,
				Arguments: decodeArgs(block.Input),
				ID:        block.ID,
			})
		case blockToolResult:
			if s := blockContentToString(block.Content); s != "" {
				*textParts = append(*textParts, []byte(s))
			}
		case blockThinking:
			// Thinking content is internal reasoning, not surfaced text.
		}
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

func blockContentToString(content interface{}) string {
	switch v := content.(type) {
	case string:
		return v
	case []interface{}:
		var parts []string
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				if t, ok := m["text"].(string); ok {
					parts = append(parts, t)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
