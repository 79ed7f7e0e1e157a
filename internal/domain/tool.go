package domain

import (
	"encoding/json"
	"time"
)

// ToolInvocation is a tool call requested by the remote agent.
type ToolInvocation struct {
	Name       string          `json:"name"`
	ToolCallID string          `json:"tool_call_id"`
	Args       json.RawMessage `json:"args"`
}

// ToolError is the stable error shape sent to the agent when a tool fails.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return e.Code + ": " + e.Message
}

// FunctionCallResponse is the envelope of every tool output.
const FunctionCallResponse = "FunctionCallResponse"

// ToolResult is the single response emitted for a ToolInvocation. Exactly one
// of Output and Error is set.
type ToolResult struct {
	ToolCallID string
	Output     json.RawMessage
	Error      *ToolError
}

// Succeeded reports whether the result carries an output.
func (r ToolResult) Succeeded() bool {
	return r.Error == nil
}

// Payload renders the result as sent to the agent.
func (r ToolResult) Payload() map[string]interface{} {
	var output interface{} = r.Output
	if r.Error != nil {
		output = map[string]interface{}{"error": r.Error}
	}
	return map[string]interface{}{
		"type":             FunctionCallResponse,
		"function_call_id": r.ToolCallID,
		"output":           output,
	}
}

// ToolCall is the stored record of a tool invocation.
type ToolCall struct {
	ToolCallID  string          `json:"tool_call_id"`
	CallSID     string          `json:"call_sid"`
	ToolName    string          `json:"tool_name"`
	Status      ToolCallStatus  `json:"status"`
	Args        json.RawMessage `json:"args"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
