// Package protocol defines the websocket message protocol between the call
// platform and the voice agent application.
package protocol

import "encoding/json"

// Subprotocol is negotiated on every call websocket.
const Subprotocol = "ws.jambonz.org"

// Message types from the platform to the application
const (
	TypeSessionNew       = "session:new"
	TypeSessionReconnect = "session:reconnect"
	TypeSessionRedirect  = "session:redirect"
	TypeVerbHook         = "verb:hook"
	TypeVerbStatus       = "verb:status"
	TypeCallStatus       = "call:status"
	TypeLLMEvent         = "llm:event"
	TypeLLMToolCall      = "llm:tool-call"
	TypeError            = "jambonz:error"
)

// Message types from the application to the platform
const (
	TypeAck     = "ack"
	TypeCommand = "command"
)

// Commands sent with TypeCommand.
const (
	CommandToolOutput = "llm:tool-output"
)

// Message is the envelope of every frame received from the platform.
type Message struct {
	Type    string          `json:"type"`
	MsgID   string          `json:"msgid,omitempty"`
	CallSID string          `json:"call_sid,omitempty"`
	Hook    string          `json:"hook,omitempty"`
	B3      string          `json:"b3,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CallInfo is the data of a session:new message.
type CallInfo struct {
	CallSID   string `json:"call_sid"`
	Direction string `json:"direction,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	AccountID string `json:"account_sid,omitempty"`
}

// ToolCallData is the data of an llm:tool-call message.
type ToolCallData struct {
	Name       string          `json:"name"`
	ToolCallID string          `json:"tool_call_id"`
	Args       json.RawMessage `json:"args"`
}

// CompletionData is the data of the llm verb's action hook.
type CompletionData struct {
	CompletionReason string           `json:"completion_reason"`
	Error            *CompletionError `json:"error,omitempty"`
}

// CompletionError describes an upstream agent failure.
type CompletionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorData is the data of a jambonz:error message.
type ErrorData struct {
	Error string `json:"error"`
}

// AckMessage acknowledges a session:new or verb:hook message and carries
// the verbs the platform should execute next.
type AckMessage struct {
	Type  string `json:"type"`
	MsgID string `json:"msgid"`
	Data  []Verb `json:"data"`
}

// ToolOutputCommand delivers a tool result to the agent.
type ToolOutputCommand struct {
	Type         string      `json:"type"`
	Command      string      `json:"command"`
	QueueCommand bool        `json:"queueCommand"`
	ToolCallID   string      `json:"tool_call_id"`
	Data         interface{} `json:"data"`
}

// NewAck builds an ack for msgID. A nil verb list is sent as [].
func NewAck(msgID string, verbs []Verb) AckMessage {
	if verbs == nil {
		verbs = []Verb{}
	}
	return AckMessage{Type: TypeAck, MsgID: msgID, Data: verbs}
}

// NewToolOutput builds an llm:tool-output command.
func NewToolOutput(toolCallID string, data interface{}) ToolOutputCommand {
	return ToolOutputCommand{
		Type:       TypeCommand,
		Command:    CommandToolOutput,
		ToolCallID: toolCallID,
		Data:       data,
	}
}
