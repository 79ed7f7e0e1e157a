package domain

import "encoding/json"

// Notification is one inbound callback for a call session. The set of
// variants is closed; handlers switch over them exhaustively.
type Notification interface {
	notification()
}

// SessionNew starts a call session.
type SessionNew struct {
	MsgID   string
	CallSID string
	Path    string
	Payload json.RawMessage
}

// AgentEvent is an informational event emitted by the remote agent.
type AgentEvent struct {
	Payload json.RawMessage
}

// ToolCallRequest asks the application to run a tool.
type ToolCallRequest struct {
	Invocation ToolInvocation
}

// Final is the agent's completion notification. It must be replied to.
type Final struct {
	MsgID      string
	Completion CompletionEvent
	Payload    json.RawMessage
}

// UnknownHook is a hook message for a path the application did not register.
type UnknownHook struct {
	MsgID   string
	Hook    string
	Payload json.RawMessage
}

// Closed reports the transport connection closed.
type Closed struct {
	Code   int
	Reason string
}

// Failed reports a transport level error.
type Failed struct {
	Err error
}

func (SessionNew) notification()      {}
func (AgentEvent) notification()      {}
func (ToolCallRequest) notification() {}
func (Final) notification()           {}
func (UnknownHook) notification()     {}
func (Closed) notification()          {}
func (Failed) notification()          {}
