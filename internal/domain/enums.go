// Package domain defines the core domain models for the voice agent.
package domain

// CallStatus represents the lifecycle state of a call session.
type CallStatus string

const (
	CallStatusCreated     CallStatus = "CREATED"
	CallStatusConfiguring CallStatus = "CONFIGURING"
	CallStatusActive      CallStatus = "ACTIVE"
	CallStatusTerminated  CallStatus = "TERMINATED"
)

// ToolCallStatus represents the status of a tool call.
type ToolCallStatus string

const (
	ToolCallStatusRunning   ToolCallStatus = "RUNNING"
	ToolCallStatusSucceeded ToolCallStatus = "SUCCEEDED"
	ToolCallStatusFailed    ToolCallStatus = "FAILED"
	ToolCallStatusBlocked   ToolCallStatus = "BLOCKED"
)

// Tool error codes returned to the agent.
const (
	ToolErrorLocationNotFound  = "location_not_found"
	ToolErrorMalformedResponse = "malformed_response"
	ToolErrorLookupFailed      = "lookup_failed"
	ToolErrorInvalidArguments  = "invalid_arguments"
	ToolErrorBlocked           = "tool_blocked"
	ToolErrorUnknownTool       = "unknown_tool"
)

// Completion reasons reported by the agent that denote an upstream failure.
const (
	CompletionServerFailure = "server failure"
	CompletionServerError   = "server error"
)

// ErrorCodeRateLimitExceeded is the upstream error code for rate limiting.
const ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
