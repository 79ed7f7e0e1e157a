package domain

import "time"

// Call is the stored record of one call session.
type Call struct {
	CallSID          string     `json:"call_sid"`
	Path             string     `json:"path"`
	Status           CallStatus `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CompletionReason string     `json:"completion_reason,omitempty"`
	ErrorCode        string     `json:"error_code,omitempty"`
	CloseCode        int        `json:"close_code,omitempty"`
	CloseReason      string     `json:"close_reason,omitempty"`
}

// CompletionEvent is the terminal notification of a conversational turn.
type CompletionEvent struct {
	Reason string
	Error  *CompletionError
}

// CompletionError is the nested error of a failed completion.
type CompletionError struct {
	Code    string
	Message string
}

// Failed reports whether the completion reason denotes an upstream failure.
func (e CompletionEvent) Failed() bool {
	return e.Reason == CompletionServerFailure || e.Reason == CompletionServerError
}

// ErrorCode returns the nested error code, or "" when absent.
func (e CompletionEvent) ErrorCode() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}
