// Package repository persists call and tool call records.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
)

// Store defines the interface for call record persistence.
type Store interface {
	// Call operations
	CreateCall(ctx context.Context, call *domain.Call) error
	GetCall(ctx context.Context, callSID string) (*domain.Call, error)
	ListCalls(ctx context.Context, limit int) ([]domain.Call, error)
	UpdateCallStatus(ctx context.Context, callSID string, status domain.CallStatus) error
	UpdateCallCompletion(ctx context.Context, callSID string, reason string, errorCode string) error
	UpdateCallEnded(ctx context.Context, callSID string, closeCode int, closeReason string, endedAt time.Time) error

	// ToolCall operations
	CreateToolCall(ctx context.Context, toolCall *domain.ToolCall) error
	GetToolCall(ctx context.Context, callSID, toolCallID string) (*domain.ToolCall, error)
	ListToolCalls(ctx context.Context, callSID string) ([]domain.ToolCall, error)
	UpdateToolCallResult(ctx context.Context, callSID, toolCallID string, status domain.ToolCallStatus, result []byte, errData []byte) (bool, error)

	// Lifecycle
	Close() error
}
