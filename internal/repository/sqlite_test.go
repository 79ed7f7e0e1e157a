package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreCallLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	call := &domain.Call{
		CallSID:   "CA1",
		Path:      "/voice-agent",
		Status:    domain.CallStatusCreated,
		StartedAt: time.Now(),
	}
	if err := store.CreateCall(ctx, call); err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}

	if err := store.UpdateCallStatus(ctx, "CA1", domain.CallStatusActive); err != nil {
		t.Fatalf("UpdateCallStatus failed: %v", err)
	}
	if err := store.UpdateCallCompletion(ctx, "CA1", "server error", "rate_limit_exceeded"); err != nil {
		t.Fatalf("UpdateCallCompletion failed: %v", err)
	}
	if err := store.UpdateCallEnded(ctx, "CA1", 1000, "normal", time.Now()); err != nil {
		t.Fatalf("UpdateCallEnded failed: %v", err)
	}

	got, err := store.GetCall(ctx, "CA1")
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected call")
	}
	if got.Status != domain.CallStatusTerminated {
		t.Fatalf("expected TERMINATED, got %s", got.Status)
	}
	if got.CompletionReason != "server error" || got.ErrorCode != "rate_limit_exceeded" {
		t.Fatalf("unexpected completion: %+v", got)
	}
	if got.CloseCode != 1000 || got.CloseReason != "normal" || got.EndedAt == nil {
		t.Fatalf("unexpected close: %+v", got)
	}

	// A second close does not overwrite the first.
	if err := store.UpdateCallEnded(ctx, "CA1", 1006, "abnormal", time.Now()); err != nil {
		t.Fatalf("UpdateCallEnded failed: %v", err)
	}
	got, _ = store.GetCall(ctx, "CA1")
	if got.CloseCode != 1000 {
		t.Fatalf("expected first close code to stick, got %d", got.CloseCode)
	}
}

func TestSQLiteStoreGetCallMissing(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetCall(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSQLiteStoreListCalls(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now()
	for i, sid := range []string{"CA1", "CA2", "CA3"} {
		call := &domain.Call{CallSID: sid, Path: "/voice-agent", Status: domain.CallStatusActive, StartedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.CreateCall(ctx, call); err != nil {
			t.Fatalf("CreateCall failed: %v", err)
		}
	}

	calls, err := store.ListCalls(ctx, 2)
	if err != nil {
		t.Fatalf("ListCalls failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].CallSID != "CA3" || calls[1].CallSID != "CA2" {
		t.Fatalf("unexpected order: %s, %s", calls[0].CallSID, calls[1].CallSID)
	}
}

func TestSQLiteStoreToolCalls(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateCall(ctx, &domain.Call{CallSID: "CA1", Path: "/voice-agent", Status: domain.CallStatusActive, StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}

	tc := &domain.ToolCall{
		ToolCallID: "tc-1",
		CallSID:    "CA1",
		ToolName:   "get_weather",
		Status:     domain.ToolCallStatusRunning,
		Args:       json.RawMessage(`{"location":"Paris","scale":"celsius"}`),
		CreatedAt:  time.Now(),
	}
	if err := store.CreateToolCall(ctx, tc); err != nil {
		t.Fatalf("CreateToolCall failed: %v", err)
	}

	updated, err := store.UpdateToolCallResult(ctx, "CA1", "tc-1", domain.ToolCallStatusSucceeded, []byte(`{"current":{}}`), nil)
	if err != nil {
		t.Fatalf("UpdateToolCallResult failed: %v", err)
	}
	if !updated {
		t.Fatalf("expected update")
	}

	updated, err = store.UpdateToolCallResult(ctx, "CA1", "tc-1", domain.ToolCallStatusFailed, nil, []byte(`{"code":"x"}`))
	if err != nil {
		t.Fatalf("UpdateToolCallResult failed: %v", err)
	}
	if updated {
		t.Fatalf("expected completed tool call to stay unchanged")
	}

	got, err := store.GetToolCall(ctx, "CA1", "tc-1")
	if err != nil {
		t.Fatalf("GetToolCall failed: %v", err)
	}
	if got.Status != domain.ToolCallStatusSucceeded || got.CompletedAt == nil {
		t.Fatalf("unexpected tool call: %+v", got)
	}
	if string(got.Result) != `{"current":{}}` || got.Error != nil {
		t.Fatalf("unexpected result: %s / %s", got.Result, got.Error)
	}

	list, err := store.ListToolCalls(ctx, "CA1")
	if err != nil {
		t.Fatalf("ListToolCalls failed: %v", err)
	}
	if len(list) != 1 || list[0].ToolCallID != "tc-1" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestSQLiteStoreToolCallIDsScopedToCall(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, sid := range []string{"CA1", "CA2"} {
		if err := store.CreateCall(ctx, &domain.Call{CallSID: sid, Path: "/voice-agent", Status: domain.CallStatusActive, StartedAt: time.Now()}); err != nil {
			t.Fatalf("CreateCall failed: %v", err)
		}
		if err := store.CreateToolCall(ctx, &domain.ToolCall{
			ToolCallID: "call_0",
			CallSID:    sid,
			ToolName:   "get_weather",
			Status:     domain.ToolCallStatusRunning,
			CreatedAt:  time.Now(),
		}); err != nil {
			t.Fatalf("CreateToolCall for %s failed: %v", sid, err)
		}
	}

	updated, err := store.UpdateToolCallResult(ctx, "CA1", "call_0", domain.ToolCallStatusSucceeded, []byte(`{"current":{}}`), nil)
	if err != nil {
		t.Fatalf("UpdateToolCallResult failed: %v", err)
	}
	if !updated {
		t.Fatalf("expected update")
	}

	other, err := store.GetToolCall(ctx, "CA2", "call_0")
	if err != nil {
		t.Fatalf("GetToolCall failed: %v", err)
	}
	if other == nil || other.Status != domain.ToolCallStatusRunning || other.CompletedAt != nil {
		t.Fatalf("tool call of another call was changed: %+v", other)
	}

	updated, err = store.UpdateToolCallResult(ctx, "CA2", "call_0", domain.ToolCallStatusFailed, nil, []byte(`{"code":"lookup_failed"}`))
	if err != nil {
		t.Fatalf("UpdateToolCallResult failed: %v", err)
	}
	if !updated {
		t.Fatalf("expected update of the second call's tool call")
	}

	err = store.CreateToolCall(ctx, &domain.ToolCall{ToolCallID: "call_0", CallSID: "CA1", ToolName: "get_weather", Status: domain.ToolCallStatusRunning, CreatedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected duplicate tool call id within a call to be rejected")
	}
}

func TestSQLiteStoreUpdateUnknownToolCall(t *testing.T) {
	store := newTestStore(t)
	updated, err := store.UpdateToolCallResult(context.Background(), "CA1", "missing", domain.ToolCallStatusSucceeded, nil, nil)
	if err != nil {
		t.Fatalf("UpdateToolCallResult failed: %v", err)
	}
	if updated {
		t.Fatalf("expected no update for an unknown tool call")
	}
}

func TestSQLiteStoreToolCallRequiresCall(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateToolCall(context.Background(), &domain.ToolCall{
		ToolCallID: "tc-1",
		CallSID:    "missing",
		ToolName:   "get_weather",
		Status:     domain.ToolCallStatusRunning,
		CreatedAt:  time.Now(),
	})
	if err == nil {
		t.Fatalf("expected foreign key violation")
	}
}
