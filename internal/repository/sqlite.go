package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS calls (
			call_sid TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			completion_reason TEXT,
			error_code TEXT,
			close_code INTEGER,
			close_reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_started ON calls(started_at)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			tool_call_id TEXT NOT NULL,
			call_sid TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			args TEXT,
			result TEXT,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			PRIMARY KEY (call_sid, tool_call_id),
			FOREIGN KEY (call_sid) REFERENCES calls(call_sid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_call ON tool_calls(call_sid, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateCall creates a new call record.
func (s *SQLiteStore) CreateCall(ctx context.Context, call *domain.Call) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (call_sid, path, status, started_at) VALUES (?, ?, ?, ?)`,
		call.CallSID, call.Path, call.Status, call.StartedAt)
	return err
}

// GetCall retrieves a call by its call SID.
func (s *SQLiteStore) GetCall(ctx context.Context, callSID string) (*domain.Call, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT call_sid, path, status, started_at, ended_at, completion_reason, error_code, close_code, close_reason FROM calls WHERE call_sid = ?`,
		callSID)
	call, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

// ListCalls returns the most recent calls first.
func (s *SQLiteStore) ListCalls(ctx context.Context, limit int) ([]domain.Call, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_sid, path, status, started_at, ended_at, completion_reason, error_code, close_code, close_reason FROM calls ORDER BY started_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *call)
	}
	return calls, rows.Err()
}

// UpdateCallStatus updates the lifecycle status of a call.
func (s *SQLiteStore) UpdateCallStatus(ctx context.Context, callSID string, status domain.CallStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET status = ? WHERE call_sid = ?`,
		status, callSID)
	return err
}

// UpdateCallCompletion records the agent's completion reason and error code.
func (s *SQLiteStore) UpdateCallCompletion(ctx context.Context, callSID string, reason string, errorCode string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET completion_reason = ?, error_code = ? WHERE call_sid = ?`,
		nullString(reason), nullString(errorCode), callSID)
	return err
}

// UpdateCallEnded marks a call as ended by the transport.
func (s *SQLiteStore) UpdateCallEnded(ctx context.Context, callSID string, closeCode int, closeReason string, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET status = ?, close_code = ?, close_reason = ?, ended_at = ? WHERE call_sid = ? AND ended_at IS NULL`,
		domain.CallStatusTerminated, closeCode, nullString(closeReason), endedAt, callSID)
	return err
}

// CreateToolCall creates a new tool call record.
func (s *SQLiteStore) CreateToolCall(ctx context.Context, toolCall *domain.ToolCall) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (tool_call_id, call_sid, tool_name, status, args, result, error, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toolCall.ToolCallID, toolCall.CallSID, toolCall.ToolName, toolCall.Status, nullStringBytes(toolCall.Args), nullStringBytes(toolCall.Result), nullStringBytes(toolCall.Error), toolCall.CreatedAt, toolCall.CompletedAt)
	return err
}

// GetToolCall retrieves a tool call of a call. Tool call ids are only
// unique within their call.
func (s *SQLiteStore) GetToolCall(ctx context.Context, callSID, toolCallID string) (*domain.ToolCall, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tool_call_id, call_sid, tool_name, status, args, result, error, created_at, completed_at FROM tool_calls WHERE call_sid = ? AND tool_call_id = ?`,
		callSID, toolCallID)
	tc, err := scanToolCall(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// ListToolCalls returns the tool calls of a call in creation order.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, callSID string) ([]domain.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_call_id, call_sid, tool_name, status, args, result, error, created_at, completed_at FROM tool_calls WHERE call_sid = ? ORDER BY created_at ASC`,
		callSID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var toolCalls []domain.ToolCall
	for rows.Next() {
		tc, err := scanToolCall(rows)
		if err != nil {
			return nil, err
		}
		toolCalls = append(toolCalls, *tc)
	}
	return toolCalls, rows.Err()
}

// UpdateToolCallResult completes a tool call. It reports false when the
// tool call was already completed or does not exist.
func (s *SQLiteStore) UpdateToolCallResult(ctx context.Context, callSID, toolCallID string, status domain.ToolCallStatus, result []byte, errData []byte) (bool, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tool_calls SET status = ?, result = ?, error = ?, completed_at = ? WHERE call_sid = ? AND tool_call_id = ? AND completed_at IS NULL`,
		status, nullStringBytes(result), nullStringBytes(errData), now, callSID, toolCallID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCall(row scanner) (*domain.Call, error) {
	var call domain.Call
	var endedAt sql.NullTime
	var reason, errorCode, closeReason sql.NullString
	var closeCode sql.NullInt64

	if err := row.Scan(&call.CallSID, &call.Path, &call.Status, &call.StartedAt, &endedAt, &reason, &errorCode, &closeCode, &closeReason); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		call.EndedAt = &endedAt.Time
	}
	call.CompletionReason = reason.String
	call.ErrorCode = errorCode.String
	call.CloseCode = int(closeCode.Int64)
	call.CloseReason = closeReason.String
	return &call, nil
}

func scanToolCall(row scanner) (*domain.ToolCall, error) {
	var tc domain.ToolCall
	var args, result, errData sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(&tc.ToolCallID, &tc.CallSID, &tc.ToolName, &tc.Status, &args, &result, &errData, &tc.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	if args.Valid {
		tc.Args = json.RawMessage(args.String)
	}
	if result.Valid {
		tc.Result = json.RawMessage(result.String)
	}
	if errData.Valid {
		tc.Error = json.RawMessage(errData.String)
	}
	if completedAt.Valid {
		tc.CompletedAt = &completedAt.Time
	}
	return &tc, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
