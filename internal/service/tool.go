package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/voiceagent/internal/agent"
	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/policy"
	"github.com/xiaot623/gogo/voiceagent/internal/session"
	"github.com/xiaot623/gogo/voiceagent/internal/tools"
	"github.com/xiaot623/gogo/voiceagent/internal/weather"
)

const toolGetWeather = agent.ToolGetWeather

type weatherArgs struct {
	Location string `json:"location"`
	Scale    string `json:"scale"`
}

// onToolCall runs the invocation on its own goroutine so the session keeps
// receiving notifications while the lookups are in flight.
func (s *Service) onToolCall(ctx context.Context, sess *session.Session, inv domain.ToolInvocation) {
	sess.Logger.Info("tool call", "tool", inv.Name, "tool_call_id", inv.ToolCallID, "args", inv.Args)
	s.recordToolCall(ctx, sess, inv)

	sess.Go(func(callCtx context.Context) {
		result := s.dispatch(callCtx, sess, inv)
		if err := sess.SendToolOutput(inv.ToolCallID, result.Payload()); err != nil {
			sess.Logger.Error("failed to send tool output", "tool_call_id", inv.ToolCallID, "error", err)
		}
		// The call context may already be cancelled; the record outlives it.
		s.recordToolResult(context.WithoutCancel(callCtx), sess, result)
	})
}

// dispatch produces the single ToolResult for an invocation. It never fails.
func (s *Service) dispatch(ctx context.Context, sess *session.Session, inv domain.ToolInvocation) (result domain.ToolResult) {
	start := time.Now()
	defer func() {
		s.metrics.toolCompleted(ctx, inv.Name, resultStatus(result), time.Since(start))
	}()

	result.ToolCallID = inv.ToolCallID

	if toolErr := s.checkPolicy(ctx, sess, inv); toolErr != nil {
		sess.Logger.Warn("tool call blocked", "tool", inv.Name, "reason", toolErr.Message)
		result.Error = toolErr
		return result
	}

	output, err := s.registry.Execute(withLogger(ctx, sess), inv.Name, inv.Args)
	if err != nil {
		result.Error = classify(err)
		sess.Logger.Error("tool call failed", "tool", inv.Name, "tool_call_id", inv.ToolCallID, "code", result.Error.Code, "error", err)
		return result
	}
	result.Output = output
	sess.Logger.Info("tool call succeeded", "tool", inv.Name, "tool_call_id", inv.ToolCallID)
	return result
}

func (s *Service) checkPolicy(ctx context.Context, sess *session.Session, inv domain.ToolInvocation) *domain.ToolError {
	if s.policy == nil {
		return nil
	}
	// The policy sees the arguments only when they decode as an object. The
	// executor reports malformed arguments to the agent.
	var args map[string]interface{}
	if len(inv.Args) > 0 {
		if err := json.Unmarshal(inv.Args, &args); err != nil {
			sess.Logger.Warn("tool arguments are not an object", "tool", inv.Name, "tool_call_id", inv.ToolCallID, "error", err)
		}
	}

	decision, err := s.policy.Evaluate(ctx, policy.Input{
		ToolName: inv.Name,
		CallSID:  sess.CallSID,
		Args:     args,
		Exposed:  agent.Build(s.credential).ToolNames(),
	})
	if err != nil {
		return &domain.ToolError{Code: domain.ToolErrorBlocked, Message: fmt.Sprintf("policy evaluation failed: %v", err)}
	}
	if !decision.Allowed() {
		return &domain.ToolError{Code: domain.ToolErrorBlocked, Message: decision.Reason}
	}
	return nil
}

// getWeather geocodes the location, then fetches the current weather there.
// The lookups run strictly one after the other.
func (s *Service) getWeather(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args weatherArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &domain.ToolError{Code: domain.ToolErrorInvalidArguments, Message: fmt.Sprintf("arguments must be an object: %v", err)}
	}

	// The weather client already names the location and the lookup in its errors.
	place, err := s.weather.Geocode(ctx, args.Location)
	if err != nil {
		return nil, err
	}
	loggerFrom(ctx).Info("location resolved",
		"name", place.Name,
		"country", place.Country,
		"latitude", place.Latitude,
		"longitude", place.Longitude,
		"timezone", place.Timezone,
		"population", place.Population,
	)

	return s.weather.Current(ctx, place.Latitude, place.Longitude, args.Scale)
}

// classify maps an executor error to the error shape sent to the agent.
func classify(err error) *domain.ToolError {
	var toolErr *domain.ToolError
	switch {
	case errors.As(err, &toolErr):
		return toolErr
	case errors.Is(err, weather.ErrLocationNotFound):
		return &domain.ToolError{Code: domain.ToolErrorLocationNotFound, Message: err.Error()}
	case errors.Is(err, weather.ErrMalformedResponse):
		return &domain.ToolError{Code: domain.ToolErrorMalformedResponse, Message: err.Error()}
	// Reached only without a policy engine; the default policy blocks
	// unexposed tools first.
	case errors.Is(err, tools.ErrUnknownTool):
		return &domain.ToolError{Code: domain.ToolErrorUnknownTool, Message: err.Error()}
	default:
		return &domain.ToolError{Code: domain.ToolErrorLookupFailed, Message: err.Error()}
	}
}

func (s *Service) recordToolCall(ctx context.Context, sess *session.Session, inv domain.ToolInvocation) {
	if s.store == nil {
		return
	}
	tc := &domain.ToolCall{
		ToolCallID: inv.ToolCallID,
		CallSID:    sess.CallSID,
		ToolName:   inv.Name,
		Status:     domain.ToolCallStatusRunning,
		Args:       inv.Args,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateToolCall(ctx, tc); err != nil {
		sess.Logger.Warn("failed to record tool call", "tool_call_id", inv.ToolCallID, "error", err)
	}
}

func (s *Service) recordToolResult(ctx context.Context, sess *session.Session, result domain.ToolResult) {
	if s.store == nil {
		return
	}
	var errData []byte
	if result.Error != nil {
		errData, _ = json.Marshal(result.Error)
	}
	updated, err := s.store.UpdateToolCallResult(ctx, sess.CallSID, result.ToolCallID, resultStatus(result), result.Output, errData)
	if err != nil {
		sess.Logger.Warn("failed to record tool result", "tool_call_id", result.ToolCallID, "error", err)
		return
	}
	if !updated {
		sess.Logger.Warn("tool result not recorded: tool call already completed or unknown", "tool_call_id", result.ToolCallID)
	}
}

func resultStatus(r domain.ToolResult) domain.ToolCallStatus {
	switch {
	case r.Succeeded():
		return domain.ToolCallStatusSucceeded
	case r.Error.Code == domain.ToolErrorBlocked:
		return domain.ToolCallStatusBlocked
	default:
		return domain.ToolCallStatusFailed
	}
}
