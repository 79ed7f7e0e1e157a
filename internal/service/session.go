package service

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/voiceagent/internal/agent"
	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/session"
)

func (s *Service) onSessionNew(ctx context.Context, sess *session.Session, n domain.SessionNew) {
	sess.SetNewMsgID(n.MsgID)
	sess.Logger.Info("new call", "path", n.Path, "payload", n.Payload)
	s.metrics.sessionStarted(ctx)
	s.recordCall(ctx, sess)

	if s.credential == "" {
		sess.Logger.Error("voice agent credential is not configured, hanging up")
		if err := sess.Hangup().Send(); err != nil {
			sess.Logger.Error("failed to send hangup", "error", err)
		}
		s.terminate(ctx, sess)
		return
	}

	if err := s.transition(ctx, sess, domain.CallStatusConfiguring); err != nil {
		return
	}

	cfg := agent.Build(s.credential)
	if err := cfg.Validate(); err != nil {
		sess.Logger.Error("invalid agent configuration", "error", err)
		if err := sess.Hangup().Send(); err != nil {
			sess.Logger.Error("failed to send hangup", "error", err)
		}
		s.terminate(ctx, sess)
		return
	}

	if err := sess.StartAgent(cfg.Verb()).Hangup().Send(); err != nil {
		sess.Logger.Error("failed to start agent", "error", err)
		s.terminate(ctx, sess)
		return
	}
	_ = s.transition(ctx, sess, domain.CallStatusActive)
}

func (s *Service) onUnknownHook(sess *session.Session, n domain.UnknownHook) {
	sess.Logger.Warn("hook not handled", "hook", n.Hook, "payload", n.Payload)
	sess.PushHook(n.MsgID)
	if err := sess.Reply(); err != nil {
		sess.Logger.Error("failed to reply", "hook", n.Hook, "error", err)
	}
}

func (s *Service) onClosed(ctx context.Context, sess *session.Session, n domain.Closed) {
	sess.Logger.Info("call socket closed", "code", n.Code, "reason", n.Reason)
	s.terminate(ctx, sess)
	if s.store != nil {
		if err := s.store.UpdateCallEnded(ctx, sess.CallSID, n.Code, n.Reason, time.Now()); err != nil {
			sess.Logger.Warn("failed to record call end", "error", err)
		}
	}
}

func (s *Service) onFailed(ctx context.Context, sess *session.Session, n domain.Failed) {
	sess.Logger.Error("call socket error", "error", n.Err)
	s.terminate(ctx, sess)
	if s.store != nil {
		reason := ""
		if n.Err != nil {
			reason = n.Err.Error()
		}
		if err := s.store.UpdateCallEnded(ctx, sess.CallSID, 0, reason, time.Now()); err != nil {
			sess.Logger.Warn("failed to record call end", "error", err)
		}
	}
}

func (s *Service) transition(ctx context.Context, sess *session.Session, to domain.CallStatus) error {
	if err := sess.Transition(to); err != nil {
		sess.Logger.Error("session transition rejected", "error", err)
		return err
	}
	s.recordStatus(ctx, sess, to)
	return nil
}

func (s *Service) terminate(ctx context.Context, sess *session.Session) {
	if !sess.Terminate() {
		sess.Logger.Debug("session already terminated")
		return
	}
	s.metrics.sessionEnded(ctx)
	s.recordStatus(ctx, sess, domain.CallStatusTerminated)
}

func (s *Service) recordCall(ctx context.Context, sess *session.Session) {
	if s.store == nil {
		return
	}
	call := &domain.Call{
		CallSID:   sess.CallSID,
		Path:      sess.Path,
		Status:    sess.State(),
		StartedAt: time.Now(),
	}
	if err := s.store.CreateCall(ctx, call); err != nil {
		sess.Logger.Warn("failed to record call", "error", err)
	}
}

func (s *Service) recordStatus(ctx context.Context, sess *session.Session, status domain.CallStatus) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateCallStatus(ctx, sess.CallSID, status); err != nil {
		sess.Logger.Warn("failed to record call status", "status", status, "error", err)
	}
}
