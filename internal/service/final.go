package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/session"
)

const (
	rateLimitSpeech    = "Sorry, you have exceeded your open AI rate limits. "
	rateLimitRetry     = "Please try again in %s seconds."
	genericErrorSpeech = "Sorry, there was an error processing your request."
)

var retryAfterPattern = regexp.MustCompile(`try again in (\d+)`)

func (s *Service) onFinal(ctx context.Context, sess *session.Session, n domain.Final) {
	sess.PushHook(n.MsgID)
	sess.Logger.Info("agent completed", "completion_reason", n.Completion.Reason, "payload", n.Payload)

	if n.Completion.Failed() {
		sess.Logger.Error("agent failed", "completion_reason", n.Completion.Reason, "error_code", n.Completion.ErrorCode())
		s.metrics.agentFailed(ctx, n.Completion.ErrorCode())
		sess.Say(failureSpeech(n.Completion)).Hangup()
		s.terminate(ctx, sess)
	}

	if err := sess.Reply(); err != nil {
		sess.Logger.Error("failed to reply to final hook", "error", err)
	}

	if s.store != nil {
		if err := s.store.UpdateCallCompletion(ctx, sess.CallSID, n.Completion.Reason, n.Completion.ErrorCode()); err != nil {
			sess.Logger.Warn("failed to record completion", "error", err)
		}
	}
}

// failureSpeech is what the caller hears before a failed call is hung up.
func failureSpeech(c domain.CompletionEvent) string {
	if c.ErrorCode() != domain.ErrorCodeRateLimitExceeded {
		return genericErrorSpeech
	}
	text := rateLimitSpeech
	if m := retryAfterPattern.FindStringSubmatch(c.Error.Message); m != nil {
		text += fmt.Sprintf(rateLimitRetry, m[1])
	}
	return text
}
