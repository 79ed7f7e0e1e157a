package session

import (
	"fmt"

	"github.com/xiaot623/gogo/voiceagent/internal/protocol"
)

// SetNewMsgID records the session:new message id that Send acknowledges.
func (s *Session) SetNewMsgID(msgID string) {
	s.newMsgID = msgID
}

// PushHook records a hook message id that the next Reply acknowledges.
func (s *Session) PushHook(msgID string) {
	s.hookMsgIDs = append(s.hookMsgIDs, msgID)
}

// StartAgent queues the llm verb.
func (s *Session) StartAgent(verb protocol.LLMVerb) *Session {
	s.queue = append(s.queue, verb)
	return s
}

// Say queues speech.
func (s *Session) Say(text string) *Session {
	s.queue = append(s.queue, protocol.Say(text))
	return s
}

// Hangup queues a hangup.
func (s *Session) Hangup() *Session {
	s.queue = append(s.queue, protocol.Hangup())
	return s
}

// Queued returns the verbs waiting to be sent.
func (s *Session) Queued() []protocol.Verb {
	out := make([]protocol.Verb, len(s.queue))
	copy(out, s.queue)
	return out
}

// Send acknowledges session:new with the queued verbs.
func (s *Session) Send() error {
	if s.newMsgID == "" {
		return fmt.Errorf("session %s: no session:new message to acknowledge", s.CallSID)
	}
	msgID := s.newMsgID
	s.newMsgID = ""
	return s.flush(msgID)
}

// Reply acknowledges the oldest pending hook message with the queued verbs.
func (s *Session) Reply() error {
	if len(s.hookMsgIDs) == 0 {
		return fmt.Errorf("session %s: no hook message to reply to", s.CallSID)
	}
	msgID := s.hookMsgIDs[0]
	s.hookMsgIDs = s.hookMsgIDs[1:]
	return s.flush(msgID)
}

func (s *Session) flush(msgID string) error {
	verbs := s.queue
	s.queue = nil
	if err := s.sender.SendJSON(protocol.NewAck(msgID, verbs)); err != nil {
		return fmt.Errorf("session %s: send ack: %w", s.CallSID, err)
	}
	return nil
}

// SendToolOutput delivers a tool result to the agent immediately.
func (s *Session) SendToolOutput(toolCallID string, data interface{}) error {
	if err := s.sender.SendJSON(protocol.NewToolOutput(toolCallID, data)); err != nil {
		return fmt.Errorf("session %s: send tool output: %w", s.CallSID, err)
	}
	return nil
}
