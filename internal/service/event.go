package service

import (
	"encoding/json"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/session"
)

// conversationText is the agent event carrying one utterance.
const conversationText = "ConversationText"

type agentEvent struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Service) onAgentEvent(sess *session.Session, n domain.AgentEvent) {
	sess.Logger.Info("agent event", "payload", n.Payload)

	var evt agentEvent
	if err := json.Unmarshal(n.Payload, &evt); err != nil {
		return
	}
	if evt.Type == conversationText && evt.Content != "" {
		sess.AddTranscript(session.Transcript{Role: evt.Role, Content: evt.Content})
	}
}
