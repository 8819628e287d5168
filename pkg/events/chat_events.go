package events

import (
	"time"

	"ai-chatwidget-be/internal/constant"

	"github.com/google/uuid"
)

// TurnCompletedEvent is emitted after an assistant reply is persisted. The
// host platform consumes it for usage accounting.
type TurnCompletedEvent struct {
	ChatConfigId uuid.UUID
	SessionId    uuid.UUID
	UserId       uuid.UUID
	ProviderId   string
	Mode         string
	PromptChars  int
	ReplyChars   int
	OccurredAt   time.Time
}

func NewTurnCompletedEvent(chatConfigId, sessionId, userId uuid.UUID, providerId, mode string, promptChars, replyChars int) TurnCompletedEvent {
	return TurnCompletedEvent{
		ChatConfigId: chatConfigId,
		SessionId:    sessionId,
		UserId:       userId,
		ProviderId:   providerId,
		Mode:         mode,
		PromptChars:  promptChars,
		ReplyChars:   replyChars,
		OccurredAt:   time.Now(),
	}
}

func (e TurnCompletedEvent) EventType() string {
	return constant.NatsTurnCompletedSubject
}

func (e TurnCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"chat_config_id": e.ChatConfigId.String(),
		"session_id":     e.SessionId.String(),
		"user_id":        e.UserId.String(),
		"provider_id":    e.ProviderId,
		"mode":           e.Mode,
		"prompt_chars":   e.PromptChars,
		"reply_chars":    e.ReplyChars,
		"occurred_at":    e.OccurredAt.Format(time.RFC3339),
	}
}

func (e TurnCompletedEvent) Timestamp() time.Time {
	return e.OccurredAt
}
