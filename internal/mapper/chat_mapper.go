package mapper

import (
	"time"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Config Mappers

func (m *ChatMapper) ChatConfigToEntity(c *model.ChatConfig) *entity.ChatConfig {
	if c == nil {
		return nil
	}
	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}
	return &entity.ChatConfig{
		Id:                 c.Id,
		PageId:             c.PageId,
		ParentId:           c.ParentId,
		SystemPrompt:       c.SystemPrompt,
		ProviderId:         c.ProviderId,
		MemoryWindow:       c.MemoryWindow,
		CharLimit:          c.CharLimit,
		StreamingEnabled:   c.StreamingEnabled,
		RetrievalEnabled:   c.RetrievalEnabled,
		Persistent:         c.Persistent,
		IncludePageContext: c.IncludePageContext,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *ChatMapper) ChatConfigToModel(c *entity.ChatConfig) *model.ChatConfig {
	if c == nil {
		return nil
	}
	out := &model.ChatConfig{
		Id:                 c.Id,
		PageId:             c.PageId,
		ParentId:           c.ParentId,
		SystemPrompt:       c.SystemPrompt,
		ProviderId:         c.ProviderId,
		MemoryWindow:       c.MemoryWindow,
		CharLimit:          c.CharLimit,
		StreamingEnabled:   c.StreamingEnabled,
		RetrievalEnabled:   c.RetrievalEnabled,
		Persistent:         c.Persistent,
		IncludePageContext: c.IncludePageContext,
		CreatedAt:          c.CreatedAt,
	}
	if c.UpdatedAt != nil {
		out.UpdatedAt = *c.UpdatedAt
	}
	return out
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:             s.Id,
		ChatConfigId:   s.ChatConfigId,
		UserId:         s.UserId,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}
	return &model.ChatSession{
		Id:             s.Id,
		ChatConfigId:   s.ChatConfigId,
		UserId:         s.UserId,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Body:          msg.Body,
		Ordinal:       msg.Ordinal,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Body:          msg.Body,
		Ordinal:       msg.Ordinal,
		CreatedAt:     msg.CreatedAt,
	}
}
