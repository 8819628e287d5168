package conversation

import (
	"context"
	"strings"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/constant"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/pipeline/contextual"
	"ai-chatwidget-be/pkg/pipeline/mode"
	"ai-chatwidget-be/pkg/provider"
)

// BlockConverter turns one attachment into content blocks for the active
// delivery mode.
type BlockConverter interface {
	Convert(ctx context.Context, att *entity.Attachment, m mode.Mode, policy config.Policy, budget *content.BudgetTracker) ([]content.Block, error)
}

// HistoryMessage pairs a stored message with the attachments bound to it.
type HistoryMessage struct {
	Message     *entity.ChatMessage
	Attachments []*entity.Attachment
}

// Assembler shapes session history into the provider message list, applying
// the memory window and mode-aware attachment handling.
type Assembler struct {
	converter BlockConverter
	logger    logger.ILogger
}

func NewAssembler(converter BlockConverter, log logger.ILogger) *Assembler {
	return &Assembler{
		converter: converter,
		logger:    log,
	}
}

// Assemble produces the final message array: system prompt, background text,
// background images, then history in chronological order. The memory window
// keeps the most recent N history turns; zero means unlimited.
func (a *Assembler) Assemble(ctx context.Context, cfg *entity.ChatConfig, bg contextual.Background, history []HistoryMessage, m mode.Mode, policy config.Policy, budget *content.BudgetTracker) []provider.Message {
	if cfg.MemoryWindow > 0 && len(history) > cfg.MemoryWindow {
		history = history[len(history)-cfg.MemoryWindow:]
	}

	out := make([]provider.Message, 0, len(history)+3)

	if cfg.SystemPrompt != nil {
		if prompt := strings.TrimSpace(*cfg.SystemPrompt); prompt != "" {
			out = append(out, provider.TextMessage(constant.ChatMessageRoleSystem, prompt))
		}
	}
	if bg.SystemText != "" {
		out = append(out, provider.TextMessage(constant.ChatMessageRoleSystem, bg.SystemText))
	}
	if bg.HasImages() {
		out = append(out, provider.Message{
			Role:   constant.ChatMessageRoleUser,
			Blocks: bg.UserBlocks,
		})
	}

	for _, h := range history {
		out = append(out, a.shapeMessage(ctx, h, m, policy, budget))
	}

	return out
}

// shapeMessage renders one history turn. Attachments ride inline only when
// file handling is on and the mode is INLINE; retrieval-mode attachments are
// already indexed server-side and must not be duplicated as inline content.
func (a *Assembler) shapeMessage(ctx context.Context, h HistoryMessage, m mode.Mode, policy config.Policy, budget *content.BudgetTracker) provider.Message {
	msg := h.Message

	if !policy.FileHandlingEnabled || m == mode.Retrieval || len(h.Attachments) == 0 {
		return provider.TextMessage(msg.Role, msg.Body)
	}

	budget.NextMessage()

	blocks := make([]content.Block, 0, len(h.Attachments)+1)
	if msg.Body != "" {
		blocks = append(blocks, content.TextBlock("", msg.Body))
	}

	appended := false
	for _, att := range h.Attachments {
		converted, err := a.converter.Convert(ctx, att, m, policy, budget)
		if err != nil {
			a.logger.Warn("ConversationAssembler", "attachment skipped", map[string]interface{}{
				"message_id":    msg.Id.String(),
				"attachment_id": att.Id.String(),
				"error":         err.Error(),
			})
			continue
		}
		if len(converted) > 0 {
			blocks = append(blocks, converted...)
			appended = true
		}
	}

	// Every conversion came back empty: fall back to a plain text message
	// rather than an empty or text-only multimodal list.
	if !appended {
		return provider.TextMessage(msg.Role, msg.Body)
	}

	return provider.Message{Role: msg.Role, Blocks: blocks}
}
