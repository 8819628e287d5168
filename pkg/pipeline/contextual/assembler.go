package contextual

import (
	"context"
	"strings"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/constant"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/pipeline/mode"
)

// BlockConverter turns one attachment into content blocks for the active
// delivery mode.
type BlockConverter interface {
	Convert(ctx context.Context, att *entity.Attachment, m mode.Mode, policy config.Policy, budget *content.BudgetTracker) ([]content.Block, error)
}

// PageTexter resolves a page reference into its readable text, "" on any
// failure.
type PageTexter interface {
	PageText(ctx context.Context, pageRef string) string
}

// Background is the assembled ambient context for a chat: everything the
// widget author attached plus, optionally, the text of the hosting page.
// SystemText merges into the system prompt; UserBlocks become a leading
// multimodal user message (images cannot ride in system messages on any
// provider we target).
type Background struct {
	SystemText string
	UserBlocks []content.Block
}

func (b Background) HasImages() bool {
	return len(b.UserBlocks) > 0
}

// Assembler builds the Background for a send. Per-attachment failures are
// logged and skipped so one broken file never empties the whole context.
type Assembler struct {
	converter BlockConverter
	pages     PageTexter
	logger    logger.ILogger
}

func NewAssembler(converter BlockConverter, pages PageTexter, log logger.ILogger) *Assembler {
	return &Assembler{
		converter: converter,
		pages:     pages,
		logger:    log,
	}
}

func (a *Assembler) Assemble(ctx context.Context, cfg *entity.ChatConfig, background []*entity.Attachment, m mode.Mode, policy config.Policy, budget *content.BudgetTracker) Background {
	var textParts []string
	var imageBlocks []content.Block

	for _, att := range background {
		blocks, err := a.converter.Convert(ctx, att, m, policy, budget)
		if err != nil {
			a.logger.Warn("ContextAssembler", "background attachment skipped", map[string]interface{}{
				"attachment_id": att.Id.String(),
				"filename":      att.Filename,
				"error":         err.Error(),
			})
			continue
		}
		for _, block := range blocks {
			switch block.Type {
			case content.BlockTypeText:
				textParts = append(textParts, block.Text)
			case content.BlockTypeImage:
				imageBlocks = append(imageBlocks, block)
			}
		}
	}

	var out Background

	if len(textParts) > 0 {
		out.SystemText = constant.BackgroundFilesHeading + "\n\n" + strings.Join(textParts, "\n\n---\n\n")
	}

	if cfg.IncludePageContext {
		if pageText := a.pages.PageText(ctx, cfg.PageId.String()); pageText != "" {
			section := "Content of the page this chat is embedded in:\n\n" + pageText
			if out.SystemText != "" {
				out.SystemText = out.SystemText + "\n\n" + section
			} else {
				out.SystemText = section
			}
		}
	}

	if len(imageBlocks) > 0 {
		out.UserBlocks = make([]content.Block, 0, len(imageBlocks)+1)
		out.UserBlocks = append(out.UserBlocks, content.TextBlock("", constant.BackgroundImagesInstruction))
		out.UserBlocks = append(out.UserBlocks, imageBlocks...)
	}

	return out
}
