package content

import (
	"context"
	"fmt"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/pkg/blob"
	"ai-chatwidget-be/pkg/pipeline/mode"
)

// Rasterizer renders PDF pages into image bytes, ordered by page. External
// capability; the converter never parses PDFs itself.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, maxPages, maxDim, quality int) ([][]byte, error)
}

// Recompressor re-encodes an image to fit a maximum dimension, returning the
// new bytes and their MIME type.
type Recompressor interface {
	Recompress(img []byte, maxDim, quality int) ([]byte, string, error)
}

// Converter turns one stored attachment into zero or more provider content
// blocks, applying the delivery mode and the request's running budgets.
type Converter struct {
	blobs        blob.Store
	rasterizer   Rasterizer
	recompressor Recompressor
	logger       logger.ILogger
}

func NewConverter(blobs blob.Store, rasterizer Rasterizer, recompressor Recompressor, log logger.ILogger) *Converter {
	return &Converter{
		blobs:        blobs,
		rasterizer:   rasterizer,
		recompressor: recompressor,
		logger:       log,
	}
}

// Convert dispatches on the attachment's file family. A nil block slice with
// nil error means the attachment legitimately contributes nothing in this
// mode (e.g. images under retrieval). Errors are per-attachment; callers log
// and continue so one bad file never aborts the whole context.
func (c *Converter) Convert(ctx context.Context, att *entity.Attachment, m mode.Mode, policy config.Policy, budget *BudgetTracker) ([]Block, error) {
	if att.BlobKey == "" {
		// Retrieval-only attachments have no local bytes to convert.
		return nil, nil
	}

	switch DetectFamily(att.MimeType, att.Filename) {
	case FamilyText:
		return c.convertText(ctx, att)
	case FamilyImage:
		return c.convertImage(ctx, att, m, policy, budget)
	case FamilyPDF:
		return c.convertPDF(ctx, att, m, policy, budget)
	default:
		return nil, apperror.New(apperror.KindUnsupportedFileType, fmt.Sprintf("unsupported file type: %s", att.Filename))
	}
}

// convertText always yields one text block with a filename header; plain text
// is retrieval-compatible and inline-compatible identically.
func (c *Converter) convertText(ctx context.Context, att *entity.Attachment) ([]Block, error) {
	data, err := c.blobs.Get(ctx, att.BlobKey)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConversionFailure, "read text attachment", err)
	}
	text := fmt.Sprintf("File: %s\n\n%s", att.Filename, string(data))
	return []Block{TextBlock(att.Filename, text)}, nil
}

func (c *Converter) convertImage(ctx context.Context, att *entity.Attachment, m mode.Mode, policy config.Policy, budget *BudgetTracker) ([]Block, error) {
	if m == mode.Retrieval {
		// Raw image bytes never travel inline while retrieval is active.
		return nil, nil
	}

	data, err := c.blobs.Get(ctx, att.BlobKey)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConversionFailure, "read image attachment", err)
	}

	out, mimeType, err := c.recompressor.Recompress(data, policy.MaxImageDimension, policy.JPEGQuality)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConversionFailure, "recompress image", err)
	}
	if int64(len(out)) > policy.MaxImageItemBytes {
		return nil, apperror.New(apperror.KindConversionFailure,
			fmt.Sprintf("image %s still exceeds item budget after recompression", att.Filename))
	}
	if !budget.TryConsumeImage(int64(len(out))) {
		c.logger.Warn("ContentConverter", "image dropped, budget exhausted", map[string]interface{}{
			"attachment_id": att.Id.String(),
			"filename":      att.Filename,
		})
		return nil, nil
	}

	return []Block{ImageBlock(mimeType, out)}, nil
}

func (c *Converter) convertPDF(ctx context.Context, att *entity.Attachment, m mode.Mode, policy config.Policy, budget *BudgetTracker) ([]Block, error) {
	if m == mode.Retrieval {
		// Already represented via the retrieval index; converting inline too
		// would deliver the same document twice.
		c.logger.Debug("ContentConverter", "pdf skipped in retrieval mode", map[string]interface{}{
			"attachment_id": att.Id.String(),
		})
		return nil, nil
	}

	data, err := c.blobs.Get(ctx, att.BlobKey)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConversionFailure, "read pdf attachment", err)
	}

	pages, err := c.rasterizer.Rasterize(ctx, data, policy.MaxPDFPages, policy.MaxImageDimension, policy.JPEGQuality)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConversionFailure, "rasterize pdf", err)
	}

	// Pages beyond the budget are dropped silently, in order.
	if len(pages) > policy.MaxPDFPages {
		pages = pages[:policy.MaxPDFPages]
	}

	blocks := make([]Block, 0, len(pages))
	for i, page := range pages {
		out, mimeType, err := c.recompressor.Recompress(page, policy.MaxImageDimension, policy.JPEGQuality)
		if err != nil {
			c.logger.Warn("ContentConverter", "pdf page recompression failed", map[string]interface{}{
				"attachment_id": att.Id.String(),
				"page":          i + 1,
				"error":         err.Error(),
			})
			continue
		}
		if !budget.TryConsumeImage(int64(len(out))) {
			break
		}
		blocks = append(blocks, ImageBlock(mimeType, out))
	}
	return blocks, nil
}
