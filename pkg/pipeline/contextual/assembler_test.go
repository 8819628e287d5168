package contextual

import (
	"context"
	"errors"
	"testing"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/constant"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/pipeline/mode"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	blocks map[uuid.UUID][]content.Block
	errs   map[uuid.UUID]error
}

func (f *fakeConverter) Convert(_ context.Context, att *entity.Attachment, _ mode.Mode, _ config.Policy, _ *content.BudgetTracker) ([]content.Block, error) {
	if err, ok := f.errs[att.Id]; ok {
		return nil, err
	}
	return f.blocks[att.Id], nil
}

type fakePages struct {
	texts map[string]string
}

func (f *fakePages) PageText(_ context.Context, pageRef string) string {
	return f.texts[pageRef]
}

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

func testPolicy() config.Policy {
	return config.TestPolicy(true, nil, config.LimitsConfig{
		MaxInlineImageBytes: 1024 * 1024,
		MaxImagesPerMessage: 10,
	})
}

func bgAttachment(name string) *entity.Attachment {
	return &entity.Attachment{Id: uuid.New(), Filename: name}
}

func TestAssembleMergesTextFiles(t *testing.T) {
	a1 := bgAttachment("syllabus.txt")
	a2 := bgAttachment("rules.md")
	conv := &fakeConverter{blocks: map[uuid.UUID][]content.Block{
		a1.Id: {content.TextBlock(a1.Filename, "File: syllabus.txt\n\nweek one")},
		a2.Id: {content.TextBlock(a2.Filename, "File: rules.md\n\nbe kind")},
	}}
	asm := NewAssembler(conv, &fakePages{}, noopLogger{})
	policy := testPolicy()

	bg := asm.Assemble(context.Background(), &entity.ChatConfig{}, []*entity.Attachment{a1, a2}, mode.Inline, policy, content.NewBudgetTracker(policy))

	want := constant.BackgroundFilesHeading +
		"\n\nFile: syllabus.txt\n\nweek one" +
		"\n\n---\n\n" +
		"File: rules.md\n\nbe kind"
	assert.Equal(t, want, bg.SystemText)
	assert.False(t, bg.HasImages())
}

func TestAssembleImagesGetInstructionPrefix(t *testing.T) {
	a1 := bgAttachment("diagram.png")
	conv := &fakeConverter{blocks: map[uuid.UUID][]content.Block{
		a1.Id: {content.ImageBlock("image/jpeg", []byte{0x01})},
	}}
	asm := NewAssembler(conv, &fakePages{}, noopLogger{})
	policy := testPolicy()

	bg := asm.Assemble(context.Background(), &entity.ChatConfig{}, []*entity.Attachment{a1}, mode.Inline, policy, content.NewBudgetTracker(policy))

	assert.Empty(t, bg.SystemText)
	require.True(t, bg.HasImages())
	require.Len(t, bg.UserBlocks, 2)
	assert.Equal(t, content.BlockTypeText, bg.UserBlocks[0].Type)
	assert.Equal(t, constant.BackgroundImagesInstruction, bg.UserBlocks[0].Text)
	assert.Equal(t, content.BlockTypeImage, bg.UserBlocks[1].Type)
}

func TestAssemblePageContextAppended(t *testing.T) {
	pageId := uuid.New()
	pages := &fakePages{texts: map[string]string{
		pageId.String(): "Lesson 3\n\nPhotosynthesis converts light into energy.",
	}}
	asm := NewAssembler(&fakeConverter{}, pages, noopLogger{})
	policy := testPolicy()
	cfg := &entity.ChatConfig{PageId: pageId, IncludePageContext: true}

	bg := asm.Assemble(context.Background(), cfg, nil, mode.Inline, policy, content.NewBudgetTracker(policy))

	assert.Equal(t, "Content of the page this chat is embedded in:\n\nLesson 3\n\nPhotosynthesis converts light into energy.", bg.SystemText)
}

func TestAssemblePageContextDisabled(t *testing.T) {
	pageId := uuid.New()
	pages := &fakePages{texts: map[string]string{pageId.String(): "should not appear"}}
	asm := NewAssembler(&fakeConverter{}, pages, noopLogger{})
	policy := testPolicy()
	cfg := &entity.ChatConfig{PageId: pageId, IncludePageContext: false}

	bg := asm.Assemble(context.Background(), cfg, nil, mode.Inline, policy, content.NewBudgetTracker(policy))

	assert.Empty(t, bg.SystemText)
}

func TestAssemblePageContextAfterFiles(t *testing.T) {
	pageId := uuid.New()
	a1 := bgAttachment("notes.txt")
	conv := &fakeConverter{blocks: map[uuid.UUID][]content.Block{
		a1.Id: {content.TextBlock(a1.Filename, "File: notes.txt\n\nhello")},
	}}
	pages := &fakePages{texts: map[string]string{pageId.String(): "page body"}}
	asm := NewAssembler(conv, pages, noopLogger{})
	policy := testPolicy()
	cfg := &entity.ChatConfig{PageId: pageId, IncludePageContext: true}

	bg := asm.Assemble(context.Background(), cfg, []*entity.Attachment{a1}, mode.Inline, policy, content.NewBudgetTracker(policy))

	want := constant.BackgroundFilesHeading +
		"\n\nFile: notes.txt\n\nhello" +
		"\n\nContent of the page this chat is embedded in:\n\npage body"
	assert.Equal(t, want, bg.SystemText)
}

func TestAssembleSkipsFailedAttachments(t *testing.T) {
	broken := bgAttachment("broken.pdf")
	ok := bgAttachment("fine.txt")
	conv := &fakeConverter{
		blocks: map[uuid.UUID][]content.Block{
			ok.Id: {content.TextBlock(ok.Filename, "File: fine.txt\n\ncontent")},
		},
		errs: map[uuid.UUID]error{broken.Id: errors.New("rasterizer unavailable")},
	}
	asm := NewAssembler(conv, &fakePages{}, noopLogger{})
	policy := testPolicy()

	bg := asm.Assemble(context.Background(), &entity.ChatConfig{}, []*entity.Attachment{broken, ok}, mode.Inline, policy, content.NewBudgetTracker(policy))

	assert.Contains(t, bg.SystemText, "fine.txt")
	assert.NotContains(t, bg.SystemText, "broken.pdf")
}
