package provider

import (
	"context"
	"errors"

	"ai-chatwidget-be/pkg/content"
)

// ErrUnsupportedOperation is returned by document operations on providers
// without retrieval capability. Capability checks belong before the call;
// this error covers callers that skipped the check.
var ErrUnsupportedOperation = errors.New("operation not supported by provider")

// Capabilities is the static contract a provider declares at registration.
type Capabilities struct {
	Streaming               bool
	Retrieval               bool
	InlineMultimodal        bool
	SupportedFileExtensions []string
	MaxContextTokens        int // 0 = unknown/unbounded
}

func (c Capabilities) SupportsRetrieval() bool {
	return c.Retrieval
}

// Message is one provider-ready conversation turn, already shaped into
// provider-agnostic content blocks.
type Message struct {
	Role   string // "system", "user", "assistant"
	Blocks []content.Block
}

// TextMessage builds a plain single-text-block message.
func TextMessage(role, text string) Message {
	return Message{
		Role:   role,
		Blocks: []content.Block{content.TextBlock("", text)},
	}
}

// Text concatenates the message's text blocks, ignoring images.
func (m Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if b.Type != content.BlockTypeText {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += b.Text
	}
	return out
}

// Images returns the message's image blocks in order.
func (m Message) Images() []content.Block {
	var out []content.Block
	for _, b := range m.Blocks {
		if b.Type == content.BlockTypeImage {
			out = append(out, b)
		}
	}
	return out
}

// UploadResult identifies a document pushed into provider-side retrieval
// storage.
type UploadResult struct {
	CollectionId     string
	RemoteDocumentId string
}

// StreamEvent is one increment of a streaming reply. The terminal event has
// Done set and carries the final full text; persistence uses only that.
// Errors travel in-band on the same channel.
type StreamEvent struct {
	Delta     string
	Done      bool
	FinalText string
	Err       error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider abstracts one AI backend.
type Provider interface {
	ID() string
	Capabilities() Capabilities

	// SendDirect submits the message array as-is (inline delivery).
	SendDirect(ctx context.Context, messages []Message, opts ...Option) (string, error)

	// SendRetrieval references provider-side collections instead of embedding
	// content. Providers without retrieval capability fall back transparently
	// to SendDirect, ignoring collection ids, and log the fallback.
	SendRetrieval(ctx context.Context, messages []Message, collectionIds []string, opts ...Option) (string, error)

	// SendDirectStream delivers the reply incrementally. Only meaningful when
	// Capabilities().Streaming is true.
	SendDirectStream(ctx context.Context, messages []Message, opts ...Option) (<-chan StreamEvent, error)

	// UploadDocument and DeleteDocument manage provider-side retrieval
	// storage; providers without the capability return
	// ErrUnsupportedOperation.
	UploadDocument(ctx context.Context, data []byte, filename string, entityId string) (*UploadResult, error)
	DeleteDocument(ctx context.Context, remoteDocumentId string, entityId string) error
}
