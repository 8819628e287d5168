package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/pkg/provider"
)

// OllamaProvider speaks the Ollama chat API, inline-multimodal via the
// per-message images field. No retrieval storage: SendRetrieval falls back to
// SendDirect and document operations are unsupported.
type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
	logger    logger.ILogger
}

var _ provider.Provider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, timeout time.Duration, log logger.ILogger) *OllamaProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) ID() string {
	return "ollama"
}

func (o *OllamaProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:               true,
		Retrieval:               false,
		InlineMultimodal:        true,
		SupportedFileExtensions: []string{".txt", ".md", ".csv", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".pdf"},
		MaxContextTokens:        0,
	}
}

func (o *OllamaProvider) SendDirect(ctx context.Context, messages []provider.Message, opts ...provider.Option) (string, error) {
	reqPayload := o.buildRequest(messages, false, opts...)

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return ollamaResp.Message.Content, nil
}

func (o *OllamaProvider) SendRetrieval(ctx context.Context, messages []provider.Message, collectionIds []string, opts ...provider.Option) (string, error) {
	o.logger.Warn("OllamaProvider", "retrieval send requested without retrieval capability, falling back to direct", map[string]interface{}{
		"collection_ids": collectionIds,
	})
	return o.SendDirect(ctx, messages, opts...)
}

// SendDirectStream consumes Ollama's NDJSON stream, forwarding deltas and
// closing with a done event carrying the accumulated full text.
func (o *OllamaProvider) SendDirectStream(ctx context.Context, messages []provider.Message, opts ...provider.Option) (<-chan provider.StreamEvent, error) {
	reqPayload := o.buildRequest(messages, true, opts...)

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var full strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				events <- provider.StreamEvent{Err: fmt.Errorf("unmarshal stream chunk: %w", err)}
				return
			}
			if chunk.Message.Content != "" {
				full.WriteString(chunk.Message.Content)
				select {
				case events <- provider.StreamEvent{Delta: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				events <- provider.StreamEvent{Done: true, FinalText: full.String()}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			events <- provider.StreamEvent{Err: fmt.Errorf("read stream: %w", err)}
			return
		}
		// Stream ended without a done marker; deliver what we have.
		events <- provider.StreamEvent{Done: true, FinalText: full.String()}
	}()

	return events, nil
}

func (o *OllamaProvider) UploadDocument(ctx context.Context, data []byte, filename string, entityId string) (*provider.UploadResult, error) {
	return nil, provider.ErrUnsupportedOperation
}

func (o *OllamaProvider) DeleteDocument(ctx context.Context, remoteDocumentId string, entityId string) error {
	return provider.ErrUnsupportedOperation
}

func (o *OllamaProvider) buildRequest(messages []provider.Message, stream bool, opts ...provider.Option) ollamaChatRequest {
	options := &provider.Options{
		Temperature: 0.7, // Default
	}
	for _, opt := range opts {
		opt(options)
	}

	ollamaMessages := make([]ollamaMessage, len(messages))
	for i, msg := range messages {
		om := ollamaMessage{
			Role:    msg.Role,
			Content: msg.Text(),
		}
		for _, img := range msg.Images() {
			om.Images = append(om.Images, base64.StdEncoding.EncodeToString(img.Data))
		}
		ollamaMessages[i] = om
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: ollamaMessages,
		Stream:   stream,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}
	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}
	return reqPayload
}
