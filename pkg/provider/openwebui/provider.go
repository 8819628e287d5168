package openwebui

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/provider"
)

// OpenWebUIProvider speaks the Open WebUI API: OpenAI-compatible chat
// completions for sends, knowledge collections for retrieval storage. One
// knowledge collection is kept per entity (chat widget) and referenced by id
// on retrieval sends.
type OpenWebUIProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
	logger  logger.ILogger

	// collection cache: entityId -> knowledge collection id
	mu          sync.Mutex
	collections map[string]string
}

var _ provider.Provider = &OpenWebUIProvider{}

func NewOpenWebUIProvider(baseURL, apiKey, model string, timeout time.Duration, log logger.ILogger) *OpenWebUIProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenWebUIProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client: &http.Client{
			Timeout: timeout,
		},
		logger:      log,
		collections: make(map[string]string),
	}
}

func (p *OpenWebUIProvider) ID() string {
	return "openwebui"
}

func (p *OpenWebUIProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:               true,
		Retrieval:               true,
		InlineMultimodal:        true,
		SupportedFileExtensions: []string{".txt", ".md", ".csv", ".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp"},
		MaxContextTokens:        128000,
	}
}

// --- OpenAI-compatible payloads ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Files    []fileRef     `json:"files,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// chatMessage content is either a plain string or a multimodal part list.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"` // "text" | "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type fileRef struct {
	Type string `json:"type"` // "collection"
	Id   string `json:"id"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenWebUIProvider) SendDirect(ctx context.Context, messages []provider.Message, opts ...provider.Option) (string, error) {
	return p.send(ctx, messages, nil, opts...)
}

func (p *OpenWebUIProvider) SendRetrieval(ctx context.Context, messages []provider.Message, collectionIds []string, opts ...provider.Option) (string, error) {
	return p.send(ctx, messages, collectionIds, opts...)
}

func (p *OpenWebUIProvider) send(ctx context.Context, messages []provider.Message, collectionIds []string, opts ...provider.Option) (string, error) {
	reqPayload := p.buildRequest(messages, collectionIds, false, opts...)

	bodyBytes, err := p.post(ctx, "/api/chat/completions", reqPayload)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openwebui: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openwebui: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// SendDirectStream consumes the SSE stream, forwarding delta content until
// the [DONE] marker.
func (p *OpenWebUIProvider) SendDirectStream(ctx context.Context, messages []provider.Message, opts ...provider.Option) (<-chan provider.StreamEvent, error) {
	reqPayload := p.buildRequest(messages, nil, true, opts...)

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+"/api/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openwebui request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openwebui error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var full strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				events <- provider.StreamEvent{Done: true, FinalText: full.String()}
				return
			}
			var chunk chatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // tolerate keepalive/non-JSON lines
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			select {
			case events <- provider.StreamEvent{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			events <- provider.StreamEvent{Err: fmt.Errorf("read stream: %w", err)}
			return
		}
		events <- provider.StreamEvent{Done: true, FinalText: full.String()}
	}()

	return events, nil
}

// --- Retrieval storage ---

type knowledgeItem struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type uploadedFile struct {
	Id string `json:"id"`
}

// UploadDocument pushes a file into the entity's knowledge collection,
// creating the collection on first use.
func (p *OpenWebUIProvider) UploadDocument(ctx context.Context, data []byte, filename string, entityId string) (*provider.UploadResult, error) {
	collectionId, err := p.ensureCollection(ctx, entityId)
	if err != nil {
		return nil, err
	}

	fileId, err := p.uploadFile(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	addPayload := map[string]string{"file_id": fileId}
	if _, err := p.post(ctx, "/api/v1/knowledge/"+collectionId+"/file/add", addPayload); err != nil {
		return nil, fmt.Errorf("add file to collection: %w", err)
	}

	return &provider.UploadResult{
		CollectionId:     collectionId,
		RemoteDocumentId: fileId,
	}, nil
}

func (p *OpenWebUIProvider) DeleteDocument(ctx context.Context, remoteDocumentId string, entityId string) error {
	// Detach from the collection first; best-effort since the file delete is
	// what actually frees the document.
	p.mu.Lock()
	collectionId := p.collections[entityId]
	p.mu.Unlock()
	if collectionId != "" {
		removePayload := map[string]string{"file_id": remoteDocumentId}
		if _, err := p.post(ctx, "/api/v1/knowledge/"+collectionId+"/file/remove", removePayload); err != nil {
			p.logger.Warn("OpenWebUIProvider", "detach from collection failed", map[string]interface{}{
				"file_id": remoteDocumentId,
				"error":   err.Error(),
			})
		}
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE", p.BaseURL+"/api/v1/files/"+remoteDocumentId, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("openwebui request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openwebui delete error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// ensureCollection finds or creates the knowledge collection for an entity.
func (p *OpenWebUIProvider) ensureCollection(ctx context.Context, entityId string) (string, error) {
	p.mu.Lock()
	if id, ok := p.collections[entityId]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	name := "chatwidget-" + entityId

	// List existing collections; ours may already exist from a prior process.
	listBytes, err := p.get(ctx, "/api/v1/knowledge/")
	if err == nil {
		var items []knowledgeItem
		if err := json.Unmarshal(listBytes, &items); err == nil {
			for _, item := range items {
				if item.Name == name {
					p.rememberCollection(entityId, item.Id)
					return item.Id, nil
				}
			}
		}
	}

	createPayload := map[string]string{
		"name":        name,
		"description": "Background and chat documents for widget " + entityId,
	}
	createBytes, err := p.post(ctx, "/api/v1/knowledge/create", createPayload)
	if err != nil {
		return "", fmt.Errorf("create collection: %w", err)
	}
	var created knowledgeItem
	if err := json.Unmarshal(createBytes, &created); err != nil {
		return "", fmt.Errorf("unmarshal collection: %w", err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("collection create returned empty id")
	}
	p.rememberCollection(entityId, created.Id)
	return created.Id, nil
}

func (p *OpenWebUIProvider) rememberCollection(entityId, collectionId string) {
	p.mu.Lock()
	p.collections[entityId] = collectionId
	p.mu.Unlock()
}

func (p *OpenWebUIProvider) uploadFile(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+"/api/v1/files/", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openwebui upload failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openwebui upload error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var uploaded uploadedFile
	if err := json.Unmarshal(bodyBytes, &uploaded); err != nil {
		return "", fmt.Errorf("unmarshal upload response: %w", err)
	}
	if uploaded.Id == "" {
		return "", fmt.Errorf("upload returned empty file id")
	}
	return uploaded.Id, nil
}

// --- helpers ---

func (p *OpenWebUIProvider) buildRequest(messages []provider.Message, collectionIds []string, stream bool, opts ...provider.Option) chatRequest {
	options := &provider.Options{}
	for _, opt := range opts {
		opt(options)
	}

	outMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		images := msg.Images()
		if len(images) == 0 {
			outMessages[i] = chatMessage{Role: msg.Role, Content: msg.Text()}
			continue
		}
		parts := make([]contentPart, 0, len(images)+1)
		if text := msg.Text(); text != "" {
			parts = append(parts, contentPart{Type: "text", Text: text})
		}
		for _, img := range images {
			parts = append(parts, contentPart{
				Type: "image_url",
				ImageURL: &imageURL{
					URL: dataURL(img),
				},
			})
		}
		outMessages[i] = chatMessage{Role: msg.Role, Content: parts}
	}

	model := p.Model
	if options.Model != "" {
		model = options.Model
	}

	req := chatRequest{
		Model:       model,
		Messages:    outMessages,
		Stream:      stream,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}
	for _, id := range collectionIds {
		req.Files = append(req.Files, fileRef{Type: "collection", Id: id})
	}
	return req
}

func dataURL(img content.Block) string {
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (p *OpenWebUIProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
}

func (p *OpenWebUIProvider) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+path, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openwebui request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openwebui error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return bodyBytes, nil
}

func (p *OpenWebUIProvider) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openwebui request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openwebui error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return bodyBytes, nil
}
