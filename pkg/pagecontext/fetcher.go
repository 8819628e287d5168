package pagecontext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/internal/repository/memory"
)

// maxPageBytes caps how much of a page body we read; LMS pages past this
// size are media-heavy and the leading text is what matters.
const maxPageBytes = 2 * 1024 * 1024

// Fetcher retrieves and caches page text for chat context. Failures are
// swallowed deliberately: the chat must answer even when the page fetch
// breaks, just without page grounding.
type Fetcher struct {
	baseURL string
	client  *http.Client
	cache   *memory.PageContextCache
	logger  logger.ILogger
}

func NewFetcher(lmsBaseURL string, cache *memory.PageContextCache, log logger.ILogger) *Fetcher {
	return &Fetcher{
		baseURL: lmsBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: cache,
		logger: log,
	}
}

// PageText returns the extracted text for a page reference, or "" when the
// page cannot be fetched.
func (f *Fetcher) PageText(ctx context.Context, pageRef string) string {
	if pageRef == "" {
		return ""
	}
	if text, ok := f.cache.Get(pageRef); ok {
		return text
	}

	text, err := f.fetch(ctx, pageRef)
	if err != nil {
		f.logger.Warn("PageContextFetcher", "page fetch failed", map[string]interface{}{
			"page_ref": pageRef,
			"error":    err.Error(),
		})
		return ""
	}

	f.cache.Save(pageRef, text)
	return text
}

func (f *Fetcher) fetch(ctx context.Context, pageRef string) (string, error) {
	pageURL, err := f.resolve(pageRef)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}

	title, text, err := ExtractText(body)
	if err != nil {
		return "", err
	}
	if title != "" {
		text = title + "\n\n" + text
	}
	return text, nil
}

// resolve turns a page reference into an absolute URL. Absolute references
// are used as-is; relative ones are joined onto the LMS base URL.
func (f *Fetcher) resolve(pageRef string) (string, error) {
	ref, err := url.Parse(pageRef)
	if err != nil {
		return "", fmt.Errorf("parse page ref: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
