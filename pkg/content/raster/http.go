package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRasterizer delegates PDF rasterization to a sidecar service. The core
// never parses PDFs itself; it asks the service for up to maxPages page
// images and treats any failure as a per-attachment conversion failure.
type HTTPRasterizer struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPRasterizer(baseURL string) *HTTPRasterizer {
	return &HTTPRasterizer{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type rasterizeRequest struct {
	PDF      string `json:"pdf"` // base64
	MaxPages int    `json:"max_pages"`
	MaxDim   int    `json:"max_dim"`
	Quality  int    `json:"quality"`
}

type rasterizeResponse struct {
	Pages []string `json:"pages"` // base64, page order
	Error string   `json:"error,omitempty"`
}

func (r *HTTPRasterizer) Rasterize(ctx context.Context, pdf []byte, maxPages, maxDim, quality int) ([][]byte, error) {
	reqPayload := rasterizeRequest{
		PDF:      base64.StdEncoding.EncodeToString(pdf),
		MaxPages: maxPages,
		MaxDim:   maxDim,
		Quality:  quality,
	}
	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := r.BaseURL + "/v1/rasterize"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rasterizer request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rasterizer error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var rasterResp rasterizeResponse
	if err := json.Unmarshal(bodyBytes, &rasterResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rasterResp.Error != "" {
		return nil, fmt.Errorf("rasterizer: %s", rasterResp.Error)
	}

	pages := make([][]byte, 0, len(rasterResp.Pages))
	for i, p := range rasterResp.Pages {
		decoded, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", i+1, err)
		}
		pages = append(pages, decoded)
	}
	return pages, nil
}
