package raster

import (
	"context"
	"fmt"
)

// Unavailable is wired when no rasterizer service is configured. PDFs then
// degrade gracefully to zero inline blocks instead of failing the send.
type Unavailable struct{}

func NewUnavailable() *Unavailable {
	return &Unavailable{}
}

func (u *Unavailable) Rasterize(ctx context.Context, pdf []byte, maxPages, maxDim, quality int) ([][]byte, error) {
	return nil, fmt.Errorf("no rasterizer configured")
}
