package blob

import "context"

// Store persists raw file bytes under opaque keys. Keys carry the original
// filename suffix so MIME-family detection can work from the key alone.
type Store interface {
	Put(ctx context.Context, data []byte, filename string) (key string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
