// Package objstore stores generated media and hands back the public URL
// that gets persisted alongside articles and briefings.
package objstore

import (
	"context"
	"fmt"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// Store uploads media blobs under stable keys.
type Store interface {
	// PutBytes writes data under key and returns the public URL for it.
	// Re-uploading an existing key overwrites it.
	PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case "fs":
		return NewFS(cfg)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("objstore: unknown backend %q", cfg.Backend)
	}
}
