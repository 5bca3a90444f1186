package tagstore

import (
	"context"
	"fmt"
	"io"

	"github.com/jaki95/dj-metadata-sync/config"
)

// NewBackend returns the backend selected by the configuration. Backends
// holding connections also implement io.Closer.
func NewBackend(ctx context.Context, cfg config.TagStoreConfig) (Backend, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Type {
	case config.TagStoreID3:
		return NewID3Backend(), nil
	case config.TagStoreMemory:
		return NewMemoryBackend(), nil
	case config.TagStoreSidecar:
		backend, err = NewSidecarBackend(cfg.SidecarDir)
	case config.TagStoreGCS:
		backend, err = NewGCSBackend(ctx, cfg.GCS.Bucket, cfg.GCS.Prefix, cfg.GCS.CredentialsFile)
	case config.TagStorePostgres:
		backend, err = NewPostgresBackend(ctx, cfg.Postgres.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown tag store type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// Close closes b if it holds resources.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
