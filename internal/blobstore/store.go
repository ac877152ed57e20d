// Package blobstore is the remote storage the index and the savegame
// archives live in.
//
// A store is a flat namespace of blobs. Each blob has an opaque id assigned by
// the store and a name chosen by the caller. Names are not unique: two Create
// calls with the same name make two blobs, and callers that look a blob up by
// name must handle zero, one or several matches.
package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/savegamesync/internal/config"
	"github.com/dmitrijs2005/savegamesync/internal/models"
)

// Store is the remote blob store.
type Store interface {
	// ListByName returns every blob whose name equals name exactly.
	ListByName(ctx context.Context, name string) ([]models.Blob, error)

	// ListAll returns every blob in the application folder. Pagination is
	// handled internally.
	ListAll(ctx context.Context) ([]models.Blob, error)

	// Create makes an empty blob and returns its id.
	Create(ctx context.Context, name string) (string, error)

	// Delete removes a blob by id.
	Delete(ctx context.Context, id string) error

	// Upload replaces the content of an existing blob.
	Upload(ctx context.Context, id string, r io.Reader) error

	// Download writes the content of a blob to w.
	Download(ctx context.Context, id string, w io.Writer) error
}

// Open builds the store selected by cfg.StoreBackend. The closer releases
// backend resources.
func Open(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendS3:
		client, err := NewS3Client(ctx, S3Options{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix), nopCloser{}, nil
	case config.BackendSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
