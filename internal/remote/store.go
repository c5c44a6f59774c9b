// Package remote talks to the hosted file store that backs the assistant.
package remote

import (
	"context"

	"github.com/xaenox/bwe-assistant/internal/models"
)

// FileStore is the remote file-search store. Calls block on the network and
// are not retried.
type FileStore interface {
	Upload(ctx context.Context, name, path string) (models.FileRecord, error)
	List(ctx context.Context) ([]models.FileRecord, error)
	Delete(ctx context.Context, id string) error
	// Limited reports whether the store is a degraded stand-in for the real API.
	Limited() bool
}
