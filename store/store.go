package store

import (
	"context"
	"errors"

	"github.com/readboostid/readboost-server/models"
)

// ErrNotFound is returned when a key or document does not exist in a store.
// Callers use it to distinguish "no record yet" from real I/O failures.
var ErrNotFound = errors.New("store: not found")

// Local is the always-available relational copy of progress state. It lives
// in the service database and never fails due to network partitions, so the
// reconciliation manager treats it as the fallback of last resort before
// synthesizing a default.
type Local interface {
	GetProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	PutProgress(ctx context.Context, p *models.UserProgress) error
	UpdateField(ctx context.Context, userID, field string, value any) error
	// TopByXP lists progress rows by descending TotalXP, for leaderboard
	// fallback when the remote store is unreachable.
	TopByXP(ctx context.Context, limit int) ([]models.UserProgress, error)
}

// Remote is the network-attached document store holding the authoritative
// progress copy, the append-only reading sessions and the leaderboard
// collections. Every call can fail and callers must be prepared to fall back.
type Remote interface {
	// GetDocument returns the document or ErrNotFound.
	GetDocument(ctx context.Context, collection, id string) (map[string]any, error)
	// SetDocument overwrites the whole document.
	SetDocument(ctx context.Context, collection, id string, doc map[string]any) error
	// UpdateFields merges the given fields into an existing document without
	// transactional guarantees. Returns ErrNotFound for missing documents.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
	// RunTransaction applies fn atomically (read-modify-write). fn receives
	// the current document, or nil when it does not exist, and returns the
	// document to write; returning nil aborts without writing.
	RunTransaction(ctx context.Context, collection, id string, fn func(doc map[string]any) map[string]any) error
	// Query lists up to limit documents of a collection ordered by the given
	// numeric field, descending.
	Query(ctx context.Context, collection, orderBy string, limit int) ([]map[string]any, error)
}
