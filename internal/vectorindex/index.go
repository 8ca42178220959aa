package vectorindex

import (
	"context"
	"sort"
	"time"

	"studi-rag/internal/models"
)

// Record is one stored chunk embedding. ChunkID is the logical chunk
// identity (stable across re-ingestions of identical content); Version
// distinguishes the committed set from a staged one, so a re-ingestion
// can write its full new set before the old one is removed.
type Record struct {
	ChunkID    string
	DocumentID string
	OwnerID    string
	Version    int
	Ordinal    int
	Text       string
	Vector     []float32
	Model      string
	UpsertedAt time.Time
}

// Hit is one similarity match returned by a query.
type Hit struct {
	ChunkID    string
	DocumentID string
	Ordinal    int
	Text       string
	Model      string
	Score      float32
	UpsertedAt time.Time
}

// Filter narrows a query beyond the access scope.
type Filter struct {
	// DocumentIDs, when non-empty, is an allow-list intersected with
	// the scope.
	DocumentIDs []string
}

func (f Filter) allows(documentID string) bool {
	if len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if id == documentID {
			return true
		}
	}
	return false
}

// Index wraps a vector store. Upsert is idempotent per (chunk, version);
// Delete of an absent document is a no-op; Query only returns records
// inside the caller's scope, ordered deterministically.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Delete(ctx context.Context, documentID string) error
	DeleteVersion(ctx context.Context, documentID string, version int) error
	Query(ctx context.Context, scope models.Scope, vector []float32, topK int, filter Filter) ([]Hit, error)
}

// sortHits orders hits by score descending, breaking ties by most
// recent upsert and then chunk id, so identical stores always produce
// identical result order.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].UpsertedAt.Equal(hits[j].UpsertedAt) {
			return hits[i].UpsertedAt.After(hits[j].UpsertedAt)
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
