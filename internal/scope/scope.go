package scope

import (
	"context"
	"fmt"

	"studi-rag/internal/models"
	"studi-rag/internal/store"
)

// Enforcer computes the set of documents a requester may search: their
// own plus anything shared with them, restricted to documents with a
// committed index version. It fails closed: when the ownership record
// cannot be read, retrieval gets an error, never a default scope.
type Enforcer struct {
	store store.Store
}

func NewEnforcer(s store.Store) *Enforcer {
	return &Enforcer{store: s}
}

// ScopeFor returns the requester's scope with each document pinned to
// its committed index version. A document being re-ingested keeps its
// committed version in scope for the whole indexing window; the version
// pin keeps the staged set invisible until it commits.
func (e *Enforcer) ScopeFor(ctx context.Context, requesterID string) (models.Scope, error) {
	docs, err := e.store.ListOwnedAndShared(ctx, requesterID)
	if err != nil {
		return models.Scope{}, fmt.Errorf("%w: %v", models.ErrScopeUnavailable, err)
	}
	scope := models.Scope{DocVersions: make(map[string]int, len(docs))}
	for _, d := range docs {
		switch d.Status {
		case models.StatusIndexed:
		case models.StatusIndexing:
			// first-time ingestion has nothing committed yet
			if d.IndexVersion == 0 {
				continue
			}
		default:
			continue
		}
		scope.DocVersions[d.ID] = d.IndexVersion
	}
	return scope, nil
}
