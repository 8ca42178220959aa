package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"studi-rag/internal/models"
	"studi-rag/internal/store"
)

// Tracker drives the per-document ingestion state machine
// (pending -> indexing -> indexed | failed, with failed and indexed
// re-enterable via re-ingestion) and enforces at most one active
// ingestion per document. Unrelated documents never serialize on each
// other: exclusion is keyed by document id, not global.
type Tracker struct {
	store store.Store

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(s store.Store) *Tracker {
	return &Tracker{store: s, inflight: make(map[string]struct{})}
}

// Begin claims the document's ingestion slot and transitions it to
// indexing, creating the relational record when this is the first
// ingestion. It returns the prior committed state and a release
// function that must be called when the attempt finishes, after Commit
// or Fail. A document already mid-ingestion is rejected with
// ErrIngestionInProgress rather than queued.
func (t *Tracker) Begin(ctx context.Context, ownerID, documentID string) (*models.Document, func(), error) {
	t.mu.Lock()
	if _, busy := t.inflight[documentID]; busy {
		t.mu.Unlock()
		return nil, nil, fmt.Errorf("%s: %w", documentID, models.ErrIngestionInProgress)
	}
	t.inflight[documentID] = struct{}{}
	t.mu.Unlock()

	release := func() {
		t.mu.Lock()
		delete(t.inflight, documentID)
		t.mu.Unlock()
	}

	doc, err := t.prepare(ctx, ownerID, documentID)
	if err != nil {
		release()
		return nil, nil, err
	}
	return doc, release, nil
}

func (t *Tracker) prepare(ctx context.Context, ownerID, documentID string) (*models.Document, error) {
	doc, err := t.store.GetDocument(ctx, documentID)
	switch {
	case err == nil:
	case isNotFound(err):
		doc = &models.Document{
			ID:      documentID,
			OwnerID: ownerID,
			Status:  models.StatusPending,
		}
		if err := t.store.CreateDocument(ctx, doc); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := t.store.UpdateStatus(ctx, documentID, models.StatusIndexing, ""); err != nil {
		return nil, err
	}
	return doc, nil
}

// Commit is the single point where a document becomes searchable: it
// records the new index version and moves the document to indexed.
func (t *Tracker) Commit(ctx context.Context, documentID string, version int) error {
	return t.store.CommitIndexed(ctx, documentID, version)
}

// Fail moves the document to its terminal failed state with the cause
// recorded for status polling.
func (t *Tracker) Fail(ctx context.Context, documentID string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return t.store.UpdateStatus(ctx, documentID, models.StatusFailed, reason)
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrDocumentNotFound)
}
