package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studi-rag/internal/models"
)

func TestMemoryDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.CreateDocument(ctx, &models.Document{
		ID:      "d1",
		OwnerID: "alice",
		Status:  models.StatusPending,
	}))

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.False(t, doc.CreatedAt.IsZero())

	require.NoError(t, s.UpdateStatus(ctx, "d1", models.StatusIndexing, ""))
	require.NoError(t, s.CommitIndexed(ctx, "d1", 1))

	doc, err = s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusIndexed, doc.Status)
	assert.Equal(t, 1, doc.IndexVersion)
	assert.Empty(t, doc.LastError)

	require.NoError(t, s.DeleteDocument(ctx, "d1"))
	_, err = s.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestMemoryUpdateStatusRecordsError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "d1", OwnerID: "alice", Status: models.StatusPending}))

	require.NoError(t, s.UpdateStatus(ctx, "d1", models.StatusIndexing, ""))
	require.NoError(t, s.UpdateStatus(ctx, "d1", models.StatusFailed, "embedding backend error"))
	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Equal(t, "embedding backend error", doc.LastError)
}

func TestMemoryRejectsIllegalTransition(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "d1", OwnerID: "alice", Status: models.StatusPending}))

	err := s.CommitIndexed(ctx, "d1", 1)
	assert.ErrorIs(t, err, models.ErrInvalidTransition, "a document cannot commit without passing through indexing")

	err = s.UpdateStatus(ctx, "d1", models.StatusFailed, "boom")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestMemoryCreateDocumentResetsExisting(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "d1", OwnerID: "alice", Status: models.StatusPending}))
	require.NoError(t, s.UpdateStatus(ctx, "d1", models.StatusIndexing, ""))
	require.NoError(t, s.CommitIndexed(ctx, "d1", 3))

	// Re-ingestion resets status but keeps the committed version.
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "d1", OwnerID: "alice", Status: models.StatusPending}))
	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Equal(t, 3, doc.IndexVersion)
}

func TestMemoryListOwnedAndShared(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "a1", OwnerID: "alice", Status: models.StatusIndexed}))
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "b1", OwnerID: "bob", Status: models.StatusIndexed}))
	require.NoError(t, s.CreateDocument(ctx, &models.Document{ID: "b2", OwnerID: "bob", Status: models.StatusIndexed}))
	require.NoError(t, s.ShareDocument(ctx, "b1", "alice"))

	docs, err := s.ListOwnedAndShared(ctx, "alice")
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, d := range docs {
		ids[d.ID] = true
	}
	assert.Equal(t, map[string]bool{"a1": true, "b1": true}, ids)

	docs, err = s.ListOwnedAndShared(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = s.ListOwnedAndShared(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryGetDocumentNotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.GetDocument(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}
