package store

import (
	"context"

	"studi-rag/internal/models"
)

// Store is the relational source of truth for document ownership,
// sharing and ingestion status. The pipeline reads ownership for scope
// computation and writes status transitions; everything else about the
// relational schema belongs to its owner.
type Store interface {
	// CreateDocument inserts the record, or resets an existing one to
	// the given status (re-ingestion path).
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListOwnedAndShared returns every document the requester owns or
	// has been granted access to.
	ListOwnedAndShared(ctx context.Context, requesterID string) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, lastError string) error
	// CommitIndexed marks the document indexed under the given vector
	// index version. This is the single commit point of an ingestion.
	CommitIndexed(ctx context.Context, id string, version int) error
	DeleteDocument(ctx context.Context, id string) error
	ShareDocument(ctx context.Context, documentID, userID string) error
}
