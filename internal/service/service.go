package service

import (
	"context"

	"github.com/rs/zerolog"

	"studi-rag/internal/ingest"
	"studi-rag/internal/models"
	"studi-rag/internal/rag"
	"studi-rag/internal/store"
	"studi-rag/internal/vectorindex"
)

// Service is the surface the HTTP layer (or any other caller) embeds:
// ingest a document, poll its status, retrieve, delete.
type Service struct {
	ingestor *ingest.Ingestor
	orch     *rag.Orchestrator
	store    store.Store
	index    vectorindex.Index
	log      zerolog.Logger
}

func New(ing *ingest.Ingestor, orch *rag.Orchestrator, st store.Store, idx vectorindex.Index, log zerolog.Logger) *Service {
	return &Service{
		ingestor: ing,
		orch:     orch,
		store:    st,
		index:    idx,
		log:      log.With().Str("component", "service").Logger(),
	}
}

// IngestDocument starts an ingestion job for the owner's document and
// returns its handle. A concurrent job for the same document is
// rejected synchronously with ErrIngestionInProgress.
func (s *Service) IngestDocument(ctx context.Context, ownerID, documentID, rawText string) (*ingest.Job, error) {
	return s.ingestor.Run(ctx, ownerID, documentID, rawText)
}

// IngestDocumentSync runs the whole pipeline before returning. Used by
// the CLI and anywhere a caller wants the terminal status directly.
func (s *Service) IngestDocumentSync(ctx context.Context, ownerID, documentID, rawText string) error {
	return s.ingestor.Ingest(ctx, ownerID, documentID, rawText)
}

// GetIngestionStatus reports the document's lifecycle state and, for
// failed documents, the recorded reason.
func (s *Service) GetIngestionStatus(ctx context.Context, documentID string) (models.DocumentStatus, string, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return "", "", err
	}
	return doc.Status, doc.LastError, nil
}

// Retrieve answers a query within the requester's access scope.
func (s *Service) Retrieve(ctx context.Context, requesterID, queryText string, topK int, filter vectorindex.Filter) ([]models.QueryResultItem, error) {
	return s.orch.Retrieve(ctx, requesterID, queryText, topK, filter)
}

// BuildContext assembles retrieved items into a bounded context window.
func (s *Service) BuildContext(items []models.QueryResultItem) string {
	return s.orch.BuildContext(items)
}

// ShareDocument grants another user read access to a document.
func (s *Service) ShareDocument(ctx context.Context, documentID, userID string) error {
	return s.store.ShareDocument(ctx, documentID, userID)
}

// DeleteDocument removes the document's vectors and its relational
// record. Vectors go first so a failure can never leave searchable
// chunks without a backing record.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.index.Delete(ctx, documentID); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	s.log.Info().Str("document_id", documentID).Msg("document deleted")
	return nil
}
