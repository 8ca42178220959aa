package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studi-rag/internal/chunker"
	"studi-rag/internal/config"
	"studi-rag/internal/embedding"
	"studi-rag/internal/models"
	"studi-rag/internal/tracker"
	"studi-rag/internal/vectorindex"
)

// Ingestor turns raw document text into a committed, searchable set of
// chunk embeddings. Every attempt writes under a fresh index version;
// the commit flips the document to indexed, and only then is the
// superseded set removed, so readers never observe a partial or empty
// window.
type Ingestor struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	index    vectorindex.Index
	tracker  *tracker.Tracker
	cfg      config.RAGConfig
	batch    int
	log      zerolog.Logger
}

func New(ch *chunker.Chunker, emb embedding.Embedder, idx vectorindex.Index, tr *tracker.Tracker, cfg config.RAGConfig, embedBatch int, log zerolog.Logger) *Ingestor {
	if embedBatch <= 0 {
		embedBatch = 16
	}
	return &Ingestor{
		chunker:  ch,
		embedder: emb,
		index:    idx,
		tracker:  tr,
		cfg:      cfg,
		batch:    embedBatch,
		log:      log.With().Str("component", "ingest").Logger(),
	}
}

// Run starts an ingestion job for the document. Rejection of a
// concurrent job for the same document happens synchronously; the
// pipeline itself runs in the background, detached from the caller's
// cancellation, and is cancelled through the returned handle.
func (ing *Ingestor) Run(ctx context.Context, ownerID, documentID, text string) (*Job, error) {
	prev, release, err := ing.tracker.Begin(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(documentID, cancel)
	go func() {
		defer release()
		defer job.finish()
		job.err = ing.run(jobCtx, prev, ownerID, documentID, text)
	}()
	return job, nil
}

// Ingest runs the pipeline synchronously. Cancelling ctx cancels the
// job and waits for its cleanup, so the document is never left
// half-indexed.
func (ing *Ingestor) Ingest(ctx context.Context, ownerID, documentID, text string) error {
	job, err := ing.Run(ctx, ownerID, documentID, text)
	if err != nil {
		return err
	}
	select {
	case <-job.done:
	case <-ctx.Done():
		job.Cancel()
		<-job.done
	}
	return job.err
}

func (ing *Ingestor) run(ctx context.Context, prev *models.Document, ownerID, documentID, text string) error {
	version := prev.IndexVersion + 1
	log := ing.log.With().Str("document_id", documentID).Int("version", version).Logger()

	chunks := ing.chunker.Split(documentID, text)
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s:%d", documentID, chunks[i].Ordinal)
	}
	log.Debug().Int("chunks", len(chunks)).Msg("document chunked")

	if len(chunks) == 0 {
		// Degenerate but valid: an empty document commits an empty set.
		if err := ing.tracker.Commit(ctx, documentID, version); err != nil {
			return ing.fail(documentID, version, err)
		}
		ing.purgeSuperseded(documentID, prev.IndexVersion, log)
		return nil
	}

	vectors, err := ing.embedChunks(ctx, chunks)
	if err != nil {
		return ing.fail(documentID, version, err)
	}

	now := time.Now().UTC()
	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			ChunkID:    c.ID,
			DocumentID: documentID,
			OwnerID:    ownerID,
			Version:    version,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			Vector:     vectors[i],
			Model:      ing.embedder.Model(),
			UpsertedAt: now,
		}
	}
	if err := ing.index.Upsert(ctx, records); err != nil {
		return ing.fail(documentID, version, err)
	}

	if err := ing.tracker.Commit(ctx, documentID, version); err != nil {
		return ing.fail(documentID, version, err)
	}
	ing.purgeSuperseded(documentID, prev.IndexVersion, log)
	log.Info().Int("chunks", len(chunks)).Msg("document indexed")
	return nil
}

// embedChunks embeds chunk texts in parallel batches. Order is
// preserved: batch i writes into its own slice window.
func (ing *Ingestor) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.cfg.MaxConcurrency)

	for start := 0; start < len(chunks); start += ing.batch {
		end := start + ing.batch
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, c := range chunks[start:end] {
				texts[i] = c.Text
			}
			batch, err := ing.embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// fail rolls the attempt back: any partially written vectors for this
// version are removed and the document lands in failed with the cause
// recorded. Cleanup runs on a fresh context because the attempt's own
// context may already be cancelled.
func (ing *Ingestor) fail(documentID string, version int, cause error) error {
	cleanup, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ing.index.DeleteVersion(cleanup, documentID, version); err != nil {
		ing.log.Error().Err(err).
			Str("document_id", documentID).
			Int("version", version).
			Msg("failed to roll back partial vectors")
	}
	if err := ing.tracker.Fail(cleanup, documentID, cause); err != nil {
		ing.log.Error().Err(err).
			Str("document_id", documentID).
			Msg("failed to record ingestion failure")
	}
	return cause
}

func (ing *Ingestor) purgeSuperseded(documentID string, prevVersion int, log zerolog.Logger) {
	if prevVersion == 0 {
		return
	}
	cleanup, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ing.index.DeleteVersion(cleanup, documentID, prevVersion); err != nil {
		// The committed version already shadows the old one in every
		// scope; leftover records only cost space.
		log.Warn().Err(err).Int("prev_version", prevVersion).Msg("failed to purge superseded vectors")
	}
}
