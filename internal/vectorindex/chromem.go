package vectorindex

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"

	"studi-rag/internal/config"
	"studi-rag/internal/models"
)

// Initial over-fetch multiplier. chromem's metadata filter is a flat
// equality match and cannot express a per-document version set, so the
// adapter fetches more than topK and filters; when the filtered hits
// still fall short the fetch doubles until the collection is exhausted,
// so in-scope matches are never dropped by out-of-scope neighbors.
const overfetch = 4

// Chromem adapts a chromem-go collection to the Index interface.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func NewChromem(cfg config.VectorConfig) (*Chromem, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	return &Chromem{db: db, collection: collection}, nil
}

func (c *Chromem) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        key(r.ChunkID, r.Version),
			Content:   r.Text,
			Embedding: r.Vector,
			Metadata: map[string]string{
				"chunk_id":    r.ChunkID,
				"document_id": r.DocumentID,
				"owner_id":    r.OwnerID,
				"version":     strconv.Itoa(r.Version),
				"ordinal":     strconv.Itoa(r.Ordinal),
				"model":       r.Model,
				"upserted_at": r.UpsertedAt.UTC().Format(time.RFC3339Nano),
			},
		}
	}
	if err := c.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	return nil
}

func (c *Chromem) Delete(ctx context.Context, documentID string) error {
	if c.collection.Count() == 0 {
		return nil
	}
	err := c.collection.Delete(ctx, map[string]string{"document_id": documentID}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	return nil
}

func (c *Chromem) DeleteVersion(ctx context.Context, documentID string, version int) error {
	if c.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{
		"document_id": documentID,
		"version":     strconv.Itoa(version),
	}
	if err := c.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	return nil
}

func (c *Chromem) Query(ctx context.Context, scope models.Scope, vector []float32, topK int, filter Filter) ([]Hit, error) {
	if topK <= 0 || scope.Empty() {
		return nil, nil
	}
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	n := topK * overfetch
	if n > count {
		n = count
	}

	var hits []Hit
	for {
		results, err := c.collection.QueryEmbedding(ctx, vector, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}

		hits = hits[:0]
		for _, res := range results {
			version, err := strconv.Atoi(res.Metadata["version"])
			if err != nil {
				continue
			}
			docID := res.Metadata["document_id"]
			if !scope.Allows(docID, version) || !filter.allows(docID) {
				continue
			}
			ordinal, _ := strconv.Atoi(res.Metadata["ordinal"])
			upserted, _ := time.Parse(time.RFC3339Nano, res.Metadata["upserted_at"])
			hits = append(hits, Hit{
				ChunkID:    res.Metadata["chunk_id"],
				DocumentID: docID,
				Ordinal:    ordinal,
				Text:       res.Content,
				Model:      res.Metadata["model"],
				Score:      res.Similarity,
				UpsertedAt: upserted,
			})
		}
		if len(hits) >= topK || n == count {
			break
		}
		n *= 2
		if n > count {
			n = count
		}
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
