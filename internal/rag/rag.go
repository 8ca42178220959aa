package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"studi-rag/internal/config"
	"studi-rag/internal/embedding"
	"studi-rag/internal/models"
	"studi-rag/internal/scope"
	"studi-rag/internal/vectorindex"
)

// Orchestrator answers retrieval requests: it computes the requester's
// access scope, embeds the query with the same model the content was
// indexed with, runs the scoped similarity search, optionally re-ranks
// by lexical overlap, and assembles ranked result items.
type Orchestrator struct {
	enforcer *scope.Enforcer
	embedder embedding.Embedder
	index    vectorindex.Index
	cfg      config.RAGConfig
	// indexModel is the embedding model the index was built with.
	indexModel string
	log        zerolog.Logger
}

func NewOrchestrator(enf *scope.Enforcer, emb embedding.Embedder, idx vectorindex.Index, cfg config.RAGConfig, indexModel string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		enforcer:   enf,
		embedder:   emb,
		index:      idx,
		cfg:        cfg,
		indexModel: indexModel,
		log:        log.With().Str("component", "retrieval").Logger(),
	}
}

// Retrieve returns up to topK ranked result items for the requester's
// query, restricted to their access scope. An empty result is a valid
// outcome, distinct from any failure.
func (o *Orchestrator) Retrieve(ctx context.Context, requesterID, queryText string, topK int, filter vectorindex.Filter) ([]models.QueryResultItem, error) {
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	if o.embedder.Model() != o.indexModel {
		return nil, fmt.Errorf("query embedder %q vs index %q: %w",
			o.embedder.Model(), o.indexModel, models.ErrModelVersionMismatch)
	}

	sc, err := o.enforcer.ScopeFor(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if sc.Empty() {
		return nil, nil
	}

	vectors, err := o.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}

	fetch := topK
	if o.cfg.Rerank {
		fetch = topK * 4
	}
	hits, err := o.index.Query(ctx, sc, vectors[0], fetch, filter)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if h.Model != o.embedder.Model() {
			return nil, fmt.Errorf("indexed chunk %s used model %q: %w",
				h.ChunkID, h.Model, models.ErrModelVersionMismatch)
		}
	}

	if o.cfg.Rerank {
		hits = rerank(queryText, hits)
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	items := make([]models.QueryResultItem, len(hits))
	for i, h := range hits {
		items[i] = models.QueryResultItem{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			Score:      h.Score,
			Rank:       i,
			Text:       h.Text,
		}
	}
	o.log.Debug().
		Str("requester_id", requesterID).
		Int("results", len(items)).
		Msg("retrieval complete")
	return items, nil
}

// BuildContext assembles the ranked items into a bounded context window
// for downstream generation. Items are taken in rank order until the
// character budget is spent; a partial item is never included.
func (o *Orchestrator) BuildContext(items []models.QueryResultItem) string {
	var b strings.Builder
	for _, item := range items {
		if b.Len()+len(item.Text)+2 > o.cfg.MaxContextChars {
			break
		}
		b.WriteString(item.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n\n")
}
