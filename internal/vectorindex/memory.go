package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sync"

	"studi-rag/internal/models"
)

// Memory is a brute-force cosine-similarity index held in process
// memory. It backs tests and the zero-dependency dev mode.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record // keyed by chunk id + version
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func key(chunkID string, version int) string {
	return fmt.Sprintf("%s:v%d", chunkID, version)
}

func (m *Memory) Upsert(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[key(r.ChunkID, r.Version)] = r
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.records {
		if r.DocumentID == documentID {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *Memory) DeleteVersion(ctx context.Context, documentID string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.records {
		if r.DocumentID == documentID && r.Version == version {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, scope models.Scope, vector []float32, topK int, filter Filter) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 || scope.Empty() {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Hit
	for _, r := range m.records {
		if !scope.Allows(r.DocumentID, r.Version) || !filter.allows(r.DocumentID) {
			continue
		}
		hits = append(hits, Hit{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Ordinal:    r.Ordinal,
			Text:       r.Text,
			Model:      r.Model,
			Score:      cosine(vector, r.Vector),
			UpsertedAt: r.UpsertedAt,
		})
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count reports the number of stored records for a document, across all
// versions. Test hook for the no-partial-set invariant.
func (m *Memory) Count(documentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.records {
		if r.DocumentID == documentID {
			n++
		}
	}
	return n
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
