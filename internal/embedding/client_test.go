package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studi-rag/internal/config"
	"studi-rag/internal/models"
)

// fakeBackend returns deterministic vectors (first component is the
// text length) and can be told to fail or misbehave.
type fakeBackend struct {
	mu         sync.Mutex
	dim        int
	calls      int
	batches    [][]string
	failFirst  int
	wrongDim   bool
	wrongCount bool
}

func (f *fakeBackend) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, texts)
	if f.calls <= f.failFirst {
		return nil, errors.New("backend timeout")
	}
	n := len(texts)
	if f.wrongCount {
		n--
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		dim := f.dim
		if f.wrongDim {
			dim++
		}
		v := make([]float32, dim)
		v[0] = float32(len(texts[i]))
		out[i] = v
	}
	return out, nil
}

func testCfg() config.LLMConfig {
	return config.LLMConfig{
		Model:         "fake-embed-v1",
		Dimension:     4,
		MaxBatchSize:  3,
		MaxInputChars: 100,
		MaxAttempts:   3,
		InitialDelay:  config.Duration(time.Millisecond),
		Timeout:       config.Duration(time.Second),
	}
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(make([]byte, i+1))
	}
	return out
}

func TestEmbedBatchesAndPreservesOrder(t *testing.T) {
	backend := &fakeBackend{dim: 4}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	in := texts(10)
	vectors, err := c.Embed(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, vectors, 10)

	// Callers never see the batching boundary, but the backend does:
	// 10 inputs with batch size 3 means 4 calls.
	assert.Equal(t, 4, backend.calls)
	assert.Len(t, backend.batches[0], 3)
	assert.Len(t, backend.batches[3], 1)

	for i, v := range vectors {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(len(in[i])), v[0], "order preserved across batches")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c := NewClient(&fakeBackend{dim: 4}, testCfg(), zerolog.Nop())

	vectors, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	backend := &fakeBackend{dim: 4, failFirst: 2}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	vectors, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, backend.calls, "two failures then success")
}

func TestEmbedSurfacesErrorAfterExhaustion(t *testing.T) {
	backend := &fakeBackend{dim: 4, failFirst: 100}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	_, err := c.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmbeddingBackend)
	assert.Equal(t, 3, backend.calls, "bounded attempt count")
}

func TestEmbedRejectsWrongDimensionWithoutRetry(t *testing.T) {
	backend := &fakeBackend{dim: 4, wrongDim: true}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, models.ErrEmbeddingBackend)
	assert.Equal(t, 1, backend.calls, "malformed output is not retried")
}

func TestEmbedRejectsWrongCount(t *testing.T) {
	backend := &fakeBackend{dim: 4, wrongCount: true}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	_, err := c.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, models.ErrEmbeddingBackend)
}

func TestEmbedRejectsOversizedInput(t *testing.T) {
	backend := &fakeBackend{dim: 4}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	big := string(make([]byte, 101))
	_, err := c.Embed(context.Background(), []string{"ok", big})
	assert.ErrorIs(t, err, models.ErrInputTooLarge)
	assert.Equal(t, 0, backend.calls, "oversized input fails before any backend call")
}

func TestEmbedHonorsCancellation(t *testing.T) {
	backend := &fakeBackend{dim: 4, failFirst: 100}
	c := NewClient(backend, testCfg(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Embed(ctx, []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmbeddingBackend)
}
