package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"studi-rag/internal/config"
	"studi-rag/internal/models"
)

// Embedder turns texts into fixed-dimension vectors, one per input,
// order preserved. Implementations batch and retry internally; callers
// never see those boundaries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// Client wraps a Backend with batching, input-size defense, dimension
// validation, per-backend rate limiting and bounded exponential-backoff
// retries of transient failures.
type Client struct {
	backend Backend
	cfg     config.LLMConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewClient(backend Backend, cfg config.LLMConfig, log zerolog.Logger) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		backend: backend,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("component", "embedder").Logger(),
	}
}

func (c *Client) Model() string  { return c.cfg.Model }
func (c *Client) Dimension() int { return c.cfg.Dimension }

// Embed returns one vector per input text, in input order. Inputs over
// the backend's maximum length fail with ErrInputTooLarge before any
// backend call is made.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if len(t) > c.cfg.MaxInputChars {
			return nil, fmt.Errorf("text %d is %d chars (limit %d): %w",
				i, len(t), c.cfg.MaxInputChars, models.ErrInputTooLarge)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.MaxBatchSize {
		end := start + c.cfg.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := c.cfg.InitialDelay.Std()
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingBackend, err)
		}

		vectors, err := c.callBackend(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		// Malformed responses are a backend contract violation, not a
		// transient condition; retrying cannot fix them.
		if errors.Is(err, errMalformed) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		c.log.Warn().Err(err).
			Int("attempt", attempt).
			Int("batch_size", len(texts)).
			Msg("embedding request failed, backing off")
		if attempt < c.cfg.MaxAttempts {
			select {
			case <-time.After(jitter(delay)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingBackend, ctx.Err())
			}
			delay *= 2
		}
	}
	return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingBackend, lastErr)
}

var errMalformed = errors.New("malformed backend response")

func (c *Client) callBackend(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout.Std())
	defer cancel()

	vectors, err := c.backend.EmbedDocuments(callCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %d vectors for %d texts", errMalformed, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != c.cfg.Dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", errMalformed, i, len(v), c.cfg.Dimension)
		}
	}
	return vectors, nil
}

// jitter spreads retries by up to ±20% so concurrent jobs do not
// hammer a rate-limited backend in lockstep.
func jitter(d time.Duration) time.Duration {
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}
