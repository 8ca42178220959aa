package chunker

import (
	"strings"
	"unicode/utf8"

	"studi-rag/internal/models"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 0.15
)

// Chunker splits document text into overlapping, size-bounded segments.
// Pure function of its config and the input text; byte offsets into the
// source are preserved on every chunk so the original text can be
// reconstructed.
type Chunker struct {
	size    int
	overlap int
}

type Config struct {
	// Size is the target chunk size in bytes.
	Size int
	// Overlap is the fraction of Size shared between consecutive
	// chunks, 0 <= Overlap < 0.5.
	Overlap float64
}

func New(cfg Config) *Chunker {
	if cfg.Size <= 0 {
		cfg.Size = defaultChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	overlap := int(float64(cfg.Size) * cfg.Overlap)
	if overlap >= cfg.Size/2 {
		overlap = cfg.Size / 2
	}
	return &Chunker{size: cfg.Size, overlap: overlap}
}

// Split produces the ordered chunk sequence for a document. Empty or
// blank input yields nil, not an error. Consecutive chunks overlap by
// the configured fraction; the union of spans covers the whole input.
func (c *Chunker) Split(documentID, text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if len(text) <= c.size {
		return []models.Chunk{{
			DocumentID: documentID,
			Ordinal:    0,
			Text:       text,
			Start:      0,
			End:        len(text),
		}}
	}

	var chunks []models.Chunk
	start := 0
	ordinal := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.breakpoint(text, start, end)
		}

		chunks = append(chunks, models.Chunk{
			DocumentID: documentID,
			Ordinal:    ordinal,
			Text:       text[start:end],
			Start:      start,
			End:        end,
		})
		if end == len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			// Overlap would stall the walk on a chunk the
			// breakpoint search shortened below the overlap span.
			next = start + 1
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
		ordinal++
	}
	return chunks
}

// breakpoint picks the split position at or before the size limit:
// a paragraph break when one falls in the second half of the chunk,
// otherwise the nearest whitespace, otherwise the hard limit.
func (c *Chunker) breakpoint(text string, start, limit int) int {
	if i := strings.LastIndex(text[start:limit], "\n\n"); i >= c.size/2 {
		return start + i + 2
	}
	for i := limit - 1; i > start; i-- {
		switch text[i] {
		case ' ', '\n', '\t':
			return i + 1
		}
	}
	// No whitespace in the whole span: cut at the limit, backed up to a
	// rune boundary so a multi-byte character is never split.
	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
