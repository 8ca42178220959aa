package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 0.2})

	assert.Nil(t, c.Split("doc-1", ""))
	assert.Nil(t, c.Split("doc-1", "   \n\t  "))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 0.2})

	chunks := c.Split("doc-1", "a short note that fits whole")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len("a short note that fits whole"), chunks[0].End)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
}

func TestSplitCoversInputWithOverlap(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 40)
	c := New(Config{Size: 200, Overlap: 0.15})

	chunks := c.Split("doc-1", text)
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[len(chunks)-1].End)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Ordinal, "ordinals strictly increasing")
		assert.Equal(t, text[ch.Start:ch.End], ch.Text, "offsets match text span")
		assert.LessOrEqual(t, len(ch.Text), 200)
		if i > 0 {
			prev := chunks[i-1]
			assert.Greater(t, ch.Start, prev.Start, "walk must advance")
			assert.LessOrEqual(t, ch.Start, prev.End, "no gap between chunks")
		}
	}
}

func TestSplitReconstructsOriginal(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 30)
	c := New(Config{Size: 120, Overlap: 0.1})

	chunks := c.Split("doc-1", text)
	require.NotEmpty(t, chunks)

	// Rebuild by appending each chunk's non-overlapping suffix.
	var b strings.Builder
	prevEnd := 0
	for _, ch := range chunks {
		require.LessOrEqual(t, ch.Start, prevEnd)
		b.WriteString(text[prevEnd:ch.End])
		prevEnd = ch.End
	}
	assert.Equal(t, text, b.String())
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	para1 := strings.Repeat("alpha beta gamma ", 10) // ~170 chars
	para2 := strings.Repeat("delta epsilon zeta ", 10)
	text := para1 + "\n\n" + para2
	c := New(Config{Size: 250, Overlap: 0.1})

	chunks := c.Split("doc-1", text)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"),
		"first chunk should end at the paragraph break, got %q", chunks[0].Text)
}

func TestSplitWhitespaceBoundary(t *testing.T) {
	text := strings.Repeat("word ", 100)
	c := New(Config{Size: 73, Overlap: 0})

	for _, ch := range c.Split("doc-1", text) {
		if ch.End < len(text) {
			assert.True(t, strings.HasSuffix(ch.Text, " "),
				"chunk should break at whitespace, got %q", ch.Text)
		}
	}
}

// The worked example: a 600-character, 3-paragraph document with chunk
// size 250 and 20% overlap yields 3-4 overlapping chunks.
func TestSplitSixHundredCharExample(t *testing.T) {
	paragraph := func(word string) string {
		return strings.TrimSpace(strings.Repeat(word+" ", 198/(len(word)+1)))
	}
	text := paragraph("plants") + "\n\n" + paragraph("animals") + "\n\n" + paragraph("mineral")
	require.InDelta(t, 600, len(text), 30)

	c := New(Config{Size: 250, Overlap: 0.2})
	chunks := c.Split("doc-1", text)

	assert.GreaterOrEqual(t, len(chunks), 3)
	assert.LessOrEqual(t, len(chunks), 4)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].Start, chunks[i-1].End, "consecutive chunks overlap or touch")
	}
}

func TestSplitKeepsMultiByteRunesIntact(t *testing.T) {
	// No whitespace anywhere, so every break falls on the hard limit,
	// and the limit rarely lands on a rune boundary by itself.
	text := strings.Repeat("žč", 200) + strings.Repeat("日本語", 100)
	c := New(Config{Size: 101, Overlap: 0.15})

	chunks := c.Split("doc-1", text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text), "chunk %d must be valid UTF-8: %q", ch.Ordinal, ch.Text)
	}
	assert.Equal(t, len(text), chunks[len(chunks)-1].End, "rune backup must not lose the tail")
}

func TestNewClampsExcessiveOverlap(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 0.9})
	text := strings.Repeat("x y z w v u t s r q ", 50)

	chunks := c.Split("doc-1", text)
	require.NotEmpty(t, chunks)
	// Excessive overlap is clamped so the walk always terminates and
	// advances.
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
	}
}
