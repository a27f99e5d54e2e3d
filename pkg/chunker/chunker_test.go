package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policyText(paragraphs int) string {
	var sb strings.Builder
	for i := 0; i < paragraphs; i++ {
		sb.WriteString("We collect your name, email address and payment details to provide the service. ")
		sb.WriteString("You may withdraw consent at any time by writing to privacy@example.com. ")
		sb.WriteString("Data is retained for no longer than necessary and then securely erased.\n\n")
	}
	return sb.String()
}

func TestSplit_EmptyInput(t *testing.T) {
	c := NewDefault()

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
	assert.Empty(t, c.Split(`\\ \`))
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	c := NewDefault()

	chunks := c.Split("  We respect your privacy.\\n  ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "We respect your privacy.n", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_RespectsMaxSizeAndIsDeterministic(t *testing.T) {
	c := NewDefault()
	text := policyText(40)

	first := c.Split(text)
	second := c.Split(text)
	require.Equal(t, first, second)
	require.Greater(t, len(first), 1)

	for i, ch := range first {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 1000)
		assert.NotEmpty(t, ch.Content)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	c := MustNew(Config{ChunkSize: 120, ChunkOverlap: 40})
	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta ", 20)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1].Content)
		last := prevWords[len(prevWords)-1]
		assert.Contains(t, chunks[i].Content, last, "chunk %d should repeat the tail of chunk %d", i, i-1)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	c := MustNew(Config{ChunkSize: 60, ChunkOverlap: 0})
	text := "First paragraph about consent.\n\nSecond paragraph about retention."

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph about consent.", chunks[0].Content)
	assert.Equal(t, "Second paragraph about retention.", chunks[1].Content)
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	c := MustNew(Config{ChunkSize: 10, ChunkOverlap: 2})

	chunks := c.Split(strings.Repeat("x", 25))
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 10)
	}
	assert.Equal(t, strings.Repeat("x", 10), chunks[0].Content)
}

func TestBatch_PreservesOrder(t *testing.T) {
	c := NewDefault()
	chunks := c.Split(policyText(60))
	require.Greater(t, len(chunks), 5)

	batches := Batch(chunks, 5)
	var flat []Chunk
	for i, b := range batches {
		if i < len(batches)-1 {
			assert.Len(t, b, 5)
		} else {
			assert.LessOrEqual(t, len(b), 5)
		}
		flat = append(flat, b...)
	}
	assert.Equal(t, chunks, flat)
}

func TestBatch_Edges(t *testing.T) {
	assert.Nil(t, Batch(nil, 5))

	chunks := []Chunk{{Index: 0, Content: "a"}, {Index: 1, Content: "b"}}
	assert.Len(t, Batch(chunks, 0), 1)
	assert.Len(t, Batch(chunks, 1), 2)
}

func TestJoinBatch(t *testing.T) {
	got := JoinBatch([]Chunk{{Content: "one"}, {Content: "two"}})
	assert.Equal(t, "one\n\n---\n\ntwo", got)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{ChunkSize: -1}.Validate())
	assert.Error(t, Config{ChunkSize: 100, ChunkOverlap: 100}.Validate())
	assert.Error(t, Config{ChunkSize: 100, ChunkOverlap: -1}.Validate())
	assert.Error(t, Config{ChunkSize: 100, Separators: []string{""}}.Validate())

	_, err := New(Config{ChunkSize: 10, ChunkOverlap: 20})
	assert.Error(t, err)
}
