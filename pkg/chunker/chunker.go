// Package chunker splits policy text into overlapping windows and groups them
// into batches for the oracle.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BatchSeparator joins the chunks of one batch into a single oracle input.
const BatchSeparator = "\n\n---\n\n"

// DefaultSeparators are tried in order: paragraph, line, sentence punctuation,
// clause punctuation, then whitespace.
var DefaultSeparators = []string{"\n\n", "\n", ".", "?", "!", ";", ",", " "}

// Chunk is one window of normalized text.
type Chunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Config holds chunking configuration. Sizes are measured in characters.
type Config struct {
	// ChunkSize is the maximum length of a chunk.
	ChunkSize int

	// ChunkOverlap is the amount of trailing text carried into the next chunk.
	ChunkOverlap int

	// Separators overrides DefaultSeparators when non-empty.
	Separators []string
}

// DefaultConfig returns the defaults used for policy analysis.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Separators:   DefaultSeparators,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("ChunkSize must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("ChunkOverlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("ChunkOverlap (%d) must be less than ChunkSize (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	for _, s := range c.Separators {
		if s == "" {
			return fmt.Errorf("separators must not be empty")
		}
	}
	return nil
}

// Chunker splits text with recursive separator fallback.
type Chunker struct {
	config Config
}

// New creates a Chunker. A zero Config selects the defaults.
func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize == 0 {
		cfg = DefaultConfig()
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultSeparators
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// MustNew creates a Chunker, panicking on invalid config.
func MustNew(cfg Config) *Chunker {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDefault creates a Chunker with default configuration.
func NewDefault() *Chunker {
	return MustNew(DefaultConfig())
}

// Normalize removes stray backslash escapes and surrounding whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, `\`, ""))
}

// Split normalizes text and cuts it into chunks of at most ChunkSize
// characters. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	text = Normalize(text)
	if text == "" {
		return nil
	}

	var chunks []Chunk
	for _, piece := range c.split(text, c.config.Separators) {
		chunks = append(chunks, Chunk{Index: len(chunks), Content: piece})
	}
	return chunks
}

func (c *Chunker) split(text string, separators []string) []string {
	sep, rest, found := "", []string(nil), false
	for i, s := range separators {
		if strings.Contains(text, s) {
			sep, rest, found = s, separators[i+1:], true
			break
		}
	}
	if !found {
		return c.hardCut(text)
	}

	var out, good []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		if runeLen(piece) < c.config.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		out = append(out, c.split(piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}
	return out
}

// merge packs consecutive pieces into windows no longer than ChunkSize,
// starting each new window with up to ChunkOverlap characters of the last.
func (c *Chunker) merge(pieces []string) []string {
	var out, window []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.config.ChunkSize && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				out = append(out, doc)
			}
			for total > c.config.ChunkOverlap || (total+n > c.config.ChunkSize && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// hardCut slices text with no usable separator into fixed windows.
func (c *Chunker) hardCut(text string) []string {
	runes := []rune(text)
	step := c.config.ChunkSize - c.config.ChunkOverlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.config.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if doc := strings.TrimSpace(string(runes[start:end])); doc != "" {
			out = append(out, doc)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// splitKeepingSeparator splits text on sep and reattaches each separator to
// the start of the piece that follows it.
func splitKeepingSeparator(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Batch groups consecutive chunks into batches of size. The last batch may be
// smaller. A non-positive size puts every chunk in one batch.
func Batch(chunks []Chunk, size int) [][]Chunk {
	if len(chunks) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(chunks)
	}
	batches := make([][]Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}

// JoinBatch renders a batch as oracle input.
func JoinBatch(batch []Chunk) string {
	parts := make([]string, len(batch))
	for i, ch := range batch {
		parts[i] = ch.Content
	}
	return strings.Join(parts, BatchSeparator)
}
