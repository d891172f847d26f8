// Package chunker splits extracted text into overlapping fixed-size windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// ErrInvalidWindow is returned when the window would never advance.
var ErrInvalidWindow = errors.New("chunker: overlap must be >= 0 and smaller than chunk size")

// Chunker produces sliding windows of size characters, each starting
// size-overlap characters after the previous one. Sizes count runes, not bytes.
type Chunker struct {
	size    int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) { c.size = size }
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// New creates a chunker. Unlike a silent clamp, an overlap that is not smaller
// than the size is rejected.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("%w (size=%d, overlap=%d)", ErrInvalidWindow, c.size, c.overlap)
	}
	return c, nil
}

// Size returns the window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into windows. Windows that are blank after trimming are
// dropped; the rest keep their original whitespace. Indexes are assigned
// sequentially to the emitted chunks, starting at zero.
func (c *Chunker) Split(documentID, text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)

	step := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		window := string(runes[start:end])
		if strings.TrimSpace(window) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Content:    window,
		})
	}

	return chunks
}
