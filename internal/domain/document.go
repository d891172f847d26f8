package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Document is one source file scoped to a single ingestion run.
type Document struct {
	// Name is the file name, used as the record source.
	Name    string
	Content []byte
	// Text is filled by extraction.
	Text string
}

// Stem returns the file name without directory and extension.
func (d Document) Stem() string {
	return Stem(d.Name)
}

// Stem returns name without directory and extension: "docs/Admin Guide.pdf" -> "Admin Guide".
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Chunk is a window of a document's text.
type Chunk struct {
	DocumentID string
	Index      int
	Content    string
}

// IndexRecord is the unit stored in the search index.
type IndexRecord struct {
	ID      string
	Title   string
	Content string
	Source  string
	ChunkID int
	Vector  []float32
}

// RecordID is the composite key of a chunk's record. It depends only on the
// document stem and the chunk index, so re-ingesting a document overwrites its records.
func RecordID(stem string, chunkIndex int) string {
	return stem + "_" + strconv.Itoa(chunkIndex)
}

// NewIndexRecord assembles the record for one embedded chunk of doc.
func NewIndexRecord(doc Document, chunk Chunk, vector []float32) IndexRecord {
	stem := doc.Stem()
	return IndexRecord{
		ID:      RecordID(stem, chunk.Index),
		Title:   stem,
		Content: chunk.Content,
		Source:  filepath.Base(doc.Name),
		ChunkID: chunk.Index,
		Vector:  vector,
	}
}

// Hit is a record returned by retrieval together with its relevance score.
type Hit struct {
	Record IndexRecord
	Score  float64
}
