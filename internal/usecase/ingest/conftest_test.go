package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// textExtractor treats the document bytes as text; a "broken" prefix fails extraction.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(string(b), "broken") {
		return "", fmt.Errorf("%w: bad xref table", domain.ErrExtract)
	}
	return string(b), nil
}

// countSplitter produces n chunks where n is the number of lines.
type countSplitter struct{}

func (countSplitter) Split(documentID, text string) []domain.Chunk {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	chunks := make([]domain.Chunk, 0, len(lines))
	for i, l := range lines {
		chunks = append(chunks, domain.Chunk{DocumentID: documentID, Index: i, Content: l})
	}
	return chunks
}

func lines(n int) []byte {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return []byte(sb.String())
}

// fakeEmbedder fails for the chunk contents listed in fail.
type fakeEmbedder struct {
	fail  map[string]bool
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.fail[text] {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}}, nil
}

// memSink records batches; failBatches lists 1-based batch numbers to fail.
type memSink struct {
	batches     [][]domain.IndexRecord
	failBatches map[int]bool
	stale       int
	staleErr    error
	countCalls  []string
	upsertCalls int
}

func (m *memSink) Upsert(_ context.Context, records []domain.IndexRecord) error {
	m.upsertCalls++
	if m.failBatches[m.upsertCalls] {
		return errors.New("service unavailable")
	}
	m.batches = append(m.batches, append([]domain.IndexRecord(nil), records...))
	return nil
}

func (m *memSink) CountFrom(_ context.Context, source string, fromChunk int) (int, error) {
	m.countCalls = append(m.countCalls, fmt.Sprintf("%s>=%d", source, fromChunk))
	return m.stale, m.staleErr
}

func (m *memSink) records() []domain.IndexRecord {
	var out []domain.IndexRecord
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func (m *memSink) batchSizes() []int {
	sizes := make([]int, 0, len(m.batches))
	for _, b := range m.batches {
		sizes = append(sizes, len(b))
	}
	return sizes
}

// memSource serves documents from a map in the given order.
type memSource struct {
	order   []string
	docs    map[string][]byte
	listErr error
}

func (m *memSource) List(context.Context) ([]string, error) { return m.order, m.listErr }

func (m *memSource) Load(_ context.Context, name string) (domain.Document, error) {
	b, ok := m.docs[name]
	if !ok {
		return domain.Document{}, os.ErrNotExist
	}
	return domain.Document{Name: name, Content: b}, nil
}

func (m *memSource) String() string { return "mem" }
