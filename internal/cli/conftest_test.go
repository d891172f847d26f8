package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/result"
	"github.com/kailas-cloud/docqa/internal/usecase/analyze"
	"github.com/kailas-cloud/docqa/internal/usecase/chat"
	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
	"github.com/kailas-cloud/docqa/internal/usecase/upload"
)

// --- Fakes ---

type fakeUploader struct {
	path, pattern string
	results       []result.Result
	err           error
	listing       upload.Listing
}

func (f *fakeUploader) UploadPath(_ context.Context, path, pattern string) ([]result.Result, error) {
	f.path, f.pattern = path, pattern
	return f.results, f.err
}

func (f *fakeUploader) List(context.Context) (upload.Listing, error) { return f.listing, nil }

type fakeIndex struct {
	replaced bool
	calls    int
}

func (f *fakeIndex) EnsureIndex(context.Context) (bool, error) {
	f.calls++
	return f.replaced, nil
}

func (f *fakeIndex) IndexName() string { return "docqa-index" }

type fakeIngester struct {
	sources []string
	report  ingest.Report
	err     error
}

func (f *fakeIngester) Run(_ context.Context, src ingest.Source) (ingest.Report, error) {
	f.sources = append(f.sources, src.String())
	r := f.report
	r.Source = src.String()
	return r, f.err
}

type fakeAsker struct {
	questions []string
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, conv *domain.Conversation, q string) (chat.Answer, error) {
	f.questions = append(f.questions, q)
	if f.err != nil {
		return chat.Answer{}, f.err
	}
	conv.Append(domain.RoleUser, q)
	conv.Append(domain.RoleAssistant, "answer")
	return chat.Answer{
		Content:   "Run tbboot as the database owner.",
		Citations: []domain.Citation{{Title: "Admin Guide", URL: "https://acct/documents/Admin%20Guide.pdf"}},
	}, nil
}

type fakeAnalyzer struct {
	path, keyword string
	err           error
}

func (f *fakeAnalyzer) AnalyzeFile(_ context.Context, path, keyword string) (analyze.Analysis, error) {
	f.path, f.keyword = path, keyword
	if f.err != nil {
		return analyze.Analysis{}, f.err
	}
	return analyze.Analysis{
		Source:    filepath.Base(path),
		Keyword:   keyword,
		Content:   "Summary: the listener is not reachable.\nConfidence: high",
		TextChars: 1234,
	}, nil
}

type fakeSearcher struct {
	hits  []domain.Hit
	query string
	cfg   domain.RetrievalConfig
}

func (f *fakeSearcher) Retrieve(_ context.Context, q string, cfg domain.RetrievalConfig) ([]domain.Hit, error) {
	f.query, f.cfg = q, cfg
	return f.hits, nil
}

type blobSource struct{}

func (blobSource) List(context.Context) ([]string, error) { return nil, nil }
func (blobSource) Load(context.Context, string) (domain.Document, error) {
	return domain.Document{}, errors.New("unused")
}
func (blobSource) String() string { return "blob:documents" }

type fakeServices struct {
	uploader *fakeUploader
	index    *fakeIndex
	ingester *fakeIngester
	asker    *fakeAsker
	analyzer *fakeAnalyzer
	searcher *fakeSearcher
	qt       domain.QueryType
	err      error
	steps    []string
	closed   bool
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		uploader: &fakeUploader{},
		index:    &fakeIndex{},
		ingester: &fakeIngester{},
		asker:    &fakeAsker{},
		analyzer: &fakeAnalyzer{},
		searcher: &fakeSearcher{},
	}
}

func (f *fakeServices) Uploader(context.Context) (Uploader, error) {
	f.steps = append(f.steps, "upload")
	return f.uploader, f.err
}

func (f *fakeServices) Index(context.Context) (IndexManager, error) {
	f.steps = append(f.steps, "index")
	return f.index, f.err
}

func (f *fakeServices) Ingester(context.Context) (Ingester, error) {
	f.steps = append(f.steps, "ingest")
	return f.ingester, f.err
}

func (f *fakeServices) BlobSource(context.Context) (ingest.Source, error) {
	return blobSource{}, f.err
}

func (f *fakeServices) Asker(context.Context) (Asker, error) { return f.asker, f.err }

func (f *fakeServices) Analyzer(context.Context) (Analyzer, error) { return f.analyzer, f.err }

func (f *fakeServices) Searcher(_ context.Context, qt domain.QueryType) (Searcher, error) {
	f.qt = qt
	return f.searcher, f.err
}

func (f *fakeServices) Handler(context.Context) (http.Handler, error) { return nil, f.err }

func (f *fakeServices) Close() { f.closed = true }

// --- Helpers ---

const testConfig = `
logging:
  level: error
search:
  addrs: ["localhost:6379"]
storage:
  account: acct
  container: documents
  data_dir: %DATA%
embedding:
  base_url: https://example.openai.azure.com
  api_key: test-key
  deployment: text-embedding-ada-002
chat:
  deployment: gpt-4o
`

// writeConfig writes a config file and returns its path and the data dir it names.
func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(body, "%DATA%", data)), 0o600))
	return path, data
}

type run struct {
	out     string
	err     error
	dataDir string
}

func execute(t *testing.T, svc *fakeServices, stdin string, args ...string) run {
	t.Helper()
	cfgPath, dataDir := writeConfig(t, testConfig)

	root := NewRootCmd(func(*config.Config, *zap.Logger) Services { return svc })
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := root.ExecuteContext(context.Background())
	return run{out: buf.String(), err: err, dataDir: dataDir}
}
