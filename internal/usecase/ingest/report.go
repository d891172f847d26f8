package ingest

import "github.com/kailas-cloud/docqa/internal/domain/result"

// DocumentReport summarizes the ingestion of one document.
type DocumentReport struct {
	Name string
	// Chunks is the number of chunks produced by the splitter.
	Chunks      int
	Records     int
	ChunkErrors int
	BatchesLost int
	// StaleRecords counts records left over from a longer previous version.
	StaleRecords int
	Result       result.Result
}

// Report summarizes a run.
type Report struct {
	Source       string
	Documents    int
	Skipped      int
	Chunks       int
	Records      int
	ChunkErrors  int
	BatchesLost  int
	StaleRecords int
	Details      []DocumentReport
}

// Results returns the per-document outcomes in processing order.
func (r *Report) Results() []result.Result {
	out := make([]result.Result, 0, len(r.Details))
	for _, d := range r.Details {
		out = append(out, d.Result)
	}
	return out
}

func (r *Report) add(d DocumentReport) {
	r.Details = append(r.Details, d)
	r.Documents++
	if d.Result.Outcome() != result.OK {
		r.Skipped++
	}
	r.Chunks += d.Chunks
	r.Records += d.Records
	r.ChunkErrors += d.ChunkErrors
	r.BatchesLost += d.BatchesLost
	r.StaleRecords += d.StaleRecords
}
