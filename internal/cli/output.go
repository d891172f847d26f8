package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/result"
	"github.com/kailas-cloud/docqa/internal/usecase/analyze"
	"github.com/kailas-cloud/docqa/internal/usecase/chat"
	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
	"github.com/kailas-cloud/docqa/internal/usecase/upload"
)

const rule = "------------------------------------------------------------"

func printResults(w io.Writer, verb string, results []result.Result) {
	ok := 0
	for _, r := range results {
		if r.Outcome() == result.OK {
			ok++
			fmt.Fprintf(w, "  ✓ %s\n", r.ID())
			continue
		}
		fmt.Fprintf(w, "  ✗ %s: %v\n", r.ID(), r.Err())
	}
	fmt.Fprintf(w, "%s %d/%d files\n", verb, ok, len(results))
}

func printListing(w io.Writer, container string, l upload.Listing) {
	fmt.Fprintf(w, "\nFiles in %s:\n%s\n", container, rule)
	if len(l.Blobs) == 0 {
		fmt.Fprintln(w, "  (no files)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, b := range l.Blobs {
		fmt.Fprintf(tw, "  %s\t%.2f KB\t\n", b.Name, float64(b.Size)/1024)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%s\nTotal: %d files, %.2f MB\n", rule, len(l.Blobs), float64(l.TotalBytes)/(1024*1024))
}

func printReport(w io.Writer, r ingest.Report) {
	for _, d := range r.Details {
		status := "✓"
		if d.Result.Outcome() != result.OK {
			status = "✗"
		}
		fmt.Fprintf(w, "  %s %s: %d chunks, %d records", status, d.Name, d.Chunks, d.Records)
		if d.ChunkErrors > 0 {
			fmt.Fprintf(w, ", %d chunk errors", d.ChunkErrors)
		}
		if d.BatchesLost > 0 {
			fmt.Fprintf(w, ", %d batches lost", d.BatchesLost)
		}
		if d.StaleRecords > 0 {
			fmt.Fprintf(w, ", %d stale records", d.StaleRecords)
		}
		if err := d.Result.Err(); err != nil {
			fmt.Fprintf(w, " (%v)", err)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s\nIndexed %s\n", rule, r.Source)
	fmt.Fprintf(w, "  Documents:  %d (%d skipped)\n", r.Documents, r.Skipped)
	fmt.Fprintf(w, "  Chunks:     %d\n", r.Chunks)
	fmt.Fprintf(w, "  Records:    %d\n", r.Records)
	if r.ChunkErrors > 0 || r.BatchesLost > 0 {
		fmt.Fprintf(w, "  Failures:   %d chunks, %d batches\n", r.ChunkErrors, r.BatchesLost)
	}
	if r.StaleRecords > 0 {
		fmt.Fprintf(w, "  Stale:      %d records from longer previous versions remain in the index\n", r.StaleRecords)
	}
}

func printAnswer(w io.Writer, a chat.Answer) {
	fmt.Fprintln(w, strings.TrimSpace(a.Content))
	if len(a.Citations) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, c := range a.Citations {
		fmt.Fprintf(w, "  %d. %s", i+1, c.Title)
		if c.URL != "" {
			fmt.Fprintf(w, " (%s)", c.URL)
		}
		fmt.Fprintln(w)
	}
}

// hitPreview is how many characters of a search hit are printed.
const hitPreview = 300

func printAnalysis(w io.Writer, a analyze.Analysis) {
	fmt.Fprintf(w, "Extracted %d characters from %s\n", a.TextChars, a.Source)
	fmt.Fprintf(w, "Analysis for %q\n%s\n", a.Keyword, rule)
	fmt.Fprintln(w, strings.TrimSpace(a.Content))
}

func printHits(w io.Writer, query string, hits []domain.Hit) {
	if len(hits) == 0 {
		fmt.Fprintf(w, "No documents match %q. Upload and ingest documents first.\n", query)
		return
	}
	fmt.Fprintf(w, "Found %d results for %q\n%s\n", len(hits), query, rule)
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s (part %d, score %.2f)\n", i+1, h.Record.Title, h.Record.ChunkID, h.Score)
		fmt.Fprintf(w, "   %s\n", preview(h.Record.Content, hitPreview))
	}
}

func preview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
