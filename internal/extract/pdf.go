// Package extract turns PDF bytes into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// PDF extracts text page by page with github.com/ledongthuc/pdf.
type PDF struct{}

// NewPDF creates a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Extract returns the concatenated text of every page in order, each page
// followed by a newline. Pages without text contribute nothing.
// Unreadable input is reported as domain.ErrExtract.
func (p *PDF) Extract(ctx context.Context, r io.Reader) (text string, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrExtract)
	}

	// The parser panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: %v", domain.ErrExtract, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtract, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", domain.ErrExtract, i, err)
		}
		pages = append(pages, pageText)
	}

	return joinPages(pages), nil
}

func joinPages(pages []string) string {
	var sb strings.Builder
	for _, p := range pages {
		if p == "" {
			continue
		}
		sb.WriteString(p)
		sb.WriteByte('\n')
	}
	return sb.String()
}
