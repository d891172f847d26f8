package analyze

import (
	"context"
	"io"
)

// Extractor turns a document's bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}
