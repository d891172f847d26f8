package ingest

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/repository/blob"
)

// DefaultPattern selects the documents of a source.
const DefaultPattern = "*.pdf"

// LocalSource reads documents from a directory.
type LocalSource struct {
	Dir     string
	Pattern string
}

// NewLocalSource creates a directory source. An empty pattern selects PDFs.
func NewLocalSource(dir, pattern string) *LocalSource {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &LocalSource{Dir: dir, Pattern: pattern}
}

// List returns matching file names, sorted. A missing directory is an error.
func (s *LocalSource) List(_ context.Context) ([]string, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.Dir)
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, s.Pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", s.Pattern, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			names = append(names, filepath.Base(m))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one file.
func (s *LocalSource) Load(_ context.Context, name string) (domain.Document, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{Name: name, Content: data}, nil
}

func (s *LocalSource) String() string {
	return "dir:" + s.Dir
}

// BlobReader is the part of the blob store a BlobSource reads from.
type BlobReader interface {
	List(ctx context.Context) ([]blob.Info, error)
	Download(ctx context.Context, name string) ([]byte, error)
	Container() string
}

// BlobSource reads documents from a blob container.
type BlobSource struct {
	store   BlobReader
	pattern string
}

// NewBlobSource creates a container source. An empty pattern selects PDFs.
func NewBlobSource(store BlobReader, pattern string) *BlobSource {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &BlobSource{store: store, pattern: pattern}
}

// List returns the names of blobs whose base name matches the pattern.
func (s *BlobSource) List(ctx context.Context) ([]string, error) {
	blobs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(blobs))
	for _, b := range blobs {
		ok, err := path.Match(s.pattern, path.Base(b.Name))
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", s.pattern, err)
		}
		if ok {
			names = append(names, b.Name)
		}
	}
	return names, nil
}

// Load downloads one blob.
func (s *BlobSource) Load(ctx context.Context, name string) (domain.Document, error) {
	data, err := s.store.Download(ctx, name)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{Name: name, Content: data}, nil
}

func (s *BlobSource) String() string {
	return "blob:" + s.store.Container()
}
