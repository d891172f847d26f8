package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain/result"
	"github.com/kailas-cloud/docqa/internal/repository/blob"
)

// Store is the object storage the service writes to.
type Store interface {
	EnsureContainer(ctx context.Context) error
	Upload(ctx context.Context, name string, body io.Reader) error
	List(ctx context.Context) ([]blob.Info, error)
}

// Listing is the content of the container.
type Listing struct {
	Blobs      []blob.Info
	TotalBytes int64
}

// Service uploads local documents to object storage.
type Service struct {
	store  Store
	logger *zap.Logger
}

// New creates an upload service.
func New(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// UploadFile uploads one file under its base name, overwriting an existing blob.
func (s *Service) UploadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	if err := s.store.Upload(ctx, name, f); err != nil {
		return err
	}
	s.logger.Info("Uploaded file", zap.String("file", name))
	return nil
}

// UploadDir ensures the container exists and uploads every file of dir matching pattern.
// A failed file is reported and the remaining files are still uploaded.
func (s *Service) UploadDir(ctx context.Context, dir, pattern string) ([]result.Result, error) {
	if err := s.store.EnsureContainer(ctx); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	results := make([]result.Result, 0, len(matches))
	for _, path := range matches {
		if ctx.Err() != nil {
			break
		}
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		err := s.UploadFile(ctx, path)
		if err != nil {
			s.logger.Warn("Upload failed", zap.String("file", path), zap.Error(err))
		}
		results = append(results, result.Classify(filepath.Base(path), err))
	}
	return results, nil
}

// UploadPath uploads path when it is a file, or every file of it matching pattern
// when it is a folder.
func (s *Service) UploadPath(ctx context.Context, path, pattern string) ([]result.Result, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	if fi.IsDir() {
		return s.UploadDir(ctx, path, pattern)
	}

	if err := s.store.EnsureContainer(ctx); err != nil {
		return nil, err
	}
	err = s.UploadFile(ctx, path)
	if err != nil {
		s.logger.Warn("Upload failed", zap.String("file", path), zap.Error(err))
	}
	return []result.Result{result.Classify(filepath.Base(path), err)}, nil
}

// List returns the blobs of the container and their total size.
func (s *Service) List(ctx context.Context) (Listing, error) {
	blobs, err := s.store.List(ctx)
	if err != nil {
		return Listing{}, err
	}
	var total int64
	for _, b := range blobs {
		total += b.Size
	}
	return Listing{Blobs: blobs, TotalBytes: total}, nil
}
