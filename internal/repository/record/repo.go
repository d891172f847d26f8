package record

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
)

// store is the consumer interface for index records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, f db.Filter) (int, error)
}

// Repo stores IndexRecords as hashes under one FT index.
type Repo struct {
	store  store
	schema Schema
}

// New creates a record repository.
func New(s store, schema Schema) *Repo {
	return &Repo{store: s, schema: schema.withDefaults()}
}

// IndexName returns the FT index the repository writes to.
func (r *Repo) IndexName() string {
	return r.schema.IndexName
}

// EnsureIndex creates the index, or recreates it when it already exists.
// Recreating keeps the stored records, so the new schema is applied by reindexing them.
// Returns true when an existing index was replaced.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	def, err := r.schema.Definition()
	if err != nil {
		return false, fmt.Errorf("build index definition: %w", err)
	}

	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		if err := r.store.DropIndex(ctx, def.Name, false); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("drop index %s: %w", def.Name, err)
		}
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return exists, nil
}

// CheckIndex reports domain.ErrIndexNotFound when the index has not been created.
func (r *Repo) CheckIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.schema.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.schema.IndexName, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, r.schema.IndexName)
	}
	return nil
}

// Upsert writes one batch of records in a single pipeline.
// Any failed command fails the whole batch.
func (r *Repo) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(records))
	for i := range records {
		items = append(items, db.HashSetItem{
			Key:    r.recordKey(records[i].ID),
			Fields: buildHashFields(&records[i]),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(records), err)
	}
	return nil
}

// CountFrom counts records of source whose chunk index is at least fromChunk.
// After a document is re-ingested with fewer chunks, these are the stale leftovers.
func (r *Repo) CountFrom(ctx context.Context, source string, fromChunk int) (int, error) {
	f := db.Filter{
		db.TagEquals(FieldSource, source),
		db.NumericAtLeast(FieldChunkID, float64(fromChunk)),
	}
	n, err := r.store.SearchCount(ctx, r.schema.IndexName, f)
	if err != nil {
		return 0, fmt.Errorf("count records of %s: %w", source, mapErr(err))
	}
	return n, nil
}

// SearchVector returns the k records nearest to vector.
func (r *Repo) SearchVector(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.schema.IndexName,
		Field:        FieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search vector %s: %w", r.schema.IndexName, mapErr(err))
	}
	return r.toHits(sr), nil
}

// SearchText returns the k best BM25 matches of query over title and content.
func (r *Repo) SearchText(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.schema.IndexName,
		Query:        query,
		Fields:       []string{FieldTitle, FieldContent},
		TopK:         k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search text %s: %w", r.schema.IndexName, mapErr(err))
	}
	return r.toHits(sr), nil
}

func (r *Repo) toHits(sr *db.SearchResult) []domain.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		rec := parseHashFields(entry.Fields)
		if rec.ID == "" {
			rec.ID = strings.TrimPrefix(entry.Key, r.recordPrefix())
		}
		hits = append(hits, domain.Hit{Record: rec, Score: entry.Score})
	}
	return hits
}

func (r *Repo) recordPrefix() string {
	return r.schema.KeyPrefix + "record:"
}

func (r *Repo) recordKey(id string) string {
	return r.recordPrefix() + id
}

func mapErr(err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrIndexNotFound, err)
	}
	return err
}
