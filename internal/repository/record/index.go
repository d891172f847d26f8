package record

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docqa/internal/db"
)

// Hash field names; they double as the index schema field names.
const (
	FieldID      = "id"
	FieldTitle   = "title"
	FieldContent = "content"
	FieldSource  = "source"
	FieldChunkID = "chunk_id"
	FieldVector  = "content_vector"
)

var returnFields = []string{FieldID, FieldTitle, FieldContent, FieldSource, FieldChunkID}

// Schema describes the index the records live in.
type Schema struct {
	IndexName       string
	KeyPrefix       string
	Dimensions      int
	Algorithm       string // HNSW or FLAT
	DistanceMetric  string // COSINE, L2 or IP
	HNSWM           int
	HNSWEFConstruct int
}

func (s Schema) withDefaults() Schema {
	if s.Dimensions <= 0 {
		s.Dimensions = 1536
	}
	if s.Algorithm == "" {
		s.Algorithm = string(db.VectorHNSW)
	}
	if s.DistanceMetric == "" {
		s.DistanceMetric = string(db.DistanceCosine)
	}
	if s.HNSWM <= 0 {
		s.HNSWM = 16
	}
	if s.HNSWEFConstruct <= 0 {
		s.HNSWEFConstruct = 200
	}
	return s
}

// Definition builds the FT index definition: searchable title and content,
// filterable source, sortable chunk_id and the content vector.
func (s Schema) Definition() (*db.IndexDefinition, error) {
	s = s.withDefaults()
	metric, err := db.ParseDistanceMetric(s.DistanceMetric)
	if err != nil {
		return nil, err
	}

	b := db.NewIndex(s.IndexName).
		Prefix(s.KeyPrefix+"record:").
		WeightedText(FieldTitle, 2).
		Text(FieldContent).
		Tag(FieldSource).
		Numeric(FieldChunkID)

	switch strings.ToUpper(s.Algorithm) {
	case string(db.VectorHNSW):
		b = b.VectorHNSW(FieldVector, s.Dimensions, metric, s.HNSWM, s.HNSWEFConstruct)
	case string(db.VectorFlat):
		b = b.VectorFlat(FieldVector, s.Dimensions, metric)
	default:
		return nil, fmt.Errorf("unknown vector algorithm %q", s.Algorithm)
	}
	return b.Build()
}
