package record

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// buildHashFields converts a record into a flat map for HSET.
func buildHashFields(rec *domain.IndexRecord) map[string]string {
	return map[string]string{
		FieldID:      rec.ID,
		FieldTitle:   rec.Title,
		FieldContent: rec.Content,
		FieldSource:  rec.Source,
		FieldChunkID: strconv.Itoa(rec.ChunkID),
		FieldVector:  vectorToBytes(rec.Vector),
	}
}

// parseHashFields converts returned hash fields back into a record. The vector is not returned by searches.
func parseHashFields(m map[string]string) domain.IndexRecord {
	rec := domain.IndexRecord{
		ID:      m[FieldID],
		Title:   m[FieldTitle],
		Content: m[FieldContent],
		Source:  m[FieldSource],
	}
	if v, err := strconv.Atoi(m[FieldChunkID]); err == nil {
		rec.ChunkID = v
	}
	if raw, ok := m[FieldVector]; ok {
		rec.Vector = bytesToVector(raw)
	}
	return rec
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
