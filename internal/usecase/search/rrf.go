package search

import (
	"sort"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges vector and text hits via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// Ties are broken by record ID so the order is deterministic.
func fuseRRF(vector, text []domain.Hit, topN int) []domain.Hit {
	merged := make(map[string]*domain.Hit, len(vector)+len(text))

	add := func(hits []domain.Hit) {
		for rank, h := range hits {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[h.Record.ID]; ok {
				existing.Score += s
				continue
			}
			merged[h.Record.ID] = &domain.Hit{Record: h.Record, Score: s}
		}
	}
	add(vector)
	add(text)

	results := make([]domain.Hit, 0, len(merged))
	for _, h := range merged {
		results = append(results, *h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if len(results) > topN {
		results = results[:topN]
	}

	return results
}
