package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// Rerank is the diversity-aware greedy (MMR-style) final ordering pass from
// spec.md §4.3.4. It seeds the result with the top-scoring candidate, then
// repeatedly picks the remaining candidate maximizing
// original_score - diversity_weight*penalty, where penalty accrues once a
// diversity field's per-value cap has been reached. When n_out_m.enabled,
// it finishes with an N-out-of-M window pass over the ordered result.
type Rerank struct {
	executor.BaseExecutor
}

func NewRerank() *Rerank { return &Rerank{} }

func (r *Rerank) Specialization() executor.Specialization { return executor.SpecRank }

func (r *Rerank) Validate(config map[string]any) error { return nil }

func (r *Rerank) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	if len(cands) == 0 {
		return cands, nil
	}

	rankSize := r.GetIntDefault(config, "rank_size", 10)
	diversityWeight := r.GetFloatDefault(config, "diversity_weight", 1.0)
	fields := parseDiversityFields(r.GetStringSlice(config, "diversity_fields"), []string{"author_id"})
	maxPerKey := parseMaxItemsPerKey(rc, config["max_items_per_key"], fields, defaultMaxItemsPerKey())

	type scored struct {
		c        *models.Candidate
		score    float64
		origIdx  int
	}
	pool := make([]scored, len(cands))
	for i, c := range cands {
		pool[i] = scored{c: c, score: c.BestScore(), origIdx: i}
	}

	selected := make([]*models.Candidate, 0, rankSize)
	counts := make(map[string]map[string]int, len(fields))
	for _, f := range fields {
		counts[f] = make(map[string]int)
	}

	used := make([]bool, len(pool))

	bumpCounts := func(c *models.Candidate) {
		for _, f := range fields {
			for _, v := range fieldValues(c, f) {
				counts[f][v]++
			}
		}
	}

	penalty := func(c *models.Candidate) float64 {
		var p float64
		for _, f := range fields {
			values := fieldValues(c, f)
			if len(values) == 0 {
				continue
			}
			limit := maxPerKey[f]
			if f == "tags" {
				overlap := 0
				for _, v := range values {
					if counts[f][v] >= limit {
						overlap++
					}
				}
				if len(values) > 0 {
					p += float64(overlap) / float64(len(values))
				}
			} else {
				for _, v := range values {
					if counts[f][v] >= limit {
						p += 1.0
					}
				}
			}
		}
		return p
	}

	// Seed with the single highest-scoring candidate (ties broken by
	// original order).
	bestIdx := -1
	for i := range pool {
		if bestIdx == -1 || pool[i].score > pool[bestIdx].score {
			bestIdx = i
		}
	}
	used[bestIdx] = true
	selected = append(selected, pool[bestIdx].c)
	bumpCounts(pool[bestIdx].c)

	for len(selected) < rankSize || rankSize <= 0 {
		if len(selected) >= len(pool) {
			break
		}
		if rankSize > 0 && len(selected) >= rankSize {
			break
		}
		bestIdx = -1
		var bestAdjusted float64
		for i := range pool {
			if used[i] {
				continue
			}
			adjusted := pool[i].score - diversityWeight*penalty(pool[i].c)
			if bestIdx == -1 || adjusted > bestAdjusted {
				bestIdx = i
				bestAdjusted = adjusted
			}
		}
		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, pool[bestIdx].c)
		bumpCounts(pool[bestIdx].c)
	}

	for i, c := range selected {
		score := c.BestScore()
		c.RerankScore = &score
		c.FinalPosition = i + 1
	}

	if nOutM, ok := config["n_out_m"].(map[string]any); ok {
		if enabled, _ := nOutM["enabled"].(bool); enabled {
			selected = applyNOutM(selected, nOutM)
		}
	}

	return selected, nil
}
