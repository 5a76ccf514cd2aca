package builtin

import (
	"context"
	"sort"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// DiversityFilter sorts by best available score descending, then keeps a
// candidate only while every configured diversity_field stays under its
// max_items_per_key cap, per spec.md §4.3.3. Tag fields iterate each tag.
type DiversityFilter struct {
	executor.BaseExecutor
}

func NewDiversityFilter() *DiversityFilter { return &DiversityFilter{} }

func (r *DiversityFilter) Specialization() executor.Specialization { return executor.SpecFilter }

func (r *DiversityFilter) Validate(config map[string]any) error { return nil }

func (r *DiversityFilter) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	fields := parseDiversityFields(r.GetStringSlice(config, "diversity_fields"), []string{"author_id", "tags"})
	maxPerKey := parseMaxItemsPerKey(rc, config["max_items_per_key"], fields, defaultMaxItemsPerKey())

	sorted := make([]*models.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BestScore() > sorted[j].BestScore() })

	counts := make(map[string]map[string]int, len(fields))
	for _, f := range fields {
		counts[f] = make(map[string]int)
	}

	out := make([]*models.Candidate, 0, len(sorted))
	for _, c := range sorted {
		forbidden := false
		for _, f := range fields {
			limit := maxPerKey[f]
			for _, v := range fieldValues(c, f) {
				if counts[f][v] >= limit {
					forbidden = true
					break
				}
			}
			if forbidden {
				break
			}
		}
		if forbidden {
			continue
		}
		for _, f := range fields {
			for _, v := range fieldValues(c, f) {
				counts[f][v]++
			}
		}
		out = append(out, c)
	}
	return out, nil
}
