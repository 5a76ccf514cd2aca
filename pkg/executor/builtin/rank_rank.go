package builtin

import (
	"context"
	"sort"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// Rank scores candidates with a model when one is configured; this
// repository carries no model loader, so it always records
// fallback_reason and reuses pre_rank_score -> rank_score, or
// missing_features when features were never extracted, per spec.md §4.3.2.
type Rank struct {
	executor.BaseExecutor
}

func NewRank() *Rank { return &Rank{} }

func (r *Rank) Specialization() executor.Specialization { return executor.SpecRank }

func (r *Rank) Validate(config map[string]any) error { return nil }

func (r *Rank) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	rankSize := r.GetIntDefault(config, "rank_size", 50)

	reason := "model_not_available"
	for _, c := range cands {
		if len(c.Features) == 0 {
			reason = "missing_features"
		}
		var score float64
		if c.PreRankScore != nil {
			score = *c.PreRankScore
		} else {
			score = c.BestScore()
		}
		s := score
		c.RankScore = &s
	}
	rc.Trace.AddNodeDetail(rc.NodeID, "fallback_reason", reason)

	sort.SliceStable(cands, func(i, j int) bool { return *cands[i].RankScore > *cands[j].RankScore })
	if len(cands) > rankSize {
		cands = cands[:rankSize]
	}
	return cands, nil
}
