package builtin

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// PreRank computes a cheap rule-based score per spec.md §4.3.2:
// 0.5*match_score + w_recency*exp(-0.1*days_since_created) + w_popularity*popularity.
// A configured model_type other than the rule scorer is not loaded in this
// repository, so it always falls back to the rule scorer and records
// fallback_reason in the trace.
type PreRank struct {
	executor.BaseExecutor
}

func NewPreRank() *PreRank { return &PreRank{} }

func (r *PreRank) Specialization() executor.Specialization { return executor.SpecRank }

func (r *PreRank) Validate(config map[string]any) error { return nil }

func (r *PreRank) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	wRecency := r.GetFloatDefault(config, "w_recency", 0.7)
	wPopularity := r.GetFloatDefault(config, "w_popularity", 0.3)
	rankSize := r.GetIntDefault(config, "rank_size", 200)

	if modelType, ok := r.GetString(config, "model_type"); ok && modelType != "" {
		rc.Trace.AddNodeDetail(rc.NodeID, "fallback_reason", "model_not_available")
	}

	now := time.Now()
	for _, c := range cands {
		days := 0.0
		if c.CreatedAt != nil {
			days = now.Sub(*c.CreatedAt).Hours() / 24
			if days < 0 {
				days = 0
			}
		}
		score := 0.5*c.MatchScore + wRecency*math.Exp(-0.1*days) + wPopularity*c.Popularity
		s := score
		c.PreRankScore = &s
	}

	sort.SliceStable(cands, func(i, j int) bool { return *cands[i].PreRankScore > *cands[j].PreRankScore })
	if len(cands) > rankSize {
		cands = cands[:rankSize]
	}
	return cands, nil
}
