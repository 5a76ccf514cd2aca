package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// RandomRecall samples up to recall_size items from the store, optionally
// filtered by content_types, scoring every hit 0.5. Cold-start / degraded
// fallback source, per spec.md §4.3.1.
type RandomRecall struct {
	executor.BaseExecutor
}

func NewRandomRecall() *RandomRecall { return &RandomRecall{} }

func (r *RandomRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *RandomRecall) Validate(config map[string]any) error { return nil }

func (r *RandomRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	size := r.GetIntDefault(config, "recall_size", 20)
	kinds := parseKinds(r.GetStringSlice(config, "content_types"))

	var seed *int64
	if s, ok := r.GetInt(config, "seed"); ok {
		s64 := int64(s)
		seed = &s64
	}

	cands, err := rc.DB.SampleItems(ctx, kinds, size, seed)
	if err != nil {
		return nil, err
	}
	for _, c := range cands {
		c.MatchScore = 0.5
		c.RecallType = "random"
	}
	return cands, nil
}

// parseKinds maps content_types strings to CandidateKind, defaulting to all
// three kinds when empty.
func parseKinds(raw []string) []models.CandidateKind {
	if len(raw) == 0 {
		return []models.CandidateKind{models.KindContent, models.KindAd, models.KindProduct}
	}
	out := make([]models.CandidateKind, 0, len(raw))
	for _, s := range raw {
		out = append(out, models.CandidateKind(s))
	}
	return out
}
