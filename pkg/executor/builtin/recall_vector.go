package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// VectorRecall runs a k-NN search against the user's embedding, per
// spec.md §4.3.1.
type VectorRecall struct {
	executor.BaseExecutor
}

func NewVectorRecall() *VectorRecall { return &VectorRecall{} }

func (r *VectorRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *VectorRecall) Validate(config map[string]any) error { return nil }

func (r *VectorRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	if rc.UserID == 0 {
		return nil, nil
	}
	vec, err := rc.DB.LoadUserEmbedding(ctx, rc.UserID)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}

	metric := models.DistanceMetric(r.GetStringDefault(config, "metric", string(models.MetricCosine)))
	size := r.GetIntDefault(config, "recall_size", 20)
	minScore := r.GetFloatDefault(config, "min_score", 0.7)

	hits, err := rc.DB.NearestItems(ctx, vec, metric, size*2)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ItemID)
	}
	items, err := rc.DB.FetchItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Candidate, 0, len(hits))
	for _, h := range hits {
		score := h.Score
		if metric == models.MetricCosine {
			similarity := 1 - h.Score
			if similarity < minScore {
				continue
			}
			score = similarity
		}
		item, ok := items[h.ItemID]
		if !ok {
			continue
		}
		out = append(out, &models.Candidate{
			ID:         item.ID,
			Kind:       item.Kind,
			Title:      item.Title,
			Tags:       item.Tags,
			AuthorID:   item.AuthorID,
			CreatedAt:  item.CreatedAt,
			MatchScore: score,
			RecallType: "vector",
		})
		if len(out) >= size {
			break
		}
	}
	return out, nil
}
