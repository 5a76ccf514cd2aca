package builtin

import (
	"context"
	"sort"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// MultiHopRecall walks the user->item->user->item relation graph up to
// max_hops, aggregating decayed weight per item, per spec.md §4.3.1. The
// hop-walk and decay accumulation itself is delegated to the DataGateway
// (MultiHopItems); this node applies recall_type tagging, sorting, and the
// recall_size cap.
type MultiHopRecall struct {
	executor.BaseExecutor
}

func NewMultiHopRecall() *MultiHopRecall { return &MultiHopRecall{} }

func (r *MultiHopRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *MultiHopRecall) Validate(config map[string]any) error { return nil }

func (r *MultiHopRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	if rc.UserID == 0 {
		return nil, nil
	}
	maxHops := r.GetIntDefault(config, "max_hops", 2)
	decay := r.GetFloatDefault(config, "hop_decay", 0.5)
	size := r.GetIntDefault(config, "recall_size", 20)
	relTypes := r.GetStringSlice(config, "relation_types")
	if len(relTypes) == 0 {
		relTypes = []string{"like", "favorite"}
	}

	weights, err := rc.DB.MultiHopItems(ctx, rc.UserID, relTypes, maxHops, decay, size*2)
	if err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	items, err := rc.DB.FetchItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Candidate, 0, len(weights))
	for id, w := range weights {
		item, ok := items[id]
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
			MatchScore: w,
			RecallType: "multi_hop",
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}
