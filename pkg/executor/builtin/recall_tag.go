package builtin

import (
	"context"
	"math"
	"sort"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// TagRecall requires a resolvable user: loads their tags, trims to the
// first max_tag_match, and scores items by decayed tag-position overlap,
// per spec.md §4.3.1.
type TagRecall struct {
	executor.BaseExecutor
}

func NewTagRecall() *TagRecall { return &TagRecall{} }

func (r *TagRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *TagRecall) Validate(config map[string]any) error { return nil }

func (r *TagRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	if rc.UserID == 0 {
		return nil, nil
	}
	user, err := rc.DB.LoadUser(ctx, rc.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || len(user.Tags) == 0 {
		return nil, nil
	}

	maxTagMatch := r.GetIntDefault(config, "max_tag_match", 3)
	minTagMatch := r.GetIntDefault(config, "min_tag_match", 1)
	decay := r.GetFloatDefault(config, "tag_weight_decay", 0.9)
	size := r.GetIntDefault(config, "recall_size", 20)
	kinds := parseKinds(r.GetStringSlice(config, "content_types"))

	tags := user.Tags
	if len(tags) > maxTagMatch {
		tags = tags[:maxTagMatch]
	}
	tagPos := make(map[string]int, len(tags))
	for i, t := range tags {
		tagPos[t] = i
	}

	cands, err := rc.DB.QueryItemsByTagOverlap(ctx, tags, kinds, size*4)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Candidate, 0, len(cands))
	for _, c := range cands {
		var score float64
		var matched []string
		matchCount := 0
		for _, t := range c.Tags {
			if pos, ok := tagPos[t]; ok {
				score += math.Pow(decay, float64(pos))
				matched = append(matched, t)
				matchCount++
			}
		}
		if matchCount < minTagMatch {
			continue
		}
		c.MatchScore = score
		c.MatchedTags = matched
		c.RecallType = "tag"
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}
