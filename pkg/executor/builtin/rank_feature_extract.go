package builtin

import (
	"context"
	"time"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// FeatureExtract annotates each candidate with a features map grouped as
// item_*/ctx_*/cross_* (see spec.md §4.3.2). It produces no user_* features;
// the loaded user's tags feed only cross_tag_overlap. No model I/O.
type FeatureExtract struct {
	executor.BaseExecutor
}

func NewFeatureExtract() *FeatureExtract { return &FeatureExtract{} }

func (r *FeatureExtract) Specialization() executor.Specialization { return executor.SpecRank }

func (r *FeatureExtract) Validate(config map[string]any) error { return nil }

func (r *FeatureExtract) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)

	now := time.Now()
	ctxFeatures := map[string]any{
		"ctx_hour":   now.Hour(),
		"ctx_dow":    int(now.Weekday()),
		"ctx_scene":  rc.Scene,
		"ctx_device": rc.Device,
	}

	var userTagSet map[string]struct{}
	if rc.UserID != 0 {
		if user, err := rc.DB.LoadUser(ctx, rc.UserID); err == nil && user != nil {
			userTagSet = make(map[string]struct{}, len(user.Tags))
			for _, t := range user.Tags {
				userTagSet[t] = struct{}{}
			}
		}
	}

	for _, c := range cands {
		c.SetFeature("item_kind", string(c.Kind))
		c.SetFeature("item_tag_count", len(c.Tags))

		if c.CreatedAt != nil {
			days := now.Sub(*c.CreatedAt).Hours() / 24
			c.SetFeature("item_days_since_creation", days)
			c.SetFeature("item_is_recent", days <= 7)
		}

		for k, v := range ctxFeatures {
			c.SetFeature(k, v)
		}

		if userTagSet != nil {
			overlap := 0
			for _, t := range c.Tags {
				if _, ok := userTagSet[t]; ok {
					overlap++
				}
			}
			c.SetFeature("cross_tag_overlap", overlap)
		}
	}
	return cands, nil
}
