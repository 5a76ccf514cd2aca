package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// BasicFilter applies a configurable subset of rules in fixed order:
// duplicate, block, low_quality, sensitive, per spec.md §4.3.3, recording
// per-rule dropped counts in the trace.
type BasicFilter struct {
	executor.BaseExecutor
}

func NewBasicFilter() *BasicFilter { return &BasicFilter{} }

func (r *BasicFilter) Specialization() executor.Specialization { return executor.SpecFilter }

func (r *BasicFilter) Validate(config map[string]any) error { return nil }

func (r *BasicFilter) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	rules := r.GetStringSlice(config, "rules")
	if len(rules) == 0 {
		rules = []string{"duplicate", "block", "low_quality", "sensitive"}
	}
	quality := r.GetFloatDefault(config, "quality_threshold", 0.3)

	var blocked map[int64]struct{}
	if rc.UserID != 0 {
		var err error
		blocked, err = rc.DB.UserBlockedItems(ctx, rc.UserID)
		if err != nil {
			return nil, err
		}
	}

	dropped := make(map[string]int, len(rules))

	for _, rule := range rules {
		switch rule {
		case "duplicate":
			before := len(cands)
			cands = models.DedupeByID(cands)
			dropped["duplicate"] = before - len(cands)

		case "block":
			if blocked == nil {
				continue
			}
			kept := cands[:0:0]
			n := 0
			for _, c := range cands {
				if _, ok := blocked[c.ID]; ok {
					n++
					continue
				}
				kept = append(kept, c)
			}
			cands = kept
			dropped["block"] = n

		case "low_quality":
			kept := cands[:0:0]
			n := 0
			for _, c := range cands {
				if c.MatchScore < quality {
					n++
					continue
				}
				kept = append(kept, c)
			}
			cands = kept
			dropped["low_quality"] = n

		case "sensitive":
			kept := cands[:0:0]
			n := 0
			for _, c := range cands {
				if c.IsSensitive {
					n++
					continue
				}
				kept = append(kept, c)
			}
			cands = kept
			dropped["sensitive"] = n
		}
	}

	for rule, n := range dropped {
		rc.Trace.AddNodeDetail(rc.NodeID, "dropped_"+rule, n)
	}

	return cands, nil
}
