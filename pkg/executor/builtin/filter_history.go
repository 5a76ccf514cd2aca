package builtin

import (
	"context"
	"time"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// UserHistoryFilter drops candidates the user has already touched with any
// of event_types within time_window, per spec.md §4.3.3. No-op for
// anonymous users.
type UserHistoryFilter struct {
	executor.BaseExecutor
}

func NewUserHistoryFilter() *UserHistoryFilter { return &UserHistoryFilter{} }

func (r *UserHistoryFilter) Specialization() executor.Specialization { return executor.SpecFilter }

func (r *UserHistoryFilter) Validate(config map[string]any) error { return nil }

func (r *UserHistoryFilter) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	if rc.UserID == 0 {
		return cands, nil
	}

	window := r.GetStringDefault(config, "time_window", "7d")
	dur, err := parseWindow(window)
	if err != nil {
		return nil, err
	}
	eventTypes := r.GetStringSlice(config, "event_types")
	if len(eventTypes) == 0 {
		eventTypes = []string{"impression", "click"}
	}

	since := time.Now().Add(-dur)
	touched, err := rc.DB.UserHistoryItems(ctx, rc.UserID, eventTypes, since)
	if err != nil {
		return nil, err
	}
	if len(touched) == 0 {
		return cands, nil
	}

	out := make([]*models.Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := touched[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
