package builtin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// PopularRecall aggregates weighted event counts within a time window and
// returns the top-N content items, per spec.md §4.3.1.
type PopularRecall struct {
	executor.BaseExecutor
}

func NewPopularRecall() *PopularRecall { return &PopularRecall{} }

func (r *PopularRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *PopularRecall) Validate(config map[string]any) error { return nil }

func (r *PopularRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	window := r.GetStringDefault(config, "time_window", "1d")
	dur, err := parseWindow(window)
	if err != nil {
		return nil, err
	}
	size := r.GetIntDefault(config, "recall_size", 20)
	eventTypes := r.GetStringSlice(config, "event_types")
	if len(eventTypes) == 0 {
		eventTypes = []string{"pv", "like", "comment", "share", "favorite"}
	}
	weights := models.DefaultEventWeights()
	if raw, ok := config["weights"].(map[string]any); ok {
		for k, v := range raw {
			if f, ok := toFloat(v); ok {
				weights[k] = f
			}
		}
	}

	windowStart := time.Now().Add(-dur)
	cands, err := rc.DB.PopularityByWindow(ctx, eventTypes, windowStart, size, weights)
	if err != nil {
		return nil, err
	}
	for _, c := range cands {
		c.RecallType = "popular"
		if c.MatchScore == 0 {
			c.MatchScore = c.Popularity
		}
	}
	return cands, nil
}

// parseWindow parses durations like "1h", "6h", "1d", "7d", "30d".
func parseWindow(w string) (time.Duration, error) {
	if w == "" {
		return 0, fmt.Errorf("empty time_window")
	}
	unit := w[len(w)-1]
	numPart := w[:len(w)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, fmt.Errorf("invalid time_window %q: %w", w, err)
	}
	switch unit {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time_window unit in %q", w)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
