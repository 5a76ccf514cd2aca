package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// NOutMFilter enforces that within any sliding window of up to m
// observations, at most n share the same key value, per spec.md §4.3.3.
// Also reused as rerank's optional finishing pass (§4.3.4).
type NOutMFilter struct {
	executor.BaseExecutor
}

func NewNOutMFilter() *NOutMFilter { return &NOutMFilter{} }

func (r *NOutMFilter) Specialization() executor.Specialization { return executor.SpecFilter }

func (r *NOutMFilter) Validate(config map[string]any) error { return nil }

func (r *NOutMFilter) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	n := r.GetIntDefault(config, "n", 1)
	m := r.GetIntDefault(config, "m", 5)
	key := r.GetStringDefault(config, "key", "author_id")

	if n >= m || n <= 0 || m <= 0 {
		rc.Trace.AddNodeDetail(rc.NodeID, "warning", "invalid n_out_m config, passing through")
		return cands, nil
	}

	return nOutMWindow(cands, n, m, key), nil
}

// nOutMWindow walks cands in order, keeping a candidate only if fewer than
// n of the last m *kept* candidates share its key value — a trailing
// window over accepted output, not raw input position, per spec.md §4.3.3
// and scenario S2. The window is a FIFO of up to m kept key values: once it
// reaches capacity, admitting a new value evicts the oldest.
func nOutMWindow(cands []*models.Candidate, n, m int, key string) []*models.Candidate {
	window := make([]string, 0, m)
	counts := make(map[string]int)
	out := make([]*models.Candidate, 0, len(cands))

	for _, c := range cands {
		values := fieldValues(c, key)
		var v string
		if len(values) > 0 {
			v = values[0]
		}

		if counts[v] >= n {
			continue
		}

		out = append(out, c)
		window = append(window, v)
		counts[v]++
		if len(window) > m {
			oldest := window[0]
			window = window[1:]
			counts[oldest]--
			if counts[oldest] <= 0 {
				delete(counts, oldest)
			}
		}
	}

	return out
}

// applyNOutM adapts a raw n_out_m config map (as embedded in a rerank node's
// config) to nOutMWindow.
func applyNOutM(cands []*models.Candidate, config map[string]any) []*models.Candidate {
	base := executor.BaseExecutor{}
	n := base.GetIntDefault(config, "n", 1)
	m := base.GetIntDefault(config, "m", 5)
	key := base.GetStringDefault(config, "key", "author_id")

	if n >= m || n <= 0 || m <= 0 {
		return cands
	}
	return nOutMWindow(cands, n, m, key)
}
