package builtin

import (
	"context"
	"math/rand"
	"sort"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// SnakeMergeBlend interleaves candidate lists from multiple recall sources
// by weighted round-robin, per spec.md §4.3.5 and scenario S3.
type SnakeMergeBlend struct {
	executor.BaseExecutor
}

func NewSnakeMergeBlend() *SnakeMergeBlend { return &SnakeMergeBlend{} }

func (r *SnakeMergeBlend) Specialization() executor.Specialization { return executor.SpecBlend }

func (r *SnakeMergeBlend) Validate(config map[string]any) error { return nil }

func (r *SnakeMergeBlend) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	sources, _ := input.(map[string][]*models.Candidate)
	if len(sources) == 0 {
		return nil, nil
	}

	outputSize := r.GetIntDefault(config, "output_size", rc.Count)
	if outputSize <= 0 {
		outputSize = rc.Count
	}
	defaultWeight := r.GetFloatDefault(config, "default_weight", 1.0)
	randomStart := r.GetBoolDefault(config, "random_start", false)
	deduplicate := r.GetBoolDefault(config, "deduplicate", true)

	var weightsCfg map[string]any
	if raw, ok := config["source_weights"].(map[string]any); ok {
		weightsCfg = raw
	}

	// Stable source order = insertion order; since Go maps don't preserve
	// insertion order, derive it from an explicit "source_order" config key
	// when present, else alphabetical (deterministic, at least).
	order := r.GetStringSlice(config, "source_order")
	if len(order) == 0 {
		for name := range sources {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	weights := make(map[string]float64, len(order))
	var totalWeight float64
	for _, name := range order {
		w := defaultWeight
		if weightsCfg != nil {
			if v, ok := weightsCfg[name]; ok {
				if f, ok := toFloat(v); ok {
					w = f
				}
			}
		}
		weights[name] = w
		totalWeight += w
	}
	if totalWeight == 0 {
		totalWeight = 1
	}

	target := make(map[string]int, len(order))
	claimed := 0
	for _, name := range order {
		norm := weights[name] / totalWeight
		t := int(float64(outputSize) * norm)
		if t > len(sources[name]) {
			t = len(sources[name])
		}
		target[name] = t
		claimed += t
	}

	leftover := outputSize - claimed
	if leftover > 0 {
		// Distribute leftover slots to sources with remaining unclaimed
		// candidates, in descending order of list length.
		byLen := append([]string(nil), order...)
		sort.SliceStable(byLen, func(i, j int) bool { return len(sources[byLen[i]]) > len(sources[byLen[j]]) })
		for leftover > 0 {
			progressed := false
			for _, name := range byLen {
				if leftover <= 0 {
					break
				}
				if target[name] < len(sources[name]) {
					target[name]++
					leftover--
					progressed = true
				}
			}
			if !progressed {
				break
			}
		}
	}

	queues := make(map[string][]*models.Candidate, len(order))
	for _, name := range order {
		queues[name] = append([]*models.Candidate(nil), sources[name]...)
	}

	startIdx := 0
	if randomStart && len(order) > 0 {
		seed := seedFromAB(rc)
		rng := rand.New(rand.NewSource(seed))
		startIdx = rng.Intn(len(order))
	}

	retired := make(map[string]bool, len(order))
	emitted := make(map[string]int, len(order))
	seen := make(map[int64]bool)
	out := make([]*models.Candidate, 0, outputSize)

	idx := startIdx
	for len(out) < outputSize {
		allRetired := true
		for _, name := range order {
			if !retired[name] {
				allRetired = false
				break
			}
		}
		if allRetired {
			break
		}

		name := order[idx%len(order)]
		idx++
		if retired[name] {
			continue
		}
		q := queues[name]
		if len(q) == 0 || emitted[name] >= target[name] {
			retired[name] = true
			continue
		}

		head := q[0]
		queues[name] = q[1:]

		if deduplicate && seen[head.ID] {
			continue
		}
		seen[head.ID] = true
		clone := head.Clone()
		clone.Source = name
		out = append(out, clone)
		emitted[name]++

		if emitted[name] >= target[name] || len(queues[name]) == 0 {
			retired[name] = true
		}
	}

	return out, nil
}

// seedFromAB derives a deterministic int64 seed from the request's ab map,
// hashed in sorted key order, unless an int64 is set under
// rc.Inputs["snake_merge_seed"], satisfying spec.md §4.3.5's determinism
// requirement.
func seedFromAB(rc *reqcontext.RequestContext) int64 {
	if v, ok := rc.Inputs["snake_merge_seed"]; ok {
		if seed, ok := v.(int64); ok {
			return seed
		}
	}
	keys := make([]string, 0, len(rc.AB))
	for k := range rc.AB {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var h int64 = 1469598103934665603
	for _, k := range keys {
		for _, b := range []byte(k + "=" + rc.AB[k]) {
			h ^= int64(b)
			h *= 1099511628211
		}
	}
	return h
}
