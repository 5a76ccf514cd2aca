// Package executor defines the node execution contract and the registry
// that resolves a symbolic node type string to a concrete implementation,
// adapted from the teacher's pkg/executor package.
package executor

import (
	"context"
	"fmt"

	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// Specialization is the node taxonomy from spec.md §3.2, fixing each
// built-in's input-assembly contract (SPEC_FULL.md §C.3).
type Specialization string

const (
	SpecRecall    Specialization = "recall"
	SpecRank      Specialization = "rank"
	SpecFilter    Specialization = "filter"
	SpecBlend     Specialization = "blend"
	SpecTransform Specialization = "transform"
)

// Executor is implemented by every node type registered with a Registry.
type Executor interface {
	// Specialization reports which input-assembly contract the engine should
	// apply before calling Execute.
	Specialization() Specialization

	// Execute runs the node. input's shape depends on Specialization:
	// recall nodes receive nil, blend nodes receive
	// map[string][]*models.Candidate keyed by source name, everything else
	// receives []*models.Candidate.
	Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error)

	// Validate checks config for this node type without executing it.
	Validate(config map[string]any) error
}

// ExecutorFunc adapts a plain function to the Executor interface for
// stateless node types. Validate delegates to Checker when it is set and
// accepts any config otherwise.
type ExecutorFunc struct {
	Spec    Specialization
	Fn      func(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error)
	Checker func(config map[string]any) error
}

func (f ExecutorFunc) Specialization() Specialization { return f.Spec }

func (f ExecutorFunc) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	return f.Fn(ctx, rc, config, input)
}

func (f ExecutorFunc) Validate(config map[string]any) error {
	if f.Checker == nil {
		return nil
	}
	return f.Checker(config)
}

// BaseExecutor offers typed config accessors reused by every builtin, mirroring
// the teacher's BaseExecutor helpers.
type BaseExecutor struct{}

func (BaseExecutor) ValidateRequired(config map[string]any, keys ...string) error {
	for _, k := range keys {
		if _, ok := config[k]; !ok {
			return fmt.Errorf("%w: missing required key %q", models.ErrMissingConfig, k)
		}
	}
	return nil
}

func (BaseExecutor) GetString(config map[string]any, key string) (string, bool) {
	v, ok := config[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (BaseExecutor) GetStringDefault(config map[string]any, key, def string) string {
	if s, ok := (BaseExecutor{}).GetString(config, key); ok {
		return s
	}
	return def
}

func (BaseExecutor) GetInt(config map[string]any, key string) (int, bool) {
	v, ok := config[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func (BaseExecutor) GetIntDefault(config map[string]any, key string, def int) int {
	if n, ok := (BaseExecutor{}).GetInt(config, key); ok {
		return n
	}
	return def
}

func (BaseExecutor) GetFloat(config map[string]any, key string) (float64, bool) {
	v, ok := config[key]
	if !ok {
		return 0, false
	}
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

func (BaseExecutor) GetFloatDefault(config map[string]any, key string, def float64) float64 {
	if n, ok := (BaseExecutor{}).GetFloat(config, key); ok {
		return n
	}
	return def
}

func (BaseExecutor) GetStringSlice(config map[string]any, key string) []string {
	v, ok := config[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (BaseExecutor) GetBoolDefault(config map[string]any, key string, def bool) bool {
	v, ok := config[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
