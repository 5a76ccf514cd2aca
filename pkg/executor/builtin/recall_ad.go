package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// AdRecall lists kind=ad items up to recall_size, default score 1.0. When
// targeting_enabled, an expr-lang boolean expression filters candidates
// against the request's scene context, grounded on the teacher's
// builtin/conditional.go use of expr.Compile/expr.Run.
type AdRecall struct {
	executor.BaseExecutor
}

func NewAdRecall() *AdRecall { return &AdRecall{} }

func (r *AdRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *AdRecall) Validate(config map[string]any) error {
	if raw, ok := r.GetString(config, "targeting_expr"); ok && raw != "" {
		if _, err := compileTargeting(raw); err != nil {
			return err
		}
	}
	return nil
}

func (r *AdRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	size := r.GetIntDefault(config, "recall_size", 10)
	cands, err := rc.DB.QueryItemsByKind(ctx, models.KindAd, size*2)
	if err != nil {
		return nil, err
	}

	program, err := targetingFor(r.BaseExecutor, config)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Candidate, 0, len(cands))
	for _, c := range cands {
		if program != nil {
			ok, err := program.eval(targetingEnv(rc, c))
			if err != nil || !ok {
				continue
			}
		}
		c.MatchScore = 1.0
		c.RecallType = "ad"
		out = append(out, c)
		if len(out) >= size {
			break
		}
	}
	return out, nil
}

// targetingFor compiles the node's targeting_expr, but only when
// targeting_enabled is set — the stub hook named in spec.md §4.3.1.
func targetingFor(base executor.BaseExecutor, config map[string]any) (*targetingProgram, error) {
	if !base.GetBoolDefault(config, "targeting_enabled", false) {
		return nil, nil
	}
	raw, ok := base.GetString(config, "targeting_expr")
	if !ok || raw == "" {
		return nil, nil
	}
	return compileTargeting(raw)
}

// targetingEnv builds the evaluation environment a targeting expression
// sees: scene context plus the candidate's own tags.
func targetingEnv(rc *reqcontext.RequestContext, c *models.Candidate) map[string]any {
	return map[string]any{
		"scene":  rc.Scene,
		"device": rc.Device,
		"geo":    rc.Geo,
		"tags":   c.Tags,
	}
}
