package builtin

import (
	"context"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// ProductRecall lists kind=product items up to recall_size, default score
// 1.0, with the same optional expr-lang targeting hook as AdRecall.
type ProductRecall struct {
	executor.BaseExecutor
}

func NewProductRecall() *ProductRecall { return &ProductRecall{} }

func (r *ProductRecall) Specialization() executor.Specialization { return executor.SpecRecall }

func (r *ProductRecall) Validate(config map[string]any) error {
	if raw, ok := r.GetString(config, "targeting_expr"); ok && raw != "" {
		if _, err := compileTargeting(raw); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRecall) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, _ any) ([]*models.Candidate, error) {
	size := r.GetIntDefault(config, "recall_size", 10)
	cands, err := rc.DB.QueryItemsByKind(ctx, models.KindProduct, size*2)
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
		c.RecallType = "product"
		out = append(out, c)
		if len(out) >= size {
			break
		}
	}
	return out, nil
}
