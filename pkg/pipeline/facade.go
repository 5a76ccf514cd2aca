package pipeline

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kleon1024/mini-feeds/pkg/engine"
	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/executor/builtin"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
	"github.com/kleon1024/mini-feeds/pkg/trace"
)

// FeedGraphID is the named DAG the façade loads, per spec.md §4.5.
const FeedGraphID = "feed_rec"

// Request is the public entry's parameter set, validated per spec.md §6.3
// (count 1..10, offset >= 0) using the same tag-based validator.v10 style
// the teacher uses for HTTP request binding.
type Request struct {
	UserID *int64            `validate:"omitempty,gt=0"`
	Count  int               `validate:"min=1,max=10"`
	Offset int               `validate:"min=0"`
	Scene  string            `validate:"required"`
	Slot   string
	Device string
	Geo    string
	AB     map[string]string
	Debug  bool
}

var validate = validator.New()

// Result bundles the formatted items with the trace the caller may choose
// to embed in its response.
type Result struct {
	Items []*builtin.FeedItem
	Trace *trace.TraceInfo
}

// Runtime is the process-wide, constructed-once holder of loaded graphs and
// the node registry, injected into request handlers — replacing the
// teacher's global module-initialized DAG manager per Design Notes §9.
type Runtime struct {
	Registry *executor.Registry
	Graphs   map[string]*engine.Graph
	exec     *engine.DAGExecutor
	opts     *engine.ExecutionOptions
}

// NewRuntime builds a registry with every builtin node type registered and
// loads every graph definition from graphsDir.
func NewRuntime(graphsDir string, notifiers ...engine.Notifier) (*Runtime, error) {
	reg := executor.NewRegistry()
	builtin.RegisterBuiltins(reg)

	loaded, err := engine.LoadGraphsFromDir(graphsDir, reg)
	if err != nil {
		return nil, fmt.Errorf("loading graphs from %q: %w", graphsDir, err)
	}

	return &Runtime{
		Registry: reg,
		Graphs:   loaded.Graphs,
		exec:     engine.NewDAGExecutor(notifiers...),
		opts:     engine.DefaultExecutionOptions(),
	}, nil
}

// GetRecommendedItems is the public pipeline entry point from spec.md §4.5.
// It never returns an error to the caller: any failure degrades to a
// randomized recall so the façade always returns a well-formed list.
func (rt *Runtime) GetRecommendedItems(ctx context.Context, db models.DataGateway, req Request) *Result {
	if err := validate.Struct(req); err != nil {
		req.Count = clampCount(req.Count)
	}

	var userID int64
	if req.UserID != nil {
		userID = *req.UserID
	}

	rc := reqcontext.New(db, userID, req.Count, req.Offset)
	rc.Scene = req.Scene
	rc.Slot = req.Slot
	rc.Device = req.Device
	rc.Geo = req.Geo
	rc.Debug = req.Debug
	if req.AB != nil {
		rc.AB = req.AB
	}

	graph, ok := rt.Graphs[FeedGraphID]
	if !ok {
		rc.Trace.AddError("facade", "dag not found: "+FeedGraphID, "dag_not_found")
		items := rt.fallback(ctx, rc)
		rc.Trace.Complete(models.TraceStatusFallback)
		return &Result{Items: items, Trace: rc.Trace}
	}

	cands, err := rt.exec.Execute(ctx, graph, rc, rt.opts)
	if err != nil || len(cands) == 0 {
		items := rt.fallback(ctx, rc)
		status := models.TraceStatusFallback
		if err != nil {
			rc.Trace.AddError("facade", err.Error(), "pipeline_error")
		}
		rc.Trace.Complete(status)
		return &Result{Items: items, Trace: rc.Trace}
	}

	items := extractFeedItems(cands)
	rc.Trace.Complete(models.TraceStatusSuccess)
	return &Result{Items: items, Trace: rc.Trace}
}

// fallback invokes a bare random recall + response-format pass, the
// backstop path spec.md §4.5 step 6 and §7 describe.
func (rt *Runtime) fallback(ctx context.Context, rc *reqcontext.RequestContext) []*builtin.FeedItem {
	random := builtin.NewRandomRecall()
	cands, err := random.Execute(ctx, rc, map[string]any{"recall_size": rc.Count}, nil)
	if err != nil {
		return nil
	}

	formatter := builtin.NewResponseFormat()
	formatted, err := formatter.Execute(ctx, rc, map[string]any{}, cands)
	if err != nil {
		return nil
	}
	return extractFeedItems(formatted)
}

func extractFeedItems(cands []*models.Candidate) []*builtin.FeedItem {
	out := make([]*builtin.FeedItem, 0, len(cands))
	for _, c := range cands {
		if v, ok := c.Features["formatted"]; ok {
			if item, ok := v.(*builtin.FeedItem); ok {
				out = append(out, item)
			}
		}
	}
	return out
}

func clampCount(count int) int {
	if count < 1 {
		return 1
	}
	if count > 10 {
		return 10
	}
	return count
}
