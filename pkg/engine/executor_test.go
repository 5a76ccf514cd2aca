package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/gateway/memory"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

func recallReturning(cands ...*models.Candidate) executor.Executor {
	return executor.ExecutorFunc{
		Spec: executor.SpecRecall,
		Fn: func(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
			return cands, nil
		},
	}
}

func passthroughRank() executor.Executor {
	return executor.ExecutorFunc{
		Spec: executor.SpecRank,
		Fn: func(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
			in, _ := input.([]*models.Candidate)
			return in, nil
		},
	}
}

func buildTestGraph(t *testing.T, reg *executor.Registry) *Graph {
	t.Helper()
	def := &models.GraphDef{
		Nodes: map[string]*models.NodeConfig{
			"recall_a": {Type: "test.recall_a"},
			"recall_b": {Type: "test.recall_b"},
			"rank":     {Type: "test.rank"},
		},
		EntryNodes:   []string{"recall_a", "recall_b"},
		Edges:        map[string][]string{"recall_a": {"rank"}, "recall_b": {"rank"}},
		TerminalNode: "rank",
	}
	g, err := Build(def, reg)
	require.NoError(t, err)
	return g
}

func TestDAGExecutor_Execute_MergesParentsAndReturnsTerminal(t *testing.T) {
	reg := executor.NewRegistry()
	reg.Register("test.recall_a", recallReturning(&models.Candidate{ID: 1}))
	reg.Register("test.recall_b", recallReturning(&models.Candidate{ID: 2}))
	reg.Register("test.rank", passthroughRank())

	g := buildTestGraph(t, reg)
	rc := reqcontext.New(memory.New(), 1, 10, 0)

	exec := NewDAGExecutor()
	out, err := exec.Execute(context.Background(), g, rc, DefaultExecutionOptions())
	require.NoError(t, err)
	require.Len(t, out, 2)

	ids := []int64{out[0].ID, out[1].ID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestDAGExecutor_Execute_NotifiesLifecycleEvents(t *testing.T) {
	reg := executor.NewRegistry()
	reg.Register("test.recall_a", recallReturning(&models.Candidate{ID: 1}))
	reg.Register("test.recall_b", recallReturning(&models.Candidate{ID: 2}))
	reg.Register("test.rank", passthroughRank())

	g := buildTestGraph(t, reg)
	rc := reqcontext.New(memory.New(), 1, 10, 0)

	var mu sync.Mutex
	var events []EventType
	notifier := NotifierFunc(func(ev ExecutionEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Type)
	})

	exec := NewDAGExecutor(notifier)
	_, err := exec.Execute(context.Background(), g, rc, DefaultExecutionOptions())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, EventExecutionStarted)
	assert.Contains(t, events, EventWaveStarted)
	assert.Contains(t, events, EventNodeCompleted)
	assert.Contains(t, events, EventExecutionDone)
}

func TestDAGExecutor_Execute_NodeFailureDegradesRatherThanAborting(t *testing.T) {
	reg := executor.NewRegistry()
	reg.Register("test.recall_a", recallReturning(&models.Candidate{ID: 1}))
	reg.Register("test.recall_b", recallReturning(&models.Candidate{ID: 2}))
	reg.Register("test.rank", executor.ExecutorFunc{
		Spec: executor.SpecRank,
		Fn: func(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
			return nil, errors.New("rank model unavailable")
		},
	})

	g := buildTestGraph(t, reg)
	rc := reqcontext.New(memory.New(), 1, 10, 0)

	exec := NewDAGExecutor()
	out, err := exec.Execute(context.Background(), g, rc, DefaultExecutionOptions())
	require.NoError(t, err)
	assert.Len(t, out, 2, "a failing terminal node degrades to its merged input, not an empty result")

	errs := rc.Trace.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "rank", errs[0].NodeID)
}

func TestDAGExecutor_Execute_RespectsOverallTimeout(t *testing.T) {
	reg := executor.NewRegistry()
	reg.Register("test.recall_a", recallReturning(&models.Candidate{ID: 1}))
	reg.Register("test.recall_b", recallReturning(&models.Candidate{ID: 2}))
	reg.Register("test.rank", executor.ExecutorFunc{
		Spec: executor.SpecRank,
		Fn: func(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	g := buildTestGraph(t, reg)
	rc := reqcontext.New(memory.New(), 1, 10, 0)

	opts := &ExecutionOptions{Timeout: 10 * time.Millisecond, NodeTimeout: 10 * time.Millisecond, MaxConcurrency: 10}
	exec := NewDAGExecutor()
	start := time.Now()
	_, err := exec.Execute(context.Background(), g, rc, opts)
	// The rank node's context cannot outlive the overall 10ms deadline, so
	// the rank node gives up well before its 200ms wait; SafeProcess degrades
	// its output, and the check after the wave reports the overall deadline.
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}
