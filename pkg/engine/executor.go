package engine

import (
	"context"
	"sync"
	"time"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// Graph bundles a loaded definition with its built nodes, ready to execute.
type Graph struct {
	ID    string
	Def   *models.GraphDef
	DAG   *DAG
	Waves [][]string
	Nodes map[string]*executor.Node
}

// Build resolves every node's executor through reg and computes the wave
// schedule once, so repeated requests against the same graph reuse it.
func Build(def *models.GraphDef, reg *executor.Registry) (*Graph, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	dag := BuildDAG(def)
	waves, err := TopologicalSort(dag)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*executor.Node, len(def.Nodes))
	for id, nc := range def.Nodes {
		ex, err := reg.Get(nc.Type)
		if err != nil {
			return nil, err
		}
		node := executor.NewNode(id, nc, ex)
		if err := node.Validate(); err != nil {
			return nil, err
		}
		nodes[id] = node
	}

	return &Graph{ID: def.ID, Def: def, DAG: dag, Waves: waves, Nodes: nodes}, nil
}

// DAGExecutor runs a Graph's waves against one request, in parallel within
// each wave, adapted from the teacher's dag_executor.go.
type DAGExecutor struct {
	Notifiers []Notifier
}

// NewDAGExecutor builds an executor with the given notifiers attached.
func NewDAGExecutor(notifiers ...Notifier) *DAGExecutor {
	return &DAGExecutor{Notifiers: notifiers}
}

// Execute runs every wave of g in order, nodes within a wave concurrently up
// to opts.MaxConcurrency, and returns the final candidate list read from the
// graph's terminal node.
func (de *DAGExecutor) Execute(ctx context.Context, g *Graph, rc *reqcontext.RequestContext, opts *ExecutionOptions) ([]*models.Candidate, error) {
	if opts == nil {
		opts = DefaultExecutionOptions()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rc.DAGID = g.ID
	safeNotify(de.Notifiers, ExecutionEvent{Type: EventExecutionStarted, DAGID: g.ID, Timestamp: time.Now()})

	outputs := make(map[string][]*models.Candidate, len(g.Nodes))
	var outputsMu sync.Mutex

	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 1
	}

	for waveIdx, wave := range g.Waves {
		safeNotify(de.Notifiers, ExecutionEvent{Type: EventWaveStarted, DAGID: g.ID, WaveIndex: waveIdx, Timestamp: time.Now()})

		sem := make(chan struct{}, maxConc)
		var wg sync.WaitGroup

		for _, nodeID := range wave {
			node := g.Nodes[nodeID]
			parents := g.DAG.Parents[nodeID]

			outputsMu.Lock()
			input := assembleInput(node.Ex.Specialization(), node, parents, outputs)
			outputsMu.Unlock()

			wg.Add(1)
			sem <- struct{}{}
			go func(node *executor.Node, input any, waveIdx int) {
				defer wg.Done()
				defer func() { <-sem }()
				de.executeNode(ctx, g, node, rc, input, waveIdx, opts, &outputsMu, outputs)
			}(node, input, waveIdx)
		}
		wg.Wait()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	safeNotify(de.Notifiers, ExecutionEvent{Type: EventExecutionDone, DAGID: g.ID, Timestamp: time.Now()})

	terminal, err := TerminalNodeID(g.DAG)
	if err != nil {
		return nil, err
	}
	outputsMu.Lock()
	defer outputsMu.Unlock()
	return outputs[terminal], nil
}

func (de *DAGExecutor) executeNode(ctx context.Context, g *Graph, node *executor.Node, rc *reqcontext.RequestContext, input any, waveIdx int, opts *ExecutionOptions, mu *sync.Mutex, outputs map[string][]*models.Candidate) {
	nodeCtx := ctx
	var cancel context.CancelFunc
	if opts.NodeTimeout > 0 {
		nodeCtx, cancel = context.WithTimeout(ctx, opts.NodeTimeout)
		defer cancel()
	}

	start := time.Now()
	safeNotify(de.Notifiers, ExecutionEvent{Type: EventNodeStarted, DAGID: g.ID, NodeID: node.ID, NodeType: node.TypeName, WaveIndex: waveIdx, Timestamp: start})

	out := node.SafeProcess(nodeCtx, rc, input)

	mu.Lock()
	outputs[node.ID] = out
	mu.Unlock()

	dur := time.Since(start).Milliseconds()
	if rec, ok := rc.Trace.Node(node.ID); ok && rec.Status == models.NodeStatusError {
		safeNotify(de.Notifiers, ExecutionEvent{Type: EventNodeFailed, DAGID: g.ID, NodeID: node.ID, NodeType: node.TypeName, WaveIndex: waveIdx, DurationMs: dur, Timestamp: time.Now()})
		return
	}
	safeNotify(de.Notifiers, ExecutionEvent{Type: EventNodeCompleted, DAGID: g.ID, NodeID: node.ID, NodeType: node.TypeName, WaveIndex: waveIdx, DurationMs: dur, Timestamp: time.Now()})
}
