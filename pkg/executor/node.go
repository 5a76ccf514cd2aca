package executor

import (
	"context"
	"fmt"

	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// Node wraps a registered Executor with its graph identity and static
// config, and implements the safe-process contract from spec.md §4.2: a
// node failure never aborts the request — it is traced and the node
// degrades to passing its input through unchanged.
type Node struct {
	ID       string
	TypeName string
	Config   map[string]any
	Enabled  bool
	Ex       Executor
}

// NewNode builds a Node from a loaded NodeConfig and its resolved executor.
func NewNode(id string, nc *models.NodeConfig, ex Executor) *Node {
	return &Node{
		ID:       id,
		TypeName: nc.Type,
		Config:   nc.Config,
		Enabled:  nc.IsEnabled(),
		Ex:       ex,
	}
}

// flattenInput reduces whatever shape an upstream assembly produced down to
// a single candidate list, used to build a degraded pass-through output when
// a node fails, or when a disabled node is skipped.
func flattenInput(input any) []*models.Candidate {
	switch v := input.(type) {
	case nil:
		return nil
	case []*models.Candidate:
		return v
	case map[string][]*models.Candidate:
		lists := make([][]*models.Candidate, 0, len(v))
		for _, l := range v {
			lists = append(lists, l)
		}
		return models.Union(lists...)
	default:
		return nil
	}
}

// SafeProcess executes the node, swallowing any error into a traced,
// degraded (pass-through) output rather than propagating it — per spec.md
// §4.2 / scenario S5. Any transaction open on rc is rolled back on failure.
func (n *Node) SafeProcess(ctx context.Context, rc *reqcontext.RequestContext, input any) []*models.Candidate {
	tr := rc.Trace
	tr.StartNode(n.ID, n.TypeName)

	if !n.Enabled {
		out := flattenInput(input)
		tr.EndNode(n.ID, models.NodeStatusSkipped, len(out), map[string]any{"reason": "disabled"})
		return out
	}

	tr.SetNodeInputCount(n.ID, inputCount(input))

	nodeCtx := rc.ForNode(rc.DAGID, n.ID)
	out, err := n.Ex.Execute(ctx, nodeCtx, n.Config, input)
	if err != nil {
		n.rollback(ctx, rc)
		tr.AddError(n.ID, err.Error(), "node_error")
		degraded := flattenInput(input)
		tr.EndNode(n.ID, models.NodeStatusError, len(degraded), map[string]any{
			"degraded": true,
			"error":    err.Error(),
		})
		return degraded
	}

	tr.EndNode(n.ID, models.NodeStatusSuccess, len(out), nil)
	return out
}

func (n *Node) rollback(ctx context.Context, rc *reqcontext.RequestContext) {
	tx := rc.Tx()
	if tx == nil {
		return
	}
	_ = tx.Rollback(ctx)
	rc.ClearTx()
}

func inputCount(input any) int {
	switch v := input.(type) {
	case []*models.Candidate:
		return len(v)
	case map[string][]*models.Candidate:
		n := 0
		for _, l := range v {
			n += len(l)
		}
		return n
	default:
		return 0
	}
}

// Validate runs the node's static Validate against its stored config, used
// at graph load time to fail fast on obviously broken configuration.
func (n *Node) Validate() error {
	if err := n.Ex.Validate(n.Config); err != nil {
		return fmt.Errorf("node %q: %w", n.ID, err)
	}
	return nil
}
