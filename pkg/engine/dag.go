// Package engine builds a DAG from a loaded graph definition, topologically
// sorts it into parallel-executable waves, and drives node execution —
// adapted from the teacher's pkg/engine package (dag_utils.go, dag_executor.go).
package engine

import (
	"fmt"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

// DAG is the in-memory adjacency view of a GraphDef, built once per graph
// load and reused across requests (it carries no per-request state).
type DAG struct {
	Def      *models.GraphDef
	Children map[string][]string // node -> direct successors
	Parents  map[string][]string // node -> direct predecessors, sorted by source node id
}

// BuildDAG derives adjacency lists from a GraphDef's edge map.
func BuildDAG(def *models.GraphDef) *DAG {
	dag := &DAG{
		Def:      def,
		Children: make(map[string][]string, len(def.Nodes)),
		Parents:  make(map[string][]string, len(def.Nodes)),
	}
	for id := range def.Nodes {
		dag.Children[id] = nil
		dag.Parents[id] = nil
	}
	srcs := make([]string, 0, len(def.Edges))
	for src := range def.Edges {
		srcs = append(srcs, src)
	}
	sortStrings(srcs)
	for _, src := range srcs {
		for _, tgt := range def.Edges[src] {
			dag.Children[src] = append(dag.Children[src], tgt)
			dag.Parents[tgt] = append(dag.Parents[tgt], src)
		}
	}
	return dag
}

// TopologicalSort runs Kahn's algorithm over dag, grouping nodes with no
// remaining unsatisfied dependency into the same wave so the engine may run
// them concurrently. Returns ErrCycleDetected if any node remains
// unresolved after all waves are exhausted.
func TopologicalSort(dag *DAG) ([][]string, error) {
	indegree := make(map[string]int, len(dag.Def.Nodes))
	for id := range dag.Def.Nodes {
		indegree[id] = len(dag.Parents[id])
	}

	var waves [][]string
	remaining := len(indegree)

	for remaining > 0 {
		var wave []string
		for id, deg := range indegree {
			if deg == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			return nil, models.ErrCycleDetected
		}
		sortStrings(wave)

		for _, id := range wave {
			delete(indegree, id)
			remaining--
			for _, child := range dag.Children[id] {
				if _, ok := indegree[child]; ok {
					indegree[child]--
				}
			}
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// FlattenWaves returns every node id in wave execution order.
func FlattenWaves(waves [][]string) []string {
	var out []string
	for _, w := range waves {
		out = append(out, w...)
	}
	return out
}

// FindLeafNodes returns nodes with no outgoing edges.
func FindLeafNodes(dag *DAG) []string {
	var leaves []string
	for id := range dag.Def.Nodes {
		if len(dag.Children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sortStrings(leaves)
	return leaves
}

// TerminalNodeID resolves which node's output is the request's final
// output, per SPEC_FULL.md §C.4: the graph's declared terminal_node if set,
// else the single leaf node, else an error if the leaves are ambiguous.
func TerminalNodeID(dag *DAG) (string, error) {
	if dag.Def.TerminalNode != "" {
		if _, ok := dag.Def.Nodes[dag.Def.TerminalNode]; !ok {
			return "", fmt.Errorf("%w: terminal_node %q", models.ErrNodeNotFound, dag.Def.TerminalNode)
		}
		return dag.Def.TerminalNode, nil
	}
	leaves := FindLeafNodes(dag)
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return "", models.ErrNoTerminalOutput
}
