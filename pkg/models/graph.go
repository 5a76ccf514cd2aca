package models

import (
	"encoding/json"
	"fmt"
)

// NodeConfig is the JSON-declared configuration for a single graph node.
// Type is a symbolic reference resolved through the executor registry
// (SPEC_FULL.md §C.1) rather than a dotted class path.
type NodeConfig struct {
	Type    string         `json:"type"`
	Enabled *bool          `json:"enabled,omitempty"`
	Config  map[string]any `json:"-"`
}

// IsEnabled returns the effective enabled flag, defaulting to true.
func (n *NodeConfig) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// UnmarshalJSON extracts the well-known type/enabled keys and stashes every
// remaining implementation-specific key in Config, so node constructors can
// read their own options without the graph schema knowing about them.
func (n *NodeConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if t, ok := raw["type"].(string); ok {
		n.Type = t
	}
	delete(raw, "type")

	if e, ok := raw["enabled"]; ok {
		b, isBool := e.(bool)
		if isBool {
			n.Enabled = &b
		}
		delete(raw, "enabled")
	}

	n.Config = raw
	return nil
}

// MarshalJSON re-flattens Config alongside type/enabled.
func (n *NodeConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Config)+2)
	for k, v := range n.Config {
		out[k] = v
	}
	out["type"] = n.Type
	if n.Enabled != nil {
		out["enabled"] = *n.Enabled
	}
	return json.Marshal(out)
}

// GraphDef is a static, JSON-loaded description of one recommendation DAG.
// Filename stem (without extension) is conventionally used as the graph id
// by the loader; the id is not itself part of the JSON document.
type GraphDef struct {
	ID           string                 `json:"-"`
	Nodes        map[string]*NodeConfig `json:"nodes"`
	Edges        map[string][]string    `json:"edges"`
	EntryNodes   []string               `json:"entry_nodes"`
	TerminalNode string                 `json:"terminal_node,omitempty"`
	DAG          map[string]any         `json:"dag,omitempty"`
}

// Validate checks the structural invariants from spec.md §3.1:
//   - every edge endpoint (source and target) exists in nodes
//   - at least one entry node
//   - nodes unreferenced by edges/entry_nodes are tolerated and not reported
//     here (UnreachableNodes lists them)
func (g *GraphDef) Validate() error {
	if len(g.EntryNodes) == 0 {
		return ErrNoEntryNodes
	}

	for _, id := range g.EntryNodes {
		if _, ok := g.Nodes[id]; !ok {
			return fmt.Errorf("%w: entry node %q", ErrDanglingEdge, id)
		}
	}

	for src, targets := range g.Edges {
		if _, ok := g.Nodes[src]; !ok {
			return fmt.Errorf("%w: edge source %q", ErrDanglingEdge, src)
		}
		for _, tgt := range targets {
			if _, ok := g.Nodes[tgt]; !ok {
				return fmt.Errorf("%w: edge target %q (from %q)", ErrDanglingEdge, tgt, src)
			}
		}
	}

	return nil
}

// UnreachableNodes returns node ids declared in Nodes but absent from both
// Edges (as source or target) and EntryNodes — tolerated but worth a
// load-time warning per spec.md §3.1.
func (g *GraphDef) UnreachableNodes() []string {
	reachable := make(map[string]bool, len(g.Nodes))
	for _, id := range g.EntryNodes {
		reachable[id] = true
	}
	for src, targets := range g.Edges {
		reachable[src] = true
		for _, tgt := range targets {
			reachable[tgt] = true
		}
	}

	var unreachable []string
	for id := range g.Nodes {
		if !reachable[id] {
			unreachable = append(unreachable, id)
		}
	}
	return unreachable
}

// IncomingEdges returns the ids of every node with an edge into target.
func (g *GraphDef) IncomingEdges(target string) []string {
	var sources []string
	for src, targets := range g.Edges {
		for _, tgt := range targets {
			if tgt == target {
				sources = append(sources, src)
			}
		}
	}
	return sources
}
