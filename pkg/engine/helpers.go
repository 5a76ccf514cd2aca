package engine

import (
	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
)

// sourceName resolves the friendly name a blend node should key a parent's
// output under: the node's own "sources" config mapping parent id -> name,
// falling back to the parent node id (SPEC_FULL.md §C.5).
func sourceName(nodeConfig map[string]any, parentID string) string {
	raw, ok := nodeConfig["sources"]
	if !ok {
		return parentID
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return parentID
	}
	if v, ok := m[parentID]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return parentID
}

// assembleInput builds the input value a node of the given specialization
// should receive, from its parents' already-produced outputs
// (SPEC_FULL.md §C.3).
func assembleInput(spec executor.Specialization, node *executor.Node, parents []string, outputs map[string][]*models.Candidate) any {
	switch spec {
	case executor.SpecRecall:
		return nil

	case executor.SpecBlend:
		merged := make(map[string][]*models.Candidate, len(parents))
		for _, p := range parents {
			merged[sourceName(node.Config, p)] = outputs[p]
		}
		return merged

	case executor.SpecTransform:
		if from, ok := node.Config["input_from"].(string); ok && from != "" {
			return outputs[from]
		}
		if len(parents) == 0 {
			return nil
		}
		return outputs[parents[0]]

	default: // rank, filter
		lists := make([][]*models.Candidate, 0, len(parents))
		for _, p := range parents {
			lists = append(lists, outputs[p])
		}
		return models.Union(lists...)
	}
}
