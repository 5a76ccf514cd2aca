package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

func defTwoEntryDiamond() *models.GraphDef {
	return &models.GraphDef{
		Nodes: map[string]*models.NodeConfig{
			"a": {Type: "recall.random"},
			"b": {Type: "recall.tag"},
			"c": {Type: "blend.snake_merge"},
			"d": {Type: "rank.rank"},
		},
		EntryNodes: []string{"a", "b"},
		Edges: map[string][]string{
			"a": {"c"},
			"b": {"c"},
			"c": {"d"},
		},
	}
}

func TestTopologicalSort_GroupsIntoWaves(t *testing.T) {
	dag := BuildDAG(defTwoEntryDiamond())
	waves, err := TopologicalSort(dag)
	require.NoError(t, err)

	require.Len(t, waves, 3)
	assert.ElementsMatch(t, []string{"a", "b"}, waves[0])
	assert.Equal(t, []string{"c"}, waves[1])
	assert.Equal(t, []string{"d"}, waves[2])
}

func TestTopologicalSort_DetectsCycle(t *testing.T) {
	def := &models.GraphDef{
		Nodes: map[string]*models.NodeConfig{
			"a": {Type: "recall.random"},
			"b": {Type: "rank.rank"},
		},
		EntryNodes: []string{"a"},
		Edges: map[string][]string{
			"a": {"b"},
			"b": {"a"},
		},
	}
	dag := BuildDAG(def)
	_, err := TopologicalSort(dag)
	require.ErrorIs(t, err, models.ErrCycleDetected)
}

func TestFlattenWaves(t *testing.T) {
	waves := [][]string{{"a", "b"}, {"c"}}
	assert.Equal(t, []string{"a", "b", "c"}, FlattenWaves(waves))
}

func TestFindLeafNodes(t *testing.T) {
	dag := BuildDAG(defTwoEntryDiamond())
	assert.Equal(t, []string{"d"}, FindLeafNodes(dag))
}

func TestTerminalNodeID_PrefersDeclaredTerminal(t *testing.T) {
	def := defTwoEntryDiamond()
	def.TerminalNode = "c"
	dag := BuildDAG(def)

	id, err := TerminalNodeID(dag)
	require.NoError(t, err)
	assert.Equal(t, "c", id)
}

func TestTerminalNodeID_FallsBackToSingleLeaf(t *testing.T) {
	dag := BuildDAG(defTwoEntryDiamond())
	id, err := TerminalNodeID(dag)
	require.NoError(t, err)
	assert.Equal(t, "d", id)
}

func TestTerminalNodeID_ErrorsOnAmbiguousLeaves(t *testing.T) {
	def := &models.GraphDef{
		Nodes: map[string]*models.NodeConfig{
			"a": {Type: "recall.random"},
			"b": {Type: "transform.response_format"},
			"c": {Type: "transform.response_format"},
		},
		EntryNodes: []string{"a"},
		Edges: map[string][]string{
			"a": {"b", "c"},
		},
	}
	dag := BuildDAG(def)
	_, err := TerminalNodeID(dag)
	require.ErrorIs(t, err, models.ErrNoTerminalOutput)
}

func TestTerminalNodeID_ErrorsWhenDeclaredNodeMissing(t *testing.T) {
	def := defTwoEntryDiamond()
	def.TerminalNode = "nonexistent"
	dag := BuildDAG(def)

	_, err := TerminalNodeID(dag)
	require.ErrorIs(t, err, models.ErrNodeNotFound)
}
