package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeConfig_UnmarshalJSON_SeparatesKnownKeys(t *testing.T) {
	raw := []byte(`{"type":"recall.random","enabled":false,"recall_size":20,"seed":7}`)

	var nc NodeConfig
	require.NoError(t, json.Unmarshal(raw, &nc))

	assert.Equal(t, "recall.random", nc.Type)
	require.NotNil(t, nc.Enabled)
	assert.False(t, *nc.Enabled)
	assert.EqualValues(t, 20, nc.Config["recall_size"])
	assert.EqualValues(t, 7, nc.Config["seed"])
	assert.NotContains(t, nc.Config, "type")
	assert.NotContains(t, nc.Config, "enabled")
}

func TestNodeConfig_IsEnabled_DefaultsTrue(t *testing.T) {
	nc := &NodeConfig{Type: "recall.random"}
	assert.True(t, nc.IsEnabled())

	disabled := false
	nc.Enabled = &disabled
	assert.False(t, nc.IsEnabled())
}

func TestNodeConfig_MarshalJSON_Roundtrips(t *testing.T) {
	enabled := true
	nc := &NodeConfig{
		Type:    "filter.basic",
		Enabled: &enabled,
		Config:  map[string]any{"quality_threshold": 0.3},
	}

	data, err := json.Marshal(nc)
	require.NoError(t, err)

	var roundtripped NodeConfig
	require.NoError(t, json.Unmarshal(data, &roundtripped))
	assert.Equal(t, nc.Type, roundtripped.Type)
	assert.Equal(t, *nc.Enabled, *roundtripped.Enabled)
	assert.Equal(t, nc.Config["quality_threshold"], roundtripped.Config["quality_threshold"])
}

func TestGraphDef_Validate_RequiresEntryNodes(t *testing.T) {
	g := &GraphDef{Nodes: map[string]*NodeConfig{"a": {Type: "recall.random"}}}
	err := g.Validate()
	require.ErrorIs(t, err, ErrNoEntryNodes)
}

func TestGraphDef_Validate_DetectsDanglingEdges(t *testing.T) {
	g := &GraphDef{
		Nodes:      map[string]*NodeConfig{"a": {Type: "recall.random"}},
		EntryNodes: []string{"a"},
		Edges:      map[string][]string{"a": {"missing"}},
	}
	err := g.Validate()
	require.ErrorIs(t, err, ErrDanglingEdge)
}

func TestGraphDef_Validate_AcceptsWellFormedGraph(t *testing.T) {
	g := &GraphDef{
		Nodes: map[string]*NodeConfig{
			"a": {Type: "recall.random"},
			"b": {Type: "transform.response_format"},
		},
		EntryNodes: []string{"a"},
		Edges:      map[string][]string{"a": {"b"}},
	}
	assert.NoError(t, g.Validate())
}

func TestGraphDef_UnreachableNodes(t *testing.T) {
	g := &GraphDef{
		Nodes: map[string]*NodeConfig{
			"a":      {Type: "recall.random"},
			"b":      {Type: "transform.response_format"},
			"orphan": {Type: "filter.basic"},
		},
		EntryNodes: []string{"a"},
		Edges:      map[string][]string{"a": {"b"}},
	}
	assert.Equal(t, []string{"orphan"}, g.UnreachableNodes())
}

func TestGraphDef_IncomingEdges(t *testing.T) {
	g := &GraphDef{
		Edges: map[string][]string{
			"a": {"c"},
			"b": {"c"},
		},
	}
	sources := g.IncomingEdges("c")
	assert.ElementsMatch(t, []string{"a", "b"}, sources)
}
