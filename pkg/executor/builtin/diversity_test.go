package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/gateway/memory"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

func TestParseMaxItemsPerKey_BareScalarAppliesToEveryField(t *testing.T) {
	rc := reqcontext.New(memory.New(), 1, 10, 0)
	rc.DAGID, rc.NodeID = "feed_rec", "diversity_filter"
	rc.Trace.StartNode(rc.NodeID, "filter.diversity")

	out := parseMaxItemsPerKey(rc, float64(3), []string{"author_id", "tags"}, defaultMaxItemsPerKey())
	assert.Equal(t, 3, out["author_id"])
	assert.Equal(t, 3, out["tags"])
}

func TestParseMaxItemsPerKey_PerFieldMapStillWorks(t *testing.T) {
	rc := reqcontext.New(memory.New(), 1, 10, 0)
	rc.DAGID, rc.NodeID = "feed_rec", "diversity_filter"
	rc.Trace.StartNode(rc.NodeID, "filter.diversity")

	out := parseMaxItemsPerKey(rc, map[string]any{"author_id": float64(1)}, []string{"author_id", "tags"}, defaultMaxItemsPerKey())
	assert.Equal(t, 1, out["author_id"])
	assert.Equal(t, 3, out["tags"], "fields absent from the map keep the default")
}

func TestParseMaxItemsPerKey_UnparseableValueFallsBackAndWarns(t *testing.T) {
	rc := reqcontext.New(memory.New(), 1, 10, 0)
	rc.DAGID, rc.NodeID = "feed_rec", "diversity_filter"
	rc.Trace.StartNode(rc.NodeID, "filter.diversity")

	out := parseMaxItemsPerKey(rc, "not-a-number", []string{"author_id", "tags"}, defaultMaxItemsPerKey())
	assert.Equal(t, defaultMaxItemsPerKey(), out)

	rec, ok := rc.Trace.Node(rc.NodeID)
	require.True(t, ok)
	assert.Contains(t, rec.Details, "max_items_per_key_warning")
}
