package reqcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/gateway/memory"
)

func TestNew_InitializesDefaults(t *testing.T) {
	gw := memory.New()
	rc := New(gw, 7, 20, 0)

	assert.Equal(t, int64(7), rc.UserID)
	assert.Equal(t, 20, rc.Count)
	assert.NotNil(t, rc.Trace)
	assert.NotNil(t, rc.AB)
	assert.NotNil(t, rc.Inputs)
	assert.Nil(t, rc.Tx())
}

func TestSetTx_ClearTx(t *testing.T) {
	gw := memory.New()
	rc := New(gw, 1, 10, 0)

	tx, err := gw.Begin(context.Background())
	require.NoError(t, err)

	rc.SetTx(tx)
	assert.Equal(t, tx, rc.Tx())

	rc.ClearTx()
	assert.Nil(t, rc.Tx())
}

func TestForNode_SharesStateButScopesIDs(t *testing.T) {
	gw := memory.New()
	rc := New(gw, 1, 10, 0)

	scoped := rc.ForNode("feed_rec", "recall_random")
	assert.Equal(t, "feed_rec", scoped.DAGID)
	assert.Equal(t, "recall_random", scoped.NodeID)
	assert.Empty(t, rc.DAGID)
	assert.Same(t, rc.Trace, scoped.Trace)
	assert.Same(t, rc.DB, scoped.DB)
}
