package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

func noopExecutor(spec Specialization) Executor {
	return ExecutorFunc{
		Spec: spec,
		Fn: func(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
			return nil, nil
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	ex := noopExecutor(SpecRecall)
	reg.Register("recall.random", ex)

	got, err := reg.Get("recall.random")
	require.NoError(t, err)
	assert.Equal(t, ex.Specialization(), got.Specialization())
	assert.True(t, reg.Has("recall.random"))
}

func TestRegistry_Get_UnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("not.registered")
	require.ErrorIs(t, err, models.ErrUnknownNodeType)
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register("recall.random", noopExecutor(SpecRecall))
	reg.Unregister("recall.random")
	assert.False(t, reg.Has("recall.random"))
}

func TestRegistry_List_SortedAndComplete(t *testing.T) {
	reg := NewRegistry()
	reg.Register("rank.rank", noopExecutor(SpecRank))
	reg.Register("blend.snake_merge", noopExecutor(SpecBlend))

	assert.Equal(t, []string{"blend.snake_merge", "rank.rank"}, reg.List())
}

func TestBaseExecutor_TypedConfigAccessors(t *testing.T) {
	b := BaseExecutor{}
	config := map[string]any{
		"recall_size": 20,
		"min_score":   0.7,
		"content_types": []any{"content", "ad"},
		"enabled":     true,
	}

	assert.Equal(t, 20, b.GetIntDefault(config, "recall_size", 0))
	assert.Equal(t, 0.7, b.GetFloatDefault(config, "min_score", 0))
	assert.Equal(t, []string{"content", "ad"}, b.GetStringSlice(config, "content_types"))
	assert.True(t, b.GetBoolDefault(config, "enabled", false))
	assert.Equal(t, "fallback", b.GetStringDefault(config, "missing", "fallback"))
}

func TestBaseExecutor_ValidateRequired(t *testing.T) {
	b := BaseExecutor{}
	err := b.ValidateRequired(map[string]any{"a": 1}, "a", "b")
	require.ErrorIs(t, err, models.ErrMissingConfig)

	err = b.ValidateRequired(map[string]any{"a": 1, "b": 2}, "a", "b")
	assert.NoError(t, err)
}
