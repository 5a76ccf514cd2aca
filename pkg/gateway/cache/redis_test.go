package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/gateway/memory"
	"github.com/kleon1024/mini-feeds/pkg/models"
)

func newTestGateway(t *testing.T) (*Gateway, *memory.Gateway) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := memory.New()
	return New(inner, rdb, time.Minute), inner
}

func TestPopularityByWindowCaches(t *testing.T) {
	g, inner := newTestGateway(t)
	now := time.Now()

	inner.AddItem(&models.Item{ID: 1, Kind: models.KindContent})
	inner.AddEvent(memory.Event{ItemID: 1, Type: "like", CreatedAt: now})

	ctx := context.Background()
	weights := models.DefaultEventWeights()

	first, err := g.PopularityByWindow(ctx, []string{"like"}, now.Add(-time.Hour), 10, weights)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Mutate the underlying store; a cache hit should still return the
	// stale, previously-cached result within the TTL window.
	inner.AddEvent(memory.Event{ItemID: 2, Type: "like", CreatedAt: now})
	inner.AddItem(&models.Item{ID: 2, Kind: models.KindContent})

	second, err := g.PopularityByWindow(ctx, []string{"like"}, now.Add(-time.Hour), 10, weights)
	require.NoError(t, err)
	require.Len(t, second, 1, "expected cached result, not the freshly mutated store")
}

func TestNearestItemsCaches(t *testing.T) {
	g, inner := newTestGateway(t)
	inner.SetItemVector(1, []float64{1, 0})

	ctx := context.Background()
	out, err := g.NearestItems(ctx, []float64{1, 0}, models.MetricCosine, 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].ItemID)

	// A second item added after the first call stays invisible while the
	// cached result is within its TTL.
	inner.SetItemVector(2, []float64{1, 0})

	second, err := g.NearestItems(ctx, []float64{1, 0}, models.MetricCosine, 5)
	require.NoError(t, err)
	require.Len(t, second, 1, "expected cached result, not the freshly mutated store")
}
