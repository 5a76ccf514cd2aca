package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

func TestSampleItems_FiltersByKindAndRespectsLimit(t *testing.T) {
	g := New()
	g.AddItem(&models.Item{ID: 1, Kind: models.KindContent})
	g.AddItem(&models.Item{ID: 2, Kind: models.KindAd})
	g.AddItem(&models.Item{ID: 3, Kind: models.KindContent})

	seed := int64(1)
	out, err := g.SampleItems(context.Background(), []models.CandidateKind{models.KindContent}, 10, &seed)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, models.KindContent, c.Kind)
	}

	limited, err := g.SampleItems(context.Background(), nil, 1, &seed)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSampleItems_SameSeedIsDeterministic(t *testing.T) {
	g := New()
	for i := int64(1); i <= 10; i++ {
		g.AddItem(&models.Item{ID: i, Kind: models.KindContent})
	}
	seed := int64(42)

	a, err := g.SampleItems(context.Background(), nil, 10, &seed)
	require.NoError(t, err)
	b, err := g.SampleItems(context.Background(), nil, 10, &seed)
	require.NoError(t, err)

	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestLoadUser_ReturnsNilForUnknownUser(t *testing.T) {
	g := New()
	u, err := g.LoadUser(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestQueryItemsByTagOverlap_MatchesAnySharedTag(t *testing.T) {
	g := New()
	g.AddItem(&models.Item{ID: 1, Kind: models.KindContent, Tags: []string{"go", "news"}})
	g.AddItem(&models.Item{ID: 2, Kind: models.KindContent, Tags: []string{"sports"}})

	out, err := g.QueryItemsByTagOverlap(context.Background(), []string{"go"}, nil, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)
}

func TestPopularityByWindow_WeightsEventsAndExcludesOutsideWindow(t *testing.T) {
	g := New()
	g.AddItem(&models.Item{ID: 1, Kind: models.KindContent})
	g.AddItem(&models.Item{ID: 2, Kind: models.KindContent})
	now := time.Now()
	g.AddEvent(Event{ItemID: 1, Type: "like", CreatedAt: now})
	g.AddEvent(Event{ItemID: 2, Type: "pv", CreatedAt: now.Add(-48 * time.Hour)})

	out, err := g.PopularityByWindow(context.Background(), []string{"pv", "like"}, now.Add(-24*time.Hour), 10, models.DefaultEventWeights())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)
}

func TestUserBlockedItems_OnlyActiveBlockRelations(t *testing.T) {
	g := New()
	g.AddRelation(Relation{FromUserID: 1, ToItemID: 10, Type: "block", Status: "active"})
	g.AddRelation(Relation{FromUserID: 1, ToItemID: 20, Type: "block", Status: "revoked"})

	blocked, err := g.UserBlockedItems(context.Background(), 1)
	require.NoError(t, err)
	_, has10 := blocked[10]
	_, has20 := blocked[20]
	assert.True(t, has10)
	assert.False(t, has20)
}

func TestUserHistoryItems_RespectsEventTypeAndSinceWindow(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddEvent(Event{UserID: 1, ItemID: 1, Type: "click", CreatedAt: now})
	g.AddEvent(Event{UserID: 1, ItemID: 2, Type: "click", CreatedAt: now.Add(-10 * 24 * time.Hour)})

	seen, err := g.UserHistoryItems(context.Background(), 1, []string{"click"}, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	_, has1 := seen[1]
	_, has2 := seen[2]
	assert.True(t, has1)
	assert.False(t, has2)
}

func TestFetchItems_ReturnsOnlyKnownIDs(t *testing.T) {
	g := New()
	g.AddItem(&models.Item{ID: 1, Kind: models.KindContent, Title: "hello"})

	out, err := g.FetchItems(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[1].Title)
}

func TestNearestItems_OrdersByMetric(t *testing.T) {
	g := New()
	g.SetItemVector(1, []float64{1, 0})
	g.SetItemVector(2, []float64{0, 1})

	out, err := g.NearestItems(context.Background(), []float64{1, 0}, models.MetricCosine, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ItemID, "the vector identical to the query should rank first")
}

func TestMultiHopItems_WalksThroughFollowedUserToTheirLikedItem(t *testing.T) {
	g := New()
	g.AddRelation(Relation{FromUserID: 1, ToItemID: 100, Type: "like", Status: "active"})
	g.AddRelation(Relation{FromUserID: 1, ToUserID: 2, Type: "follow", Status: "active"})
	g.AddRelation(Relation{FromUserID: 2, ToItemID: 200, Type: "like", Status: "active"})

	out, err := g.MultiHopItems(context.Background(), 1, []string{"like", "follow"}, 2, 0.5, 10)
	require.NoError(t, err)

	w200, has200 := out[200]
	require.True(t, has200, "item liked by a user the seed user follows must surface via the 2-hop walk")
	assert.Equal(t, 0.5, w200)

	_, has100 := out[100]
	assert.False(t, has100, "items already directly liked by the user should not reappear via multi-hop")
}

func TestMultiHopItems_NoHopsBeyondMaxHopsContributeWeight(t *testing.T) {
	g := New()
	g.AddRelation(Relation{FromUserID: 1, ToUserID: 2, Type: "follow", Status: "active"})
	g.AddRelation(Relation{FromUserID: 2, ToUserID: 3, Type: "follow", Status: "active"})
	g.AddRelation(Relation{FromUserID: 3, ToItemID: 300, Type: "like", Status: "active"})

	out, err := g.MultiHopItems(context.Background(), 1, []string{"like", "follow"}, 2, 0.5, 10)
	require.NoError(t, err)
	_, has300 := out[300]
	assert.False(t, has300, "an item three hops away must not surface when max_hops is 2")
}

func TestBegin_ReturnsCommittableRollbackableTransaction(t *testing.T) {
	g := New()
	tx, err := g.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, tx.Rollback(context.Background()))
}
