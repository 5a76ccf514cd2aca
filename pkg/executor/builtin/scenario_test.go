package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleon1024/mini-feeds/pkg/gateway/memory"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

func int64p(v int64) *int64 { return &v }

func newScenarioContext() *reqcontext.RequestContext {
	return reqcontext.New(memory.New(), 0, 10, 0)
}

// S1: an anonymous (UserID == 0) cold-start user still gets a full random
// recall result, since random recall doesn't key off user state at all.
func TestScenario_S1_ColdStartAnonymousUserGetsRandomRecall(t *testing.T) {
	gw := memory.New()
	for id := int64(1); id <= 5; id++ {
		gw.AddItem(&models.Item{ID: id, Kind: models.KindContent})
	}
	rc := reqcontext.New(gw, 0, 10, 0)
	r := NewRandomRecall()
	out, err := r.Execute(context.Background(), rc, map[string]any{"recall_size": 5}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	for _, c := range out {
		assert.Equal(t, 0.5, c.MatchScore)
		assert.Equal(t, "random", c.RecallType)
	}
}

// S2: n_out_m keeps at most n=1 item per author within any trailing window
// of m=3 kept items, per the FIFO semantics in filter_noutm.go.
func TestScenario_S2_NOutOfMWindowsAuthorRepeats(t *testing.T) {
	authors := []int64{1, 1, 1, 2, 1, 3}
	cands := make([]*models.Candidate, len(authors))
	for i, a := range authors {
		cands[i] = &models.Candidate{ID: int64(i + 1), AuthorID: int64p(a)}
	}

	out := nOutMWindow(cands, 1, 3, "author_id")

	gotAuthors := make([]int64, len(out))
	for i, c := range out {
		gotAuthors[i] = *c.AuthorID
	}
	assert.Equal(t, []int64{1, 2, 3}, gotAuthors, "only the first occurrence of author 1 in each trailing window of 3 survives")
}

// S3: snake merge respects explicit source_order and source_weights,
// producing a deterministic interleave rather than one keyed off Go's
// randomized map iteration.
func TestScenario_S3_SnakeMergeRespectsExplicitOrderAndWeights(t *testing.T) {
	rc := newScenarioContext()
	blend := NewSnakeMergeBlend()

	sources := map[string][]*models.Candidate{
		"tag":     {{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		"popular": {{ID: 11}, {ID: 12}},
	}
	config := map[string]any{
		"output_size":    4,
		"source_order":   []any{"tag", "popular"},
		"source_weights": map[string]any{"tag": 3.0, "popular": 1.0},
	}

	out, err := blend.Execute(context.Background(), rc, config, sources)
	require.NoError(t, err)
	require.Len(t, out, 4)

	tagCount, popularCount := 0, 0
	for _, c := range out {
		switch c.Source {
		case "tag":
			tagCount++
		case "popular":
			popularCount++
		}
	}
	assert.Greater(t, tagCount, popularCount, "heavier-weighted source should claim more output slots")

	out2, err := blend.Execute(context.Background(), rc, config, sources)
	require.NoError(t, err)
	require.Len(t, out2, len(out))
	for i := range out {
		assert.Equal(t, out[i].ID, out2[i].ID, "identical config and input must produce an identical interleave")
	}
}

// S4: the diversity-aware greedy rerank spreads out candidates sharing an
// author rather than returning them all back-to-back by raw score.
func TestScenario_S4_RerankSpreadsOutRepeatedAuthor(t *testing.T) {
	rc := newScenarioContext()
	rerank := NewRerank()

	cands := []*models.Candidate{
		{ID: 1, AuthorID: int64p(1), MatchScore: 0.95},
		{ID: 2, AuthorID: int64p(1), MatchScore: 0.94},
		{ID: 3, AuthorID: int64p(1), MatchScore: 0.93},
		{ID: 4, AuthorID: int64p(2), MatchScore: 0.80},
		{ID: 5, AuthorID: int64p(3), MatchScore: 0.70},
	}
	config := map[string]any{
		"rank_size":         5,
		"diversity_weight":  1.0,
		"diversity_fields":  []any{"author_id"},
		"max_items_per_key": map[string]any{"author_id": 1},
	}

	out, err := rerank.Execute(context.Background(), rc, config, cands)
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Equal(t, int64(1), out[0].ID, "highest scoring candidate always seeds the result")
	assert.NotEqual(t, *out[1].AuthorID, *out[0].AuthorID, "the second pick must not repeat the first pick's author once its cap is reached")

	for i, c := range out {
		require.NotNil(t, c.RerankScore)
		assert.Equal(t, i+1, c.FinalPosition)
	}
}

// S5: multi-hop recall reaches an item only reachable through a followed
// user's own activity, and must not resurface items the seed user already
// liked directly.
func TestScenario_S5_MultiHopRecallReachesFollowedUsersItems(t *testing.T) {
	gw := memory.New()
	gw.AddItem(&models.Item{ID: 100, Kind: models.KindContent})
	gw.AddItem(&models.Item{ID: 200, Kind: models.KindContent})
	gw.AddRelation(memory.Relation{FromUserID: 1, ToItemID: 100, Type: "like", Status: "active"})
	gw.AddRelation(memory.Relation{FromUserID: 1, ToUserID: 2, Type: "follow", Status: "active"})
	gw.AddRelation(memory.Relation{FromUserID: 2, ToItemID: 200, Type: "like", Status: "active"})

	rc := reqcontext.New(gw, 1, 10, 0)
	recall := NewMultiHopRecall()
	out, err := recall.Execute(context.Background(), rc, map[string]any{
		"max_hops":       2,
		"hop_decay":      0.5,
		"recall_size":    10,
		"relation_types": []any{"like", "follow"},
	}, nil)
	require.NoError(t, err)

	ids := make([]int64, len(out))
	for i, c := range out {
		ids[i] = c.ID
		assert.Equal(t, "multi_hop", c.RecallType)
	}
	assert.Contains(t, ids, int64(200), "an item liked by a followed user must surface")
	assert.NotContains(t, ids, int64(100), "an item the seed user already liked directly must not resurface")
}
