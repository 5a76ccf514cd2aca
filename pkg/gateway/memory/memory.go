// Package memory implements an in-process, deterministic-with-seed
// DataGateway used by unit tests and as a reference for the façade's
// fallback path, per SPEC_FULL.md §C.7.
package memory

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

// Event is one recorded user/item interaction, used to back
// PopularityByWindow and UserHistoryItems.
type Event struct {
	UserID    int64
	ItemID    int64
	Type      string
	CreatedAt time.Time
}

// Relation is a directed edge between two entities (user->item block/like,
// user->user follow, etc.), used to back UserBlockedItems and MultiHopItems.
type Relation struct {
	FromUserID int64
	ToItemID   int64
	ToUserID   int64
	Type       string
	Status     string
}

// Gateway is a fully in-memory models.DataGateway. Safe for concurrent use.
type Gateway struct {
	mu sync.RWMutex

	items      map[int64]*models.Item
	users      map[int64]*models.User
	events     []Event
	relations  []Relation
	embeddings map[int64][]float64
	itemVecs   map[int64][]float64
}

// New builds an empty Gateway.
func New() *Gateway {
	return &Gateway{
		items:      make(map[int64]*models.Item),
		users:      make(map[int64]*models.User),
		embeddings: make(map[int64][]float64),
		itemVecs:   make(map[int64][]float64),
	}
}

// AddItem registers an item row.
func (g *Gateway) AddItem(item *models.Item) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items[item.ID] = item
}

// AddUser registers a user profile.
func (g *Gateway) AddUser(u *models.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[u.ID] = u
}

// AddEvent records an interaction event.
func (g *Gateway) AddEvent(e Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, e)
}

// AddRelation records a relation edge.
func (g *Gateway) AddRelation(r Relation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.relations = append(g.relations, r)
}

// SetUserEmbedding stores a user's embedding vector.
func (g *Gateway) SetUserEmbedding(userID int64, vec []float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.embeddings[userID] = vec
}

// SetItemVector stores an item's embedding vector for nearest-neighbor search.
func (g *Gateway) SetItemVector(itemID int64, vec []float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.itemVecs[itemID] = vec
}

func (g *Gateway) SampleItems(ctx context.Context, kinds []models.CandidateKind, limit int, seed *int64) ([]*models.Candidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := kindSet(kinds)
	var pool []*models.Item
	for _, item := range g.items {
		if set[item.Kind] {
			pool = append(pool, item)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewSource(*seed))
	} else {
		rng = rand.New(rand.NewSource(int64(len(pool) + 1)))
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if limit >= 0 && limit < len(pool) {
		pool = pool[:limit]
	}
	return itemsToCandidates(pool), nil
}

func (g *Gateway) LoadUser(ctx context.Context, userID int64) (*models.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[userID]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (g *Gateway) QueryItemsByTagOverlap(ctx context.Context, tags []string, kinds []models.CandidateKind, limit int) ([]*models.Candidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := kindSet(kinds)
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}

	var pool []*models.Item
	for _, item := range g.items {
		if !set[item.Kind] {
			continue
		}
		for _, t := range item.Tags {
			if wanted[t] {
				pool = append(pool, item)
				break
			}
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	if limit >= 0 && limit < len(pool) {
		pool = pool[:limit]
	}
	return itemsToCandidates(pool), nil
}

func (g *Gateway) PopularityByWindow(ctx context.Context, eventTypes []string, windowStart time.Time, limit int, weights models.EventWeights) ([]*models.Candidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		wanted[t] = true
	}

	scores := make(map[int64]float64)
	for _, e := range g.events {
		if !wanted[e.Type] || e.CreatedAt.Before(windowStart) {
			continue
		}
		scores[e.ItemID] += weights[e.Type]
	}

	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for id, s := range scores {
		item, ok := g.items[id]
		if !ok || item.Kind != models.KindContent {
			continue
		}
		ranked = append(ranked, scored{id: id, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if limit >= 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	out := make([]*models.Candidate, 0, len(ranked))
	for _, r := range ranked {
		item := g.items[r.id]
		out = append(out, &models.Candidate{
			ID:         item.ID,
			Kind:       item.Kind,
			Title:      item.Title,
			Tags:       item.Tags,
			AuthorID:   item.AuthorID,
			CreatedAt:  item.CreatedAt,
			Popularity: r.score,
		})
	}
	return out, nil
}

func (g *Gateway) LoadUserEmbedding(ctx context.Context, userID int64) ([]float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	vec, ok := g.embeddings[userID]
	if !ok {
		return nil, nil
	}
	return append([]float64(nil), vec...), nil
}

func (g *Gateway) NearestItems(ctx context.Context, vector []float64, metric models.DistanceMetric, limit int) ([]models.NearestItem, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, 0, len(g.itemVecs))
	for id, vec := range g.itemVecs {
		var score float64
		switch metric {
		case models.MetricL2:
			score = l2Distance(vector, vec)
		default:
			score = cosineDistance(vector, vec)
		}
		ranked = append(ranked, scored{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if limit >= 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	out := make([]models.NearestItem, len(ranked))
	for i, r := range ranked {
		out[i] = models.NearestItem{ItemID: r.id, Score: r.score}
	}
	return out, nil
}

func (g *Gateway) MultiHopItems(ctx context.Context, userID int64, relationTypes []string, maxHops int, decay float64, limit int) (map[int64]float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[string]bool, len(relationTypes))
	for _, t := range relationTypes {
		wanted[t] = true
	}

	hop1Items := make(map[int64]bool)
	for _, r := range g.relations {
		if r.FromUserID == userID && wanted[r.Type] && r.Status == "active" && r.ToItemID != 0 {
			hop1Items[r.ToItemID] = true
		}
	}

	weights := make(map[int64]float64)
	frontierUsers := map[int64]bool{userID: true}
	seenUsers := map[int64]bool{userID: true}
	weight := 1.0

	// Each relation row is either a user->item edge (ToItemID set) or a
	// user->user edge (ToUserID set); which one a row is determines
	// whether it contributes a weighted item or extends the walk to
	// another user, independent of which hop we're on.
	for hop := 1; hop <= maxHops; hop++ {
		nextUsers := make(map[int64]bool)
		for _, r := range g.relations {
			if !wanted[r.Type] || r.Status != "active" || !frontierUsers[r.FromUserID] {
				continue
			}
			if r.ToItemID != 0 {
				if hop > 1 {
					weights[r.ToItemID] += weight
				}
				continue
			}
			if r.ToUserID != 0 && !seenUsers[r.ToUserID] {
				nextUsers[r.ToUserID] = true
				seenUsers[r.ToUserID] = true
			}
		}
		frontierUsers = nextUsers
		weight *= decay
	}

	for id := range hop1Items {
		delete(weights, id)
	}

	if limit >= 0 && len(weights) > limit {
		type scored struct {
			id int64
			w  float64
		}
		ranked := make([]scored, 0, len(weights))
		for id, w := range weights {
			ranked = append(ranked, scored{id, w})
		}
		sort.Slice(ranked, func(i, j int) bool { return ranked[i].w > ranked[j].w })
		ranked = ranked[:limit]
		trimmed := make(map[int64]float64, limit)
		for _, r := range ranked {
			trimmed[r.id] = r.w
		}
		return trimmed, nil
	}
	return weights, nil
}

func (g *Gateway) QueryItemsByKind(ctx context.Context, kind models.CandidateKind, limit int) ([]*models.Candidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var pool []*models.Item
	for _, item := range g.items {
		if item.Kind == kind {
			pool = append(pool, item)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	if limit >= 0 && limit < len(pool) {
		pool = pool[:limit]
	}
	return itemsToCandidates(pool), nil
}

func (g *Gateway) UserBlockedItems(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[int64]struct{})
	for _, r := range g.relations {
		if r.FromUserID == userID && r.Type == "block" && r.Status == "active" {
			out[r.ToItemID] = struct{}{}
		}
	}
	return out, nil
}

func (g *Gateway) UserHistoryItems(ctx context.Context, userID int64, eventTypes []string, since time.Time) (map[int64]struct{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		wanted[t] = true
	}

	out := make(map[int64]struct{})
	for _, e := range g.events {
		if e.UserID == userID && wanted[e.Type] && !e.CreatedAt.Before(since) {
			out[e.ItemID] = struct{}{}
		}
	}
	return out, nil
}

func (g *Gateway) FetchItems(ctx context.Context, ids []int64) (map[int64]*models.Item, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[int64]*models.Item, len(ids))
	for _, id := range ids {
		if item, ok := g.items[id]; ok {
			clone := *item
			out[id] = &clone
		}
	}
	return out, nil
}

func (g *Gateway) Begin(ctx context.Context) (models.Transaction, error) {
	return &memTx{}, nil
}

// memTx is a no-op transaction: the in-memory store has no write path that
// needs staging, but the façade's rollback contract (spec.md §5) still
// needs a handle to call.
type memTx struct{}

func (t *memTx) Commit(ctx context.Context) error   { return nil }
func (t *memTx) Rollback(ctx context.Context) error { return nil }

func kindSet(kinds []models.CandidateKind) map[models.CandidateKind]bool {
	if len(kinds) == 0 {
		return map[models.CandidateKind]bool{
			models.KindContent: true,
			models.KindAd:      true,
			models.KindProduct: true,
		}
	}
	set := make(map[models.CandidateKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

func itemsToCandidates(items []*models.Item) []*models.Candidate {
	out := make([]*models.Candidate, len(items))
	for i, item := range items {
		out[i] = &models.Candidate{
			ID:        item.ID,
			Kind:      item.Kind,
			Title:     item.Title,
			Tags:      item.Tags,
			AuthorID:  item.AuthorID,
			CreatedAt: item.CreatedAt,
		}
	}
	return out
}

func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cos
}

func l2Distance(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
