package models

import (
	"context"
	"time"
)

// User is the subset of a user profile the pipeline core needs.
type User struct {
	ID   int64    `json:"id"`
	Tags []string `json:"tags,omitempty"`
}

// NearestItem is one hit from a vector nearest-neighbor search. Score is a
// distance under the metric used: cosine distance (1 - cosine similarity)
// or raw l2 distance; smaller means nearer.
type NearestItem struct {
	ItemID int64
	Score  float64
}

// DistanceMetric selects the vector search metric.
type DistanceMetric string

const (
	MetricCosine DistanceMetric = "cosine"
	MetricL2     DistanceMetric = "l2"
)

// EventWeights maps an event type to its popularity weight (§4.3.1 popular recall).
type EventWeights map[string]float64

// DefaultEventWeights mirrors spec.md §4.3.1's defaults.
func DefaultEventWeights() EventWeights {
	return EventWeights{
		"pv":       1,
		"like":     3,
		"comment":  5,
		"share":    7,
		"favorite": 10,
	}
}

// Item is a hydrated content/ad/product row used to fill out a FeedItem.
type Item struct {
	ID          int64
	Kind        CandidateKind
	Title       string
	Description string
	MediaURL    string
	Tags        []string
	AuthorID    *int64
	CreatedAt   *time.Time
}

// Transaction is the lifecycle handle for the per-request open transaction
// described in spec.md §5: at most one open transaction per request, always
// rolled back on node error, never reused across a rollback.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DataGateway is the narrow capability interface the pipeline core consumes
// from the store/adapter layer (spec.md §6.2). Every operation is
// cancellable via ctx. Implementations live under pkg/gateway/*.
type DataGateway interface {
	// SampleItems returns a random sample, optionally seeded for determinism.
	SampleItems(ctx context.Context, kinds []CandidateKind, limit int, seed *int64) ([]*Candidate, error)

	// LoadUser returns the user's profile, or (nil, nil) if not found.
	LoadUser(ctx context.Context, userID int64) (*User, error)

	// QueryItemsByTagOverlap returns items whose tag set intersects tags.
	QueryItemsByTagOverlap(ctx context.Context, tags []string, kinds []CandidateKind, limit int) ([]*Candidate, error)

	// PopularityByWindow returns top-N content items scored by weighted
	// event counts since windowStart.
	PopularityByWindow(ctx context.Context, eventTypes []string, windowStart time.Time, limit int, weights EventWeights) ([]*Candidate, error)

	// LoadUserEmbedding returns the user's embedding vector, or (nil, nil).
	LoadUserEmbedding(ctx context.Context, userID int64) ([]float64, error)

	// NearestItems runs a k-NN search in the item embedding store.
	NearestItems(ctx context.Context, vector []float64, metric DistanceMetric, limit int) ([]NearestItem, error)

	// MultiHopItems aggregates item weights reachable via a user->item->user->item
	// relation walk of the given types, up to maxHops, decaying by decay per hop.
	MultiHopItems(ctx context.Context, userID int64, relationTypes []string, maxHops int, decay float64, limit int) (map[int64]float64, error)

	// QueryItemsByKind lists items of a single kind (ad/product recall).
	QueryItemsByKind(ctx context.Context, kind CandidateKind, limit int) ([]*Candidate, error)

	// UserBlockedItems returns the set of item ids the user has blocked.
	UserBlockedItems(ctx context.Context, userID int64) (map[int64]struct{}, error)

	// UserHistoryItems returns the set of item ids the user touched with any
	// of eventTypes since the given time.
	UserHistoryItems(ctx context.Context, userID int64, eventTypes []string, since time.Time) (map[int64]struct{}, error)

	// FetchItems hydrates full item rows for response formatting.
	FetchItems(ctx context.Context, ids []int64) (map[int64]*Item, error)

	// Begin opens a transaction scoped to the current request.
	Begin(ctx context.Context) (Transaction, error)
}
