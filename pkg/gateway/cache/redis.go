// Package cache wraps a models.DataGateway with a short-TTL Redis cache for
// its two most expensive read paths — popularity aggregates and vector
// search — per SPEC_FULL.md §B.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

// Gateway decorates an inner DataGateway, caching PopularityByWindow and
// NearestItems results keyed by their query shape.
type Gateway struct {
	models.DataGateway
	rdb *redis.Client
	ttl time.Duration
}

// New wraps inner with a Redis-backed cache using client rdb. ttl<=0 falls
// back to 30s, a sensible window for popularity/vector-search staleness at
// the ~hundred-ms request budgets spec.md targets.
func New(inner models.DataGateway, rdb *redis.Client, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Gateway{DataGateway: inner, rdb: rdb, ttl: ttl}
}

func (g *Gateway) PopularityByWindow(ctx context.Context, eventTypes []string, windowStart time.Time, limit int, weights models.EventWeights) ([]*models.Candidate, error) {
	key := fmt.Sprintf("popular:%v:%d:%d", eventTypes, windowStart.Truncate(time.Minute).Unix(), limit)

	if cached, ok := g.getCandidates(ctx, key); ok {
		return cached, nil
	}

	out, err := g.DataGateway.PopularityByWindow(ctx, eventTypes, windowStart, limit, weights)
	if err != nil {
		return nil, err
	}
	g.setCandidates(ctx, key, out)
	return out, nil
}

func (g *Gateway) NearestItems(ctx context.Context, vector []float64, metric models.DistanceMetric, limit int) ([]models.NearestItem, error) {
	key := fmt.Sprintf("nearest:%s:%d:%x", metric, limit, vector)

	if data, err := g.rdb.Get(ctx, key).Bytes(); err == nil {
		var out []models.NearestItem
		if jsonErr := json.Unmarshal(data, &out); jsonErr == nil {
			return out, nil
		}
	}

	out, err := g.DataGateway.NearestItems(ctx, vector, metric, limit)
	if err != nil {
		return nil, err
	}
	if data, jsonErr := json.Marshal(out); jsonErr == nil {
		g.rdb.Set(ctx, key, data, g.ttl)
	}
	return out, nil
}

func (g *Gateway) getCandidates(ctx context.Context, key string) ([]*models.Candidate, bool) {
	data, err := g.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var out []*models.Candidate
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (g *Gateway) setCandidates(ctx context.Context, key string, cands []*models.Candidate) {
	data, err := json.Marshal(cands)
	if err != nil {
		return
	}
	g.rdb.Set(ctx, key, data, g.ttl)
}
