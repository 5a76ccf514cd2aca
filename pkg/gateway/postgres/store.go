// Package postgres is a reference DataGateway implementation against
// Postgres using bun, per SPEC_FULL.md §C.7. The core never imports this
// package directly — only the models.DataGateway interface — matching
// spec.md §1's explicit exclusion of the relational store from the core.
package postgres

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

// itemRow is the items table row, modeled on the teacher's bun row structs
// (uptrace/bun struct-tag conventions).
type itemRow struct {
	bun.BaseModel `bun:"table:items"`

	ID          int64      `bun:",pk"`
	Kind        string     `bun:"kind"`
	Title       string     `bun:"title"`
	Description string     `bun:"description"`
	MediaURL    string     `bun:"media_url"`
	Tags        []string   `bun:"tags,array"`
	AuthorID    *int64     `bun:"author_id"`
	CreatedAt   time.Time  `bun:"created_at"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID   int64    `bun:",pk"`
	Tags []string `bun:"tags,array"`
}

type eventRow struct {
	bun.BaseModel `bun:"table:events"`

	ID        int64     `bun:",pk,autoincrement"`
	UserID    int64     `bun:"user_id"`
	ItemID    int64     `bun:"item_id"`
	Type      string    `bun:"type"`
	CreatedAt time.Time `bun:"created_at"`
}

type relationRow struct {
	bun.BaseModel `bun:"table:relations"`

	ID         int64  `bun:",pk,autoincrement"`
	FromUserID int64  `bun:"from_user_id"`
	ToItemID   int64  `bun:"to_item_id"`
	ToUserID   int64  `bun:"to_user_id"`
	Type       string `bun:"type"`
	Status     string `bun:"status"`
}

type embeddingRow struct {
	bun.BaseModel `bun:"table:user_embeddings"`

	UserID int64     `bun:",pk"`
	Vector []float64 `bun:"vector,array"`
}

type itemVectorRow struct {
	bun.BaseModel `bun:"table:item_embeddings"`

	ItemID int64     `bun:",pk"`
	Vector []float64 `bun:"vector,array"`
}

// Store is a bun-backed models.DataGateway.
type Store struct {
	db *bun.DB
}

// New wraps an already-connected *bun.DB (driver/dialect selection is the
// caller's concern; cmd/feedrecd does not construct a Store and runs on the
// in-memory gateway).
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SampleItems(ctx context.Context, kinds []models.CandidateKind, limit int, seed *int64) ([]*models.Candidate, error) {
	var rows []itemRow
	q := s.db.NewSelect().Model(&rows).Where("kind IN (?)", bun.In(kindStrings(kinds)))
	if seed != nil {
		q = q.OrderExpr("md5(id::text || ?::text)", *seed)
	} else {
		q = q.OrderExpr("random()")
	}
	if err := q.Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}
	return rowsToCandidates(rows), nil
}

func (s *Store) LoadUser(ctx context.Context, userID int64) (*models.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.User{ID: row.ID, Tags: row.Tags}, nil
}

func (s *Store) QueryItemsByTagOverlap(ctx context.Context, tags []string, kinds []models.CandidateKind, limit int) ([]*models.Candidate, error) {
	var rows []itemRow
	err := s.db.NewSelect().Model(&rows).
		Where("kind IN (?)", bun.In(kindStrings(kinds))).
		Where("tags && ?", pgArray(tags)).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rowsToCandidates(rows), nil
}

func (s *Store) PopularityByWindow(ctx context.Context, eventTypes []string, windowStart time.Time, limit int, weights models.EventWeights) ([]*models.Candidate, error) {
	type aggRow struct {
		ItemID int64   `bun:"item_id"`
		Score  float64 `bun:"score"`
	}
	var aggs []aggRow

	caseExpr := s.db.NewSelect()
	_ = caseExpr // weights are applied client-side below; keeping the query a
	// straight count-by-type avoids a dialect-specific CASE-weight SQL
	// fragment for every configurable event type.

	var counts []struct {
		ItemID int64  `bun:"item_id"`
		Type   string `bun:"type"`
		N      int64  `bun:"n"`
	}
	err := s.db.NewSelect().Model((*eventRow)(nil)).
		ColumnExpr("item_id").
		ColumnExpr("type").
		ColumnExpr("count(*) AS n").
		Where("type IN (?)", bun.In(eventTypes)).
		Where("created_at >= ?", windowStart).
		GroupExpr("item_id, type").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	scoreByItem := make(map[int64]float64)
	for _, c := range counts {
		scoreByItem[c.ItemID] += weights[c.Type] * float64(c.N)
	}
	for id, score := range scoreByItem {
		aggs = append(aggs, aggRow{ItemID: id, Score: score})
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].Score != aggs[j].Score {
			return aggs[i].Score > aggs[j].Score
		}
		return aggs[i].ItemID < aggs[j].ItemID
	})

	ids := make([]int64, 0, len(aggs))
	for _, a := range aggs {
		ids = append(ids, a.ItemID)
	}
	items, err := s.FetchItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Candidate, 0, len(aggs))
	for _, a := range aggs {
		item, ok := items[a.ItemID]
		if !ok || item.Kind != models.KindContent {
			continue
		}
		out = append(out, &models.Candidate{
			ID:         item.ID,
			Kind:       item.Kind,
			Title:      item.Title,
			Tags:       item.Tags,
			AuthorID:   item.AuthorID,
			CreatedAt:  item.CreatedAt,
			Popularity: a.Score,
		})
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LoadUserEmbedding(ctx context.Context, userID int64) ([]float64, error) {
	var row embeddingRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.Vector, nil
}

func (s *Store) NearestItems(ctx context.Context, vector []float64, metric models.DistanceMetric, limit int) ([]models.NearestItem, error) {
	// A real deployment would use pgvector's <-> / <#> operators; this
	// reference adapter hydrates vectors and ranks client-side, since
	// pgvector's custom type isn't part of the retrieved dependency pack.
	var rows []itemVectorRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]models.NearestItem, 0, len(rows))
	for _, r := range rows {
		var score float64
		if metric == models.MetricL2 {
			score = l2(vector, r.Vector)
		} else {
			score = cosine(vector, r.Vector)
		}
		out = append(out, models.NearestItem{ItemID: r.ItemID, Score: score})
	}
	sortNearest(out, metric)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MultiHopItems(ctx context.Context, userID int64, relationTypes []string, maxHops int, decay float64, limit int) (map[int64]float64, error) {
	var rows []relationRow
	err := s.db.NewSelect().Model(&rows).
		Where("type IN (?)", bun.In(relationTypes)).
		Where("status = ?", "active").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return walkHops(rows, userID, maxHops, decay, limit), nil
}

func (s *Store) QueryItemsByKind(ctx context.Context, kind models.CandidateKind, limit int) ([]*models.Candidate, error) {
	var rows []itemRow
	err := s.db.NewSelect().Model(&rows).Where("kind = ?", string(kind)).Limit(limit).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rowsToCandidates(rows), nil
}

func (s *Store) UserBlockedItems(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	var rows []relationRow
	err := s.db.NewSelect().Model(&rows).
		Where("from_user_id = ?", userID).
		Where("type = ?", "block").
		Where("status = ?", "active").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		out[r.ToItemID] = struct{}{}
	}
	return out, nil
}

func (s *Store) UserHistoryItems(ctx context.Context, userID int64, eventTypes []string, since time.Time) (map[int64]struct{}, error) {
	var rows []eventRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Where("type IN (?)", bun.In(eventTypes)).
		Where("created_at >= ?", since).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		out[r.ItemID] = struct{}{}
	}
	return out, nil
}

func (s *Store) FetchItems(ctx context.Context, ids []int64) (map[int64]*models.Item, error) {
	if len(ids) == 0 {
		return map[int64]*models.Item{}, nil
	}
	var rows []itemRow
	if err := s.db.NewSelect().Model(&rows).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, err
	}
	out := make(map[int64]*models.Item, len(rows))
	for _, r := range rows {
		out[r.ID] = &models.Item{
			ID:          r.ID,
			Kind:        models.CandidateKind(r.Kind),
			Title:       r.Title,
			Description: r.Description,
			MediaURL:    r.MediaURL,
			Tags:        r.Tags,
			AuthorID:    r.AuthorID,
			CreatedAt:   &r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) Begin(ctx context.Context) (models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &bunTx{tx: tx}, nil
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *bunTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }
