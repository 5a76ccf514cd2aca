package postgres

import (
	"math"
	"sort"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

// kindStrings renders a CandidateKind slice as plain strings for bun.In,
// defaulting to every kind when empty (mirrors builtin.parseKinds' "all
// three kinds" convention).
func kindStrings(kinds []models.CandidateKind) []string {
	if len(kinds) == 0 {
		kinds = []models.CandidateKind{models.KindContent, models.KindAd, models.KindProduct}
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// pgArray renders a string slice as a Postgres text array literal, for use
// in a raw "&&" overlap predicate.
func pgArray(ss []string) string {
	out := "{"
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += `"` + s + `"`
	}
	return out + "}"
}

func rowsToCandidates(rows []itemRow) []*models.Candidate {
	out := make([]*models.Candidate, len(rows))
	for i, r := range rows {
		createdAt := r.CreatedAt
		out[i] = &models.Candidate{
			ID:        r.ID,
			Kind:      models.CandidateKind(r.Kind),
			Title:     r.Title,
			Tags:      r.Tags,
			AuthorID:  r.AuthorID,
			CreatedAt: &createdAt,
		}
	}
	return out
}

func cosine(a, b []float64) float64 {
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
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func l2(a, b []float64) float64 {
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

// sortNearest orders hits ascending by distance for both metrics: NearestItems
// stores cosine as a distance (1-similarity) and l2 as a raw distance, so
// "nearest" is always the smallest score for either metric.
func sortNearest(items []models.NearestItem, _ models.DistanceMetric) {
	sort.Slice(items, func(i, j int) bool { return items[i].Score < items[j].Score })
}

// walkHops replays the multi-hop aggregation spec.md §4.3.1 describes over
// relation rows already filtered to the requested types and active status,
// mirroring memory.Gateway.MultiHopItems' walk so both DataGateway
// implementations agree on semantics.
func walkHops(rows []relationRow, userID int64, maxHops int, decay float64, limit int) map[int64]float64 {
	hop1Items := make(map[int64]bool)
	for _, r := range rows {
		if r.FromUserID == userID && r.ToItemID != 0 {
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
		for _, r := range rows {
			if !frontierUsers[r.FromUserID] {
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
		return trimmed
	}
	return weights
}
