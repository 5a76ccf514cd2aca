package models

import "time"

// CandidateKind is the closed set of item kinds a candidate may carry.
type CandidateKind string

const (
	KindContent CandidateKind = "content"
	KindAd      CandidateKind = "ad"
	KindProduct CandidateKind = "product"
)

// Candidate is the uniform record that flows through a recommendation DAG.
// Nodes annotate it with additional fields as it passes through recall,
// ranking, filtering, and blending; per spec it is immutable in spirit —
// downstream nodes add fields rather than rewrite existing ones, except for
// the score-promotion fields explicitly named below.
type Candidate struct {
	// Required.
	ID   int64         `json:"id"`
	Kind CandidateKind `json:"kind"`

	// Populated progressively along the pipeline.
	Title       string         `json:"title,omitempty"`
	Content     string         `json:"content,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	AuthorID    *int64         `json:"author_id,omitempty"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	MatchScore  float64        `json:"match_score,omitempty"`
	PreRankScore *float64      `json:"pre_rank_score,omitempty"`
	RankScore    *float64      `json:"rank_score,omitempty"`
	RerankScore  *float64      `json:"rerank_score,omitempty"`
	RecallType   string        `json:"recall_type,omitempty"`
	MatchedTags  []string      `json:"matched_tags,omitempty"`
	Source       string        `json:"source,omitempty"`
	Features     map[string]any `json:"features,omitempty"`
	IsSensitive  bool          `json:"is_sensitive,omitempty"`
	Popularity   float64       `json:"popularity,omitempty"`
	FinalPosition int          `json:"final_position,omitempty"`

	// Extra carries anything not otherwise named, so nodes never lose data
	// when a field hasn't been promoted to a typed one yet.
	Extra map[string]any `json:"-"`
}

// Clone returns a shallow copy of the candidate with independently
// addressable slice/map headers, so a downstream node can append without
// mutating an upstream node's view of the same candidate.
func (c *Candidate) Clone() *Candidate {
	clone := *c
	if c.Tags != nil {
		clone.Tags = append([]string(nil), c.Tags...)
	}
	if c.MatchedTags != nil {
		clone.MatchedTags = append([]string(nil), c.MatchedTags...)
	}
	if c.Features != nil {
		clone.Features = make(map[string]any, len(c.Features))
		for k, v := range c.Features {
			clone.Features[k] = v
		}
	}
	if c.Extra != nil {
		clone.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			clone.Extra[k] = v
		}
	}
	return &clone
}

// BestScore resolves the score a candidate should be shown with, preferring
// rerank > rank > pre-rank > match score, per §4.3.6.
func (c *Candidate) BestScore() float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	if c.RankScore != nil {
		return *c.RankScore
	}
	if c.PreRankScore != nil {
		return *c.PreRankScore
	}
	if c.MatchScore != 0 {
		return c.MatchScore
	}
	return 0.9
}

// SetFeature sets a named feature, creating the map lazily.
func (c *Candidate) SetFeature(key string, value any) {
	if c.Features == nil {
		c.Features = make(map[string]any)
	}
	c.Features[key] = value
}

// CloneList deep-clones a slice of candidates.
func CloneList(in []*Candidate) []*Candidate {
	out := make([]*Candidate, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// DedupeByID returns candidates with duplicate ids removed, keeping the
// first occurrence and preserving order.
func DedupeByID(in []*Candidate) []*Candidate {
	seen := make(map[int64]struct{}, len(in))
	out := make([]*Candidate, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Union concatenates candidate lists from multiple incoming edges into a
// single ordered list, deduplicating by id (first-seen wins). This is the
// "concatenated list" input assembly used for rank/filter specializations
// (SPEC_FULL.md §C.3).
func Union(lists ...[]*Candidate) []*Candidate {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]*Candidate, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	return DedupeByID(merged)
}
