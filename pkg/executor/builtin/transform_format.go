package builtin

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// FeedItem is the wire shape produced by ResponseFormat, per spec.md §6.3.
type FeedItem struct {
	Type     string         `json:"type"`
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Position int            `json:"position"`
	Reason   string         `json:"reason,omitempty"`
	Tracking *Tracking      `json:"tracking,omitempty"`
	Content  map[string]any `json:"content,omitempty"`
	Ad       map[string]any `json:"ad,omitempty"`
	Product  map[string]any `json:"product,omitempty"`
}

// Tracking carries the per-impression identifiers spec.md §4.3.6 names.
type Tracking struct {
	EventToken string `json:"event_token"`
	TraceID    string `json:"trace_id"`
}

var recallReasons = map[string]string{
	"popular":   "热门推荐",
	"vector":    "与你喜欢的内容相似",
	"multi_hop": "你可能感兴趣的发现",
	"random":    "随机推荐",
	"ad":        "根据你的兴趣推荐",
	"product":   "根据你的兴趣推荐",
}

// ResponseFormat turns each ranked candidate into a FeedItem, per
// spec.md §4.3.6. Item hydration for kind=content is batched into a single
// FetchItems call per the Design Notes' batch-hydrate contract, rather than
// one fetch per candidate.
type ResponseFormat struct {
	executor.BaseExecutor
}

func NewResponseFormat() *ResponseFormat { return &ResponseFormat{} }

func (r *ResponseFormat) Specialization() executor.Specialization { return executor.SpecTransform }

func (r *ResponseFormat) Validate(config map[string]any) error { return nil }

func (r *ResponseFormat) Execute(ctx context.Context, rc *reqcontext.RequestContext, config map[string]any, input any) ([]*models.Candidate, error) {
	cands, _ := input.([]*models.Candidate)
	includeTracking := r.GetBoolDefault(config, "include_tracking", true)
	generateReason := r.GetBoolDefault(config, "generate_reason", true)
	preservePosition := r.GetBoolDefault(config, "preserve_position", false)

	contentIDs := make([]int64, 0, len(cands))
	for _, c := range cands {
		if c.Kind == models.KindContent {
			contentIDs = append(contentIDs, c.ID)
		}
	}
	var hydrated map[int64]*models.Item
	if len(contentIDs) > 0 {
		var err error
		hydrated, err = rc.DB.FetchItems(ctx, contentIDs)
		if err != nil {
			return nil, err
		}
	}

	items := make([]*FeedItem, 0, len(cands))
	for i, c := range cands {
		position := i + 1
		if preservePosition && c.FinalPosition != 0 {
			position = c.FinalPosition
		}
		item := &FeedItem{
			Type:     string(c.Kind),
			ID:       strconv.FormatInt(c.ID, 10),
			Score:    c.BestScore(),
			Position: position,
		}

		if includeTracking {
			item.Tracking = &Tracking{
				EventToken: uuid.NewString(),
				TraceID:    rc.Trace.TraceID,
			}
		}

		if generateReason {
			item.Reason = reasonFor(c)
		}

		switch c.Kind {
		case models.KindContent:
			item.Content = contentPayload(c, hydrated[c.ID])
		case models.KindAd:
			item.Ad = candidatePayload(c)
		case models.KindProduct:
			item.Product = candidatePayload(c)
		}

		items = append(items, item)
		c.SetFeature("formatted", item)
		c.FinalPosition = item.Position
	}

	return cands, nil
}

func reasonFor(c *models.Candidate) string {
	if c.RecallType == "tag" && len(c.MatchedTags) > 0 {
		return "基于你感兴趣的" + c.MatchedTags[0]
	}
	if reason, ok := recallReasons[c.RecallType]; ok {
		return reason
	}
	return "根据你的兴趣推荐"
}

func contentPayload(c *models.Candidate, item *models.Item) map[string]any {
	if item != nil {
		return map[string]any{
			"title":       item.Title,
			"description": item.Description,
			"media_url":   item.MediaURL,
			"tags":        item.Tags,
			"author_id":   item.AuthorID,
		}
	}
	return map[string]any{
		"title": c.Title,
		"tags":  c.Tags,
	}
}

// candidatePayload renders the ad/product wire payload directly from the
// candidate — ad/product rows don't carry the description/media fields
// content hydration does, per spec.md §6.3's content?|ad?|product? shape.
func candidatePayload(c *models.Candidate) map[string]any {
	return map[string]any{
		"id":    c.ID,
		"title": c.Title,
		"tags":  c.Tags,
	}
}
