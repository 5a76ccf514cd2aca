package builtin

import (
	"strconv"

	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/reqcontext"
)

// fieldValues returns the value(s) a candidate carries for a named
// diversity field. "tags" (and any field literally named "tags") expands to
// every tag; "author_id" resolves the scalar author; anything else is
// looked up in Extra as either a string or a []string.
func fieldValues(c *models.Candidate, field string) []string {
	switch field {
	case "tags":
		return c.Tags
	case "author_id":
		if c.AuthorID == nil {
			return nil
		}
		return []string{strconv.FormatInt(*c.AuthorID, 10)}
	default:
		if c.Extra == nil {
			return nil
		}
		switch v := c.Extra[field].(type) {
		case string:
			return []string{v}
		case []string:
			return v
		default:
			return nil
		}
	}
}

// defaultMaxItemsPerKey mirrors spec.md §4.3.3's {author_id:2, tags:3}.
func defaultMaxItemsPerKey() map[string]int {
	return map[string]int{"author_id": 2, "tags": 3}
}

// parseMaxItemsPerKey reads a max_items_per_key config value, falling back
// to def for any field not present. It accepts either a per-field map
// ({"author_id": 2, "tags": 3}) or a bare scalar applied uniformly to every
// field in fields, since graph authors often want one cap across the board.
// Anything else leaves def untouched but records a trace warning instead of
// silently discarding the configured value.
func parseMaxItemsPerKey(rc *reqcontext.RequestContext, raw any, fields []string, def map[string]int) map[string]int {
	out := make(map[string]int, len(def))
	for k, v := range def {
		out[k] = v
	}
	if raw == nil {
		return out
	}

	if m, ok := raw.(map[string]any); ok {
		for k, v := range m {
			if f, ok := toFloat(v); ok {
				out[k] = int(f)
			} else {
				rc.Trace.AddNodeDetail(rc.NodeID, "max_items_per_key_warning", "ignoring non-numeric cap for field "+k)
			}
		}
		return out
	}

	if f, ok := toFloat(raw); ok {
		cap := int(f)
		for _, field := range fields {
			out[field] = cap
		}
		return out
	}

	rc.Trace.AddNodeDetail(rc.NodeID, "max_items_per_key_warning", "max_items_per_key is neither a number nor a map, using defaults")
	return out
}

func parseDiversityFields(raw []string, def []string) []string {
	if len(raw) == 0 {
		return def
	}
	return raw
}
