// Package trace implements the per-request structured trace recorder
// described in spec.md §3.4 and §4.1: node lifecycle, errors, and custom
// details, safe for concurrent mutation by multiple nodes within one
// request (but never shared across requests).
package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kleon1024/mini-feeds/pkg/models"
)

// NodeTrace is the per-node record held inside a TraceInfo.
type NodeTrace struct {
	NodeID      string
	TypeName    string
	StartedAt   time.Time
	EndedAt     time.Time
	Status      models.NodeExecStatus
	InputCount  int
	OutputCount int
	Details     map[string]any
}

// TraceError is one entry in a trace's error list. A node may accumulate
// more than one.
type TraceError struct {
	Time    time.Time
	NodeID  string
	Kind    string
	Message string
}

// TraceInfo is the live, per-request trace. Created once at pipeline entry
// (or reused if the caller supplied one), completed exactly once with a
// terminal status, after which mutation is undefined.
type TraceInfo struct {
	TraceID   string
	StartedAt time.Time
	EndedAt   *time.Time
	UserID    *int64
	Status    models.TraceStatus

	mu     sync.Mutex
	nodes  map[string]*NodeTrace
	errors []TraceError
}

// New creates a TraceInfo with a fresh trace id.
func New() *TraceInfo {
	return &TraceInfo{
		TraceID:   uuid.New().String(),
		StartedAt: time.Now(),
		Status:    models.TraceStatusRunning,
		nodes:     make(map[string]*NodeTrace),
	}
}

// SetUser records the user the request belongs to, if resolvable.
func (t *TraceInfo) SetUser(userID *int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.UserID = userID
}

// StartNode registers a running record for nodeID, overwriting any prior
// record for that id — per spec.md §4.1, re-entry is not supported.
func (t *TraceInfo) StartNode(nodeID, typeName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[nodeID] = &NodeTrace{
		NodeID:    nodeID,
		TypeName:  typeName,
		StartedAt: time.Now(),
		Status:    models.NodeStatusRunning,
		Details:   make(map[string]any),
	}
}

// EndNode stamps end time and status. No-ops if StartNode was never called
// for this id.
func (t *TraceInfo) EndNode(nodeID string, status models.NodeExecStatus, outputCount int, details map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.nodes[nodeID]
	if !ok {
		return
	}
	rec.EndedAt = time.Now()
	rec.Status = status
	rec.OutputCount = outputCount
	for k, v := range details {
		rec.Details[k] = v
	}
}

// SetNodeInputCount records the input size for a running or completed node.
func (t *TraceInfo) SetNodeInputCount(nodeID string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.nodes[nodeID]; ok {
		rec.InputCount = count
	}
}

// AddNodeDetail attaches a custom key/value to a node's trace record.
// No-op if the node hasn't been started.
func (t *TraceInfo) AddNodeDetail(nodeID, key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.nodes[nodeID]
	if !ok {
		return
	}
	if rec.Details == nil {
		rec.Details = make(map[string]any)
	}
	rec.Details[key] = value
}

// AddError appends an error entry and transitions the node to status error.
// A node may accumulate multiple error entries across retries/sub-steps.
func (t *TraceInfo) AddError(nodeID, message, kind string) {
	if kind == "" {
		kind = "node_error"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, TraceError{
		Time:    time.Now(),
		NodeID:  nodeID,
		Kind:    kind,
		Message: message,
	})
	if rec, ok := t.nodes[nodeID]; ok {
		rec.Status = models.NodeStatusError
	}
}

// Complete finalizes the trace with a terminal status. Subsequent mutation
// is undefined, per spec.md §3.4.
func (t *TraceInfo) Complete(status models.TraceStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.EndedAt = &now
	t.Status = status
}

// Node returns a copy of a node's trace record, if present.
func (t *TraceInfo) Node(nodeID string) (NodeTrace, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.nodes[nodeID]
	if !ok {
		return NodeTrace{}, false
	}
	return *rec, true
}

// Errors returns a snapshot of the accumulated error list.
func (t *TraceInfo) Errors() []TraceError {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceError, len(t.errors))
	copy(out, t.errors)
	return out
}

// ToDict serializes the trace into a plain map, suitable for embedding in an
// API response. Timestamps are formatted as RFC3339; round-tripping through
// ToDict then FromDict preserves every other field per spec.md §8.
func (t *TraceInfo) ToDict() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodeDicts := make(map[string]any, len(t.nodes))
	for id, rec := range t.nodes {
		d := map[string]any{
			"node_id":      rec.NodeID,
			"type":         rec.TypeName,
			"start_time":   rec.StartedAt.Format(time.RFC3339Nano),
			"status":       string(rec.Status),
			"input_count":  rec.InputCount,
			"output_count": rec.OutputCount,
			"details":      rec.Details,
		}
		if !rec.EndedAt.IsZero() {
			d["end_time"] = rec.EndedAt.Format(time.RFC3339Nano)
		}
		nodeDicts[id] = d
	}

	errDicts := make([]map[string]any, len(t.errors))
	for i, e := range t.errors {
		errDicts[i] = map[string]any{
			"time":    e.Time.Format(time.RFC3339Nano),
			"node_id": e.NodeID,
			"kind":    e.Kind,
			"message": e.Message,
		}
	}

	global := map[string]any{
		"status": string(t.Status),
	}
	if t.UserID != nil {
		global["user_id"] = *t.UserID
	}

	out := map[string]any{
		"trace_id":   t.TraceID,
		"start_time": t.StartedAt.Format(time.RFC3339Nano),
		"nodes":      nodeDicts,
		"errors":     errDicts,
		"global":     global,
	}
	if t.EndedAt != nil {
		out["end_time"] = t.EndedAt.Format(time.RFC3339Nano)
	}
	return out
}

// FromDict reconstructs a TraceInfo from a map previously produced by
// ToDict, preserving every field except timestamp precision (parsed back
// from the same RFC3339Nano format ToDict writes), per spec.md §8's
// trace-serialization round-trip law.
func FromDict(d map[string]any) *TraceInfo {
	t := &TraceInfo{
		nodes: make(map[string]*NodeTrace),
	}
	if v, ok := d["trace_id"].(string); ok {
		t.TraceID = v
	}
	if v, ok := d["start_time"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			t.StartedAt = ts
		}
	}
	if v, ok := d["end_time"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			t.EndedAt = &ts
		}
	}
	if global, ok := d["global"].(map[string]any); ok {
		if v, ok := global["status"].(string); ok {
			t.Status = models.TraceStatus(v)
		}
		if v, ok := global["user_id"]; ok {
			if id, ok := toInt64(v); ok {
				t.UserID = &id
			}
		}
	}
	if nodes, ok := d["nodes"].(map[string]any); ok {
		for id, raw := range nodes {
			nd, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			rec := &NodeTrace{NodeID: id}
			if v, ok := nd["node_id"].(string); ok {
				rec.NodeID = v
			}
			if v, ok := nd["type"].(string); ok {
				rec.TypeName = v
			}
			if v, ok := nd["status"].(string); ok {
				rec.Status = models.NodeExecStatus(v)
			}
			if v, ok := nd["start_time"].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
					rec.StartedAt = ts
				}
			}
			if v, ok := nd["end_time"].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
					rec.EndedAt = ts
				}
			}
			if v, ok := nd["input_count"]; ok {
				if n, ok := toInt64(v); ok {
					rec.InputCount = int(n)
				}
			}
			if v, ok := nd["output_count"]; ok {
				if n, ok := toInt64(v); ok {
					rec.OutputCount = int(n)
				}
			}
			if v, ok := nd["details"].(map[string]any); ok {
				rec.Details = v
			} else {
				rec.Details = make(map[string]any)
			}
			t.nodes[id] = rec
		}
	}
	if errs, ok := d["errors"].([]map[string]any); ok {
		t.errors = make([]TraceError, 0, len(errs))
		for _, e := range errs {
			te := TraceError{}
			if v, ok := e["node_id"].(string); ok {
				te.NodeID = v
			}
			if v, ok := e["kind"].(string); ok {
				te.Kind = v
			}
			if v, ok := e["message"].(string); ok {
				te.Message = v
			}
			if v, ok := e["time"].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
					te.Time = ts
				}
			}
			t.errors = append(t.errors, te)
		}
	}
	return t
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
