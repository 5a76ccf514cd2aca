// Package reqcontext holds the per-request execution context threaded
// through every node call (spec.md §3.3). It sits above pkg/models and
// pkg/trace (which itself builds on pkg/models), so neither of them needs
// to import the request context.
package reqcontext

import (
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/trace"
)

// RequestContext is the read side-channel every node executor receives
// alongside its candidate input. Nodes read from it; only the engine
// mutates DAGID/NodeID/Inputs as execution advances.
type RequestContext struct {
	DB models.DataGateway

	UserID int64
	Count  int
	Offset int

	Scene  string
	Slot   string
	Device string
	Geo    string
	AB     map[string]string
	Debug  bool

	Trace *trace.TraceInfo

	// DAGID/NodeID identify the node currently executing; set by the engine
	// immediately before a node's Execute is invoked.
	DAGID  string
	NodeID string

	// Inputs carries request-scoped values that aren't part of the typed
	// fields above (e.g. raw query params nodes may opt into reading).
	Inputs map[string]any

	tx models.Transaction
}

// New builds a RequestContext for one incoming request.
func New(db models.DataGateway, userID int64, count, offset int) *RequestContext {
	return &RequestContext{
		DB:     db,
		UserID: userID,
		Count:  count,
		Offset: offset,
		AB:     make(map[string]string),
		Trace:  trace.New(),
		Inputs: make(map[string]any),
	}
}

// Tx returns the currently open transaction, if any.
func (rc *RequestContext) Tx() models.Transaction {
	return rc.tx
}

// SetTx records the request's open transaction. Per spec.md §5 at most one
// transaction may be open per request.
func (rc *RequestContext) SetTx(tx models.Transaction) {
	rc.tx = tx
}

// ClearTx drops the reference to a closed (committed or rolled back)
// transaction so it cannot be reused.
func (rc *RequestContext) ClearTx() {
	rc.tx = nil
}

// ForNode returns a shallow copy of the context scoped to a specific node
// execution, with DAGID/NodeID set. Sharing the same Trace, DB, and Inputs
// map as the parent.
func (rc *RequestContext) ForNode(dagID, nodeID string) *RequestContext {
	clone := *rc
	clone.DAGID = dagID
	clone.NodeID = nodeID
	return &clone
}
