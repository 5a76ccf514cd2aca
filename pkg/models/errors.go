// Package models defines the public domain types shared by the recommendation
// pipeline: candidates, graph definitions, the data-gateway interface, and
// sentinel errors. The request context lives in pkg/reqcontext.
package models

import "errors"

// Sentinel errors returned by the DAG engine, node framework, and gateways.
var (
	// Graph / configuration errors (raised at load time, abort one DAG only).
	ErrGraphNotFound      = errors.New("graph not found")
	ErrNoEntryNodes       = errors.New("graph has no entry nodes")
	ErrDanglingEdge       = errors.New("edge references a node not present in the graph")
	ErrUnknownNodeType    = errors.New("node type is not registered")
	ErrMissingConfig      = errors.New("required node config field is missing")
	ErrDuplicateNodeID    = errors.New("duplicate node id")

	// Execution errors.
	ErrCycleDetected     = errors.New("cycle detected in graph")
	ErrNodeNotFound      = errors.New("node not found in graph")
	ErrNoTerminalOutput  = errors.New("no terminal node output available")
	ErrExecutorNotFound  = errors.New("executor not found for node type")

	// Gateway errors.
	ErrUserNotFound      = errors.New("user not found")
	ErrNoOpenTransaction = errors.New("no open transaction")
	ErrTxAlreadyOpen     = errors.New("transaction already open")
)
