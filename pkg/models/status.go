package models

// NodeExecStatus is the lifecycle status of one node's trace record.
type NodeExecStatus string

const (
	NodeStatusRunning NodeExecStatus = "running"
	NodeStatusSuccess NodeExecStatus = "success"
	NodeStatusError   NodeExecStatus = "error"
	NodeStatusSkipped NodeExecStatus = "skipped"
)

// TraceStatus is the terminal status of an entire request trace.
type TraceStatus string

const (
	TraceStatusRunning  TraceStatus = "running"
	TraceStatusSuccess  TraceStatus = "success"
	TraceStatusError    TraceStatus = "error"
	TraceStatusFallback TraceStatus = "fallback"
)
