package engine

import "time"

// ExecutionOptions controls one DAG run, adapted from the teacher's
// pkg/engine/options.go, trimmed to the controls this domain needs.
type ExecutionOptions struct {
	// Timeout bounds the whole request; zero means no bound.
	Timeout time.Duration
	// NodeTimeout bounds a single node's Execute call; zero means no bound.
	NodeTimeout time.Duration
	// MaxConcurrency caps how many nodes within one wave run concurrently.
	MaxConcurrency int
}

// DefaultExecutionOptions mirrors the teacher's conservative defaults.
func DefaultExecutionOptions() *ExecutionOptions {
	return &ExecutionOptions{
		Timeout:        2 * time.Second,
		NodeTimeout:    500 * time.Millisecond,
		MaxConcurrency: 10,
	}
}
