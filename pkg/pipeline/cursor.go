// Package pipeline implements the public entry point described in
// spec.md §4.5 and §6.3: assembling a request context, selecting a named
// DAG, invoking the engine, and falling back to randomized recall on any
// failure.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeCursor builds the "<offset>:<seed>" cursor protocol from §6.3, a
// token stable across pages of one session.
func EncodeCursor(offset int, seed int64) string {
	return fmt.Sprintf("%d:%d", offset, seed)
}

// DecodeCursor parses a cursor built by EncodeCursor. An empty string
// decodes to offset 0 with a freshly random seed request (seed=0, caller
// should mint one).
func DecodeCursor(cursor string) (offset int, seed int64, err error) {
	if cursor == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	offset, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor offset in %q: %w", cursor, err)
	}
	seed, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor seed in %q: %w", cursor, err)
	}
	return offset, seed, nil
}
