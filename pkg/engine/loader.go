package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kleon1024/mini-feeds/pkg/executor"
	"github.com/kleon1024/mini-feeds/pkg/models"
)

// LoadResult reports one directory load: the graphs that built successfully
// and the per-file errors that did not stop the rest from loading, per
// spec.md §3.1/§6.1's per-file isolation requirement.
type LoadResult struct {
	Graphs map[string]*Graph
	Errors map[string]error // filename -> load error
}

// LoadGraphsFromDir reads every *.json file in dir, using each file's stem
// (without extension) as the graph id, building each into a ready-to-run
// Graph against reg. A single bad file does not prevent the others from
// loading.
func LoadGraphsFromDir(dir string, reg *executor.Registry) (*LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading graph dir %q: %w", dir, err)
	}

	res := &LoadResult{
		Graphs: make(map[string]*Graph),
		Errors: make(map[string]error),
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		path := filepath.Join(dir, entry.Name())

		g, err := loadGraphFile(path, id, reg)
		if err != nil {
			res.Errors[entry.Name()] = err
			continue
		}
		res.Graphs[id] = g
	}

	return res, nil
}

func loadGraphFile(path, id string, reg *executor.Registry) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def models.GraphDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	def.ID = id

	g, err := Build(&def, reg)
	if err != nil {
		return nil, fmt.Errorf("building graph %q: %w", id, err)
	}
	return g, nil
}
