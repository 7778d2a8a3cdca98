// internal/storage/archive/runstore.go
package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mhollert/bret/internal/core"
)

// RunStore lays out evaluation runs on a Storage backend. Each run owns a
// directory named by its ID, one subdirectory per instrument:
//
//	<runID>/run.json
//	<runID>/<instrument>/report.json
//	<runID>/<instrument>/equity.csv
//	<runID>/<instrument>/trades.csv
type RunStore struct {
	storage Storage
}

// NewRunStore creates a RunStore on top of a storage backend.
func NewRunStore(storage Storage) *RunStore {
	return &RunStore{storage: storage}
}

// SaveRun writes every artifact under the run's directory. Artifacts are
// written in sorted path order so a partial failure is reproducible.
func (r *RunStore) SaveRun(ctx context.Context, runID string, artifacts map[string][]byte) error {
	if runID == "" {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("empty run id"))
	}

	paths := make([]string, 0, len(artifacts))
	for path := range artifacts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		full := runID + "/" + path
		if err := r.storage.Put(ctx, full, artifacts[path]); err != nil {
			return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", full, err))
		}
	}
	return nil
}

// ListRuns returns the IDs of all archived runs, sorted.
func (r *RunStore) ListRuns(ctx context.Context) ([]string, error) {
	paths, err := r.storage.List(ctx, "")
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("listing runs: %w", err))
	}

	seen := make(map[string]struct{})
	runs := []string{}
	for _, path := range paths {
		id, _, ok := strings.Cut(path, "/")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		runs = append(runs, id)
	}

	sort.Strings(runs)
	return runs, nil
}

// ReadArtifact loads a single artifact from a run.
func (r *RunStore) ReadArtifact(ctx context.Context, runID, path string) ([]byte, error) {
	data, err := r.storage.Get(ctx, runID+"/"+path)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("reading %s/%s: %w", runID, path, err))
	}
	return data, nil
}
