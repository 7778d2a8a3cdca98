// internal/storage/archive/runstore_test.go
package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/mhollert/bret/internal/core"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	return NewRunStore(fs)
}

func TestRunStore_SaveAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	artifacts := map[string][]byte{
		"run.json":            []byte(`{"run_id":"run-1"}`),
		"BTCUSDT/report.json": []byte(`{"instrument":"BTCUSDT"}`),
		"BTCUSDT/equity.csv":  []byte("time,balance\n"),
	}
	if err := store.SaveRun(ctx, "run-1", artifacts); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.ReadArtifact(ctx, "run-1", "BTCUSDT/report.json")
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if string(got) != `{"instrument":"BTCUSDT"}` {
		t.Errorf("ReadArtifact = %q", got)
	}
}

func TestRunStore_SaveRun_EmptyID(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveRun(context.Background(), "", map[string][]byte{"run.json": []byte("{}")})
	if !errors.Is(err, core.ErrArchiveFailed) {
		t.Errorf("SaveRun error = %v, want ErrArchiveFailed", err)
	}
}

func TestRunStore_ListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-b", "run-a"} {
		artifacts := map[string][]byte{
			"run.json":            []byte("{}"),
			"BTCUSDT/report.json": []byte("{}"),
		}
		if err := store.SaveRun(ctx, id, artifacts); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
		t.Errorf("ListRuns = %v, want [run-a run-b]", runs)
	}
}

func TestRunStore_ListRuns_Empty(t *testing.T) {
	store := newTestStore(t)
	runs, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns = %v, want empty", runs)
	}
}

func TestRunStore_ReadArtifact_Missing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ReadArtifact(context.Background(), "run-x", "report.json")
	if !errors.Is(err, core.ErrArchiveFailed) {
		t.Errorf("ReadArtifact error = %v, want ErrArchiveFailed", err)
	}
}
