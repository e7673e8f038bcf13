package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotatord/rotatord/internal/model"
)

func TestLoad_MissingFileIsEmptyState(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.yaml"))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	st := s.JobState("job1")
	if !st.LastFiredAt.IsZero() || st.Cursor != 0 || st.ConsecutiveFailures != 0 {
		t.Fatalf("expected never-fired default, got %+v", st)
	}
}

func TestLoad_CorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [[["), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(path)
	if err := s.Load(); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestSetJobState_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	s := New(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.SetJobState("job1", model.RotationState{LastFiredAt: now, Cursor: 2}); err != nil {
		t.Fatal(err)
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	got := reloaded.JobState("job1")
	if got.Cursor != 2 || !got.LastFiredAt.Equal(now) {
		t.Fatalf("got %+v, want cursor=2 last_fired_at=%v", got, now)
	}
}

func TestSave_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	s := New(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTriggerState("t1", model.TriggerState{LastFiredPeriod: "2025-08"}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the state file, got %v", entries)
	}
}
