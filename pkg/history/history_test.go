package history

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/observability"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Started:    started,
		Duration:   1500 * time.Millisecond,
		ConfigPath: "/work/bake.json",
		SceneFile:  "/work/rock.json",
		Mode:       "combined",
		Objects:    []string{"Rock", "Pebble"},
		Status:     StatusSucceeded,
		Files:      []string{"textures/rock_normal.png", "textures/rock_albedo.png"},
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Record(ctx, sampleRun("run-1", started)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Started.Equal(started) || got.Duration != 1500*time.Millisecond {
		t.Errorf("times = %v / %v", got.Started, got.Duration)
	}
	if !slices.Equal(got.Objects, []string{"Rock", "Pebble"}) {
		t.Errorf("objects = %v", got.Objects)
	}
	if !slices.Equal(got.Files, []string{"textures/rock_albedo.png", "textures/rock_normal.png"}) {
		t.Errorf("files = %v", got.Files)
	}

	// Re-recording replaces the entry and its files.
	failed := sampleRun("run-1", started)
	failed.Status, failed.Error, failed.Files = StatusFailed, "BAKE_FAILED: device lost", nil
	if err := s.Record(ctx, failed); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "run-1")
	if got.Status != StatusFailed || got.Error == "" || len(got.Files) != 0 {
		t.Errorf("replaced run = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestRecordValidation(t *testing.T) {
	s := openTemp(t)
	tests := []struct {
		name string
		run  Run
	}{
		{"empty id", Run{Status: StatusSucceeded}},
		{"bad status", Run{ID: "x", Status: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Record(context.Background(), tt.run); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestRecentAndPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		if err := s.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if !slices.Equal(ids, []string{"d", "c", "b"}) {
		t.Errorf("recent = %v", ids)
	}
	if len(runs[0].Files) != 2 {
		t.Errorf("recent run files = %v", runs[0].Files)
	}

	n, err := s.Prune(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("pruned run still present: %v", err)
	}
	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run_files WHERE run_id IN ('a', 'b')`).Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("%d file rows survived their run", orphans)
	}
}

func TestPragmas(t *testing.T) {
	s := openTemp(t)
	var fk, busy int
	var journal string
	_ = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	_ = s.db.QueryRow("PRAGMA busy_timeout").Scan(&busy)
	_ = s.db.QueryRow("PRAGMA journal_mode").Scan(&journal)
	if fk != 1 || busy != 10_000 || journal != "wal" {
		t.Errorf("foreign_keys=%d busy_timeout=%d journal_mode=%q", fk, busy, journal)
	}
}

type recordHook struct {
	observability.NoopHistoryHooks
	statuses []string
}

func (h *recordHook) OnRecord(_ context.Context, _ string, status string, _ error) {
	h.statuses = append(h.statuses, status)
}

func TestRecordHook(t *testing.T) {
	hook := &recordHook{}
	observability.SetHistoryHooks(hook)
	t.Cleanup(observability.Reset)

	s := openTemp(t)
	_ = s.Record(context.Background(), sampleRun("r", time.Now()))
	if !slices.Equal(hook.statuses, []string{StatusSucceeded}) {
		t.Errorf("hook saw %v", hook.statuses)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultPath(); got != filepath.Join("/data", "texbake", "history.db") {
		t.Errorf("DefaultPath() = %q", got)
	}
}
