// Package history keeps a ledger of bake runs in an SQLite database.
//
// Each run records its id, start time, configuration, mode, outcome and the
// files it generated. The CLI writes one entry per bake and lists recent
// entries with `texbake history`.
//
//	store, err := history.Open(history.DefaultPath())
//	defer store.Close()
//	err = store.Record(ctx, history.Run{ID: res.RunID, ...})
package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/observability"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	config_path TEXT NOT NULL,
	scene_file  TEXT NOT NULL,
	mode        TEXT NOT NULL,
	objects     TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_at);
CREATE TABLE IF NOT EXISTS run_files (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	path   TEXT NOT NULL,
	PRIMARY KEY (run_id, path)
);
`

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one ledger entry.
type Run struct {
	ID         string
	Started    time.Time
	Duration   time.Duration
	ConfigPath string
	SceneFile  string
	Mode       string
	Objects    []string
	Status     string
	Error      string
	Files      []string
}

// Store is an open history ledger.
type Store struct {
	db *sql.DB
}

// DefaultPath returns $XDG_DATA_HOME/texbake/history.db, falling back to
// ~/.local/share when XDG_DATA_HOME is unset.
func DefaultPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "texbake", "history.db")
}

// Open opens or creates the ledger at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	db, err := openDB(path, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open history %s", path)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts r, replacing an earlier entry with the same id.
func (s *Store) Record(ctx context.Context, r Run) (err error) {
	defer func() { observability.History().OnRecord(ctx, r.ID, r.Status, err) }()
	if r.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "run id is empty")
	}
	if r.Status != StatusSucceeded && r.Status != StatusFailed {
		return errors.New(errors.ErrCodeInvalidInput, "invalid run status %q", r.Status)
	}

	err = runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, started_at, duration_ms, config_path, scene_file, mode, objects, status, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Started.UnixNano(), r.Duration.Milliseconds(), r.ConfigPath, r.SceneFile,
			r.Mode, strings.Join(r.Objects, "\n"), r.Status, r.Error)
		if err != nil {
			return err
		}
		for _, f := range r.Files {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO run_files (run_id, path) VALUES (?, ?)`, r.ID, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "record run %s", r.ID)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, config_path, scene_file, mode, objects, status, error
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	rows.Close()

	for i := range runs {
		files, err := s.files(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, duration_ms, config_path, scene_file, mode, objects, status, error
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeNotFound, "run %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "get run %s", id)
	}
	if r.Files, err = s.files(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	var n int64
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?)`, max(keep, 0))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "prune runs")
	}
	return n, nil
}

func (s *Store) files(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM run_files WHERE run_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list files of %s", id)
	}
	defer rows.Close()
	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan file")
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r        Run
		started  int64
		duration int64
		objects  string
	)
	err := sc.Scan(&r.ID, &started, &duration, &r.ConfigPath, &r.SceneFile, &r.Mode, &objects, &r.Status, &r.Error)
	if err != nil {
		return Run{}, err
	}
	r.Started = time.Unix(0, started)
	r.Duration = time.Duration(duration) * time.Millisecond
	if objects != "" {
		r.Objects = strings.Split(objects, "\n")
	}
	return r, nil
}
