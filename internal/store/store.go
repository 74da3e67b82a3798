package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"worktimer/internal/ledger"
)

const currentVersion = 1

const defaultProjectKey = "default_project"

// Store persists the ledger and the default-project setting in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	// The AUTOINCREMENT project id preserves creation order across reloads.
	const ddl = `
	CREATE TABLE IF NOT EXISTS projects (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS day_records (
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		day        TEXT NOT NULL,
		seconds    INTEGER NOT NULL DEFAULT 0,
		UNIQUE(project_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_day_records_project ON day_records(project_id);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// Load reads the full ledger and the default project. An empty database
// yields an empty ledger and no default, which is not an error.
func (s *Store) Load() (*ledger.Ledger, string, error) {
	l := ledger.New()

	rows, err := s.db.Query(`SELECT id, name FROM projects ORDER BY id`)
	if err != nil {
		return nil, "", fmt.Errorf("load projects: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, "", err
		}
		if err := l.CreateProject(name); err != nil {
			return nil, "", fmt.Errorf("load project %q: %w", name, err)
		}
		ids[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	drows, err := s.db.Query(`SELECT project_id, day, seconds FROM day_records`)
	if err != nil {
		return nil, "", fmt.Errorf("load day records: %w", err)
	}
	defer drows.Close()

	for drows.Next() {
		var pid int64
		var day string
		var seconds int
		if err := drows.Scan(&pid, &day, &seconds); err != nil {
			return nil, "", err
		}
		name, ok := ids[pid]
		if !ok {
			continue
		}
		d, err := ledger.ParseDate(day)
		if err != nil {
			return nil, "", fmt.Errorf("load day record %q: %w", day, err)
		}
		l.Set(name, d, seconds)
	}
	if err := drows.Err(); err != nil {
		return nil, "", err
	}

	defaultProject, err := s.getSetting(defaultProjectKey)
	if err != nil {
		return nil, "", err
	}
	return l, defaultProject, nil
}

// Save rewrites the entire ledger and the default project in one
// transaction. A failed save rolls back and leaves the previously persisted
// state intact.
func (s *Store) Save(l *ledger.Ledger, defaultProject string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM day_records`); err != nil {
		return fmt.Errorf("clear day records: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM projects`); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}

	for _, name := range l.Projects() {
		res, err := tx.Exec(`INSERT INTO projects (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("save project %q: %w", name, err)
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("save project %q: %w", name, err)
		}
		for _, rec := range l.Days(name) {
			if _, err := tx.Exec(
				`INSERT INTO day_records (project_id, day, seconds) VALUES (?, ?, ?)`,
				pid, string(rec.Day), rec.Seconds,
			); err != nil {
				return fmt.Errorf("save day record %s/%s: %w", name, rec.Day, err)
			}
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		defaultProjectKey, defaultProject,
	); err != nil {
		return fmt.Errorf("save default project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *Store) getSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// DefaultDBPath returns ~/.config/worktimer/worktimer.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "worktimer", "worktimer.db"), nil
}
