// Package store persists applications, their versions and the chat
// transcript in SQLite.
//
// It is the system of record for the version ledger: every cache in
// front of it can be dropped without losing state.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaced in tests.
var timeNow = time.Now

// ErrNotFound is returned when an application or version row is missing.
var ErrNotFound = errors.New("not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// App is one generated application.
type App struct {
	ID             int64  `json:"id"`
	GenType        string `json:"gen_type"`
	Status         string `json:"status"`
	CurrentVersion int    `json:"current_version"`
	UserID         int64  `json:"user_id"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// Version is one generation attempt of an application.
type Version struct {
	ID        int64   `json:"id"`
	AppID     int64   `json:"app_id"`
	Number    int     `json:"version"`
	GenType   string  `json:"gen_type"`
	CodeDir   string  `json:"code_dir"`
	Status    string  `json:"status"`
	Reason    *string `json:"reason,omitempty"`
	CreatedBy int64   `json:"created_by"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// CreateVersionParams holds the input for CreateVersion.
type CreateVersionParams struct {
	AppID     int64
	GenType   string
	CreatedBy int64
	// CodeDir maps the allocated version number to its directory.
	CodeDir func(version int) string
}

// ChatMessage is one transcript entry.
type ChatMessage struct {
	ID          int64  `json:"id"`
	AppID       int64  `json:"app_id"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	UserID      int64  `json:"user_id"`
	CreatedAt   string `json:"created_at"`
}

// Chat message roles.
const (
	MessageUser = "user"
	MessageAI   = "ai"
)

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".webgen")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	queryIt func(db queryer, query string, args ...any) (rowScanner, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) queryItHook(db queryer, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(db, query, args...)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (or creates) webgen.db under cfg.DataDir and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "webgen.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One connection serializes writers; version allocation reads and
	// writes inside the same transaction.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS apps (
			id              INTEGER PRIMARY KEY,
			gen_type        TEXT    NOT NULL,
			status          TEXT    NOT NULL DEFAULT 'not_generated',
			current_version INTEGER NOT NULL DEFAULT 0,
			user_id         INTEGER NOT NULL,
			created_at      TEXT    NOT NULL,
			updated_at      TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS app_versions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			app_id     INTEGER NOT NULL REFERENCES apps(id),
			version    INTEGER NOT NULL,
			gen_type   TEXT    NOT NULL,
			code_dir   TEXT    NOT NULL,
			status     TEXT    NOT NULL,
			reason     TEXT,
			created_by INTEGER NOT NULL,
			created_at TEXT    NOT NULL,
			updated_at TEXT    NOT NULL,
			UNIQUE (app_id, version)
		);

		CREATE TABLE IF NOT EXISTS chat_history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			app_id       INTEGER NOT NULL,
			message      TEXT    NOT NULL,
			message_type TEXT    NOT NULL,
			user_id      INTEGER NOT NULL,
			created_at   TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_versions_app ON app_versions(app_id, version DESC);
		CREATE INDEX IF NOT EXISTS idx_chat_app ON chat_history(app_id, id);
	`
	_, err := s.execHook(s.db, schema)
	return err
}

// ─── Apps ────────────────────────────────────────────────────────────────────

// EnsureApp inserts the application if it does not exist yet. An
// existing row is left untouched.
func (s *Store) EnsureApp(id int64, genType string, userID int64) error {
	now := Now()
	_, err := s.execHook(s.db,
		`INSERT INTO apps (id, gen_type, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, genType, userID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensuring app %d: %w", id, err)
	}
	return nil
}

// GetApp returns the application row or ErrNotFound.
func (s *Store) GetApp(id int64) (*App, error) {
	rows, err := s.queryItHook(s.db,
		`SELECT id, gen_type, status, current_version, user_id, created_at, updated_at
		 FROM apps WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying app %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying app %d: %w", id, err)
		}
		return nil, fmt.Errorf("app %d: %w", id, ErrNotFound)
	}
	var a App
	if err := rows.Scan(&a.ID, &a.GenType, &a.Status, &a.CurrentVersion, &a.UserID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning app %d: %w", id, err)
	}
	return &a, nil
}

// ─── Versions ────────────────────────────────────────────────────────────────

// CreateVersion allocates the next version number, inserts the version
// row with status generating and points the application at it. Both
// writes commit together or not at all.
//
// The number is one past the larger of the app's current pointer and
// its highest existing version, so it stays unique after a rollback.
func (s *Store) CreateVersion(p CreateVersionParams) (*Version, error) {
	tx, err := s.beginTxHook()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := s.queryItHook(tx,
		`SELECT a.current_version, COALESCE(MAX(v.version), 0)
		 FROM apps a LEFT JOIN app_versions v ON v.app_id = a.id
		 WHERE a.id = ?
		 GROUP BY a.id`, p.AppID)
	if err != nil {
		return nil, fmt.Errorf("reading current version: %w", err)
	}
	var current, highest int
	found := rows.Next()
	if found {
		if err := rows.Scan(&current, &highest); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning current version: %w", err)
		}
	}
	rows.Close()
	if !found {
		return nil, fmt.Errorf("app %d: %w", p.AppID, ErrNotFound)
	}

	next := current + 1
	if highest >= next {
		next = highest + 1
	}

	codeDir := ""
	if p.CodeDir != nil {
		codeDir = p.CodeDir(next)
	}
	now := Now()

	res, err := s.execHook(tx,
		`INSERT INTO app_versions (app_id, version, gen_type, code_dir, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'generating', ?, ?, ?)`,
		p.AppID, next, p.GenType, codeDir, p.CreatedBy, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("version %d of app %d already exists", next, p.AppID)
		}
		return nil, fmt.Errorf("inserting version: %w", err)
	}

	if _, err := s.execHook(tx,
		`UPDATE apps SET current_version = ?, status = 'generating', gen_type = ?, updated_at = ? WHERE id = ?`,
		next, p.GenType, now, p.AppID,
	); err != nil {
		return nil, fmt.Errorf("updating app pointer: %w", err)
	}

	if err := s.commitHook(tx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	id, _ := res.LastInsertId()
	return &Version{
		ID:        id,
		AppID:     p.AppID,
		Number:    next,
		GenType:   p.GenType,
		CodeDir:   codeDir,
		Status:    "generating",
		CreatedBy: p.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FinishVersion moves a generating version to status (ready or failed)
// and mirrors it onto the application when the version is still the
// app's current one. It reports whether the version row changed; a
// version already in a terminal state is left as is.
func (s *Store) FinishVersion(appID int64, version int, status string, reason string) (bool, error) {
	tx, err := s.beginTxHook()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := Now()
	res, err := s.execHook(tx,
		`UPDATE app_versions SET status = ?, reason = ?, updated_at = ?
		 WHERE app_id = ? AND version = ? AND status = 'generating'`,
		status, nullableString(reason), now, appID, version,
	)
	if err != nil {
		return false, fmt.Errorf("updating version status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}

	if _, err := s.execHook(tx,
		`UPDATE apps SET status = ?, updated_at = ? WHERE id = ? AND current_version = ?`,
		status, now, appID, version,
	); err != nil {
		return false, fmt.Errorf("updating app status: %w", err)
	}

	if err := s.commitHook(tx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// SetCurrentVersion repoints the application and sets its status.
func (s *Store) SetCurrentVersion(appID int64, version int, status string) error {
	res, err := s.execHook(s.db,
		`UPDATE apps SET current_version = ?, status = ?, updated_at = ? WHERE id = ?`,
		version, status, Now(), appID,
	)
	if err != nil {
		return fmt.Errorf("updating app %d: %w", appID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("app %d: %w", appID, ErrNotFound)
	}
	return nil
}

// GetVersion returns one version row or ErrNotFound.
func (s *Store) GetVersion(appID int64, version int) (*Version, error) {
	list, err := s.queryVersions(
		`SELECT id, app_id, version, gen_type, code_dir, status, reason, created_by, created_at, updated_at
		 FROM app_versions WHERE app_id = ? AND version = ?`, appID, version)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("version %d of app %d: %w", version, appID, ErrNotFound)
	}
	return &list[0], nil
}

// ListVersions returns the app's versions, newest first.
func (s *Store) ListVersions(appID int64) ([]Version, error) {
	return s.queryVersions(
		`SELECT id, app_id, version, gen_type, code_dir, status, reason, created_by, created_at, updated_at
		 FROM app_versions WHERE app_id = ? ORDER BY version DESC`, appID)
}

func (s *Store) queryVersions(query string, args ...any) ([]Version, error) {
	rows, err := s.queryItHook(s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.AppID, &v.Number, &v.GenType, &v.CodeDir,
			&v.Status, &v.Reason, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ─── Chat history ────────────────────────────────────────────────────────────

// AddChatMessage appends one transcript entry.
func (s *Store) AddChatMessage(appID int64, message, messageType string, userID int64) (int64, error) {
	res, err := s.execHook(s.db,
		`INSERT INTO chat_history (app_id, message, message_type, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		appID, message, messageType, userID, Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("saving chat message: %w", err)
	}
	return res.LastInsertId()
}

// ChatHistory returns the last limit messages of an app, oldest first.
func (s *Store) ChatHistory(appID int64, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.queryItHook(s.db,
		`SELECT id, app_id, message, message_type, user_id, created_at FROM (
			SELECT * FROM chat_history WHERE app_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, appID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chat history: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.AppID, &m.Message, &m.MessageType, &m.UserID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Now returns the current time formatted for SQLite.
func Now() string {
	return timeNow().UTC().Format("2006-01-02 15:04:05")
}
