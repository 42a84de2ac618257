package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,

	`CREATE TABLE IF NOT EXISTS credentials (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT NOT NULL,
		name    TEXT NOT NULL,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		UNIQUE(service, name, key)
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		destination TEXT NOT NULL,
		scope       TEXT NOT NULL,
		resource    TEXT NOT NULL,
		name        TEXT NOT NULL,
		value       TEXT NOT NULL,
		UNIQUE(destination, scope, resource, name)
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		uid           TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DBPath returns the default database path.
func DBPath() string {
	return filepath.Join(Dir(), "certadmin.db")
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema is up to date. File permissions are set to 0600.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating config dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serializes writers and keeps :memory: databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting schema version: %w", err)
		}
	}

	// Best effort; the database holds secrets.
	_ = os.Chmod(dbPath, 0o600)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Credentials ---

func (s *SQLiteStore) GetCredential(service, name, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM credentials WHERE service = ? AND name = ? AND key = ?",
		service, name, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("credential not found: %s/%s/%s", service, name, key)
	}
	if err != nil {
		return "", fmt.Errorf("querying credential: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetCredential(service, name, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO credentials (service, name, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(service, name, key) DO UPDATE SET value = excluded.value`,
		service, name, key, value,
	)
	if err != nil {
		return fmt.Errorf("setting credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCredentials(service string) ([]Credential, error) {
	rows, err := s.db.Query(
		"SELECT service, name, key, value FROM credentials WHERE service = ? ORDER BY name, key",
		service,
	)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.Service, &c.Name, &c.Key, &c.Value); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (s *SQLiteStore) DeleteCredential(service, name string) error {
	_, err := s.db.Exec(
		"DELETE FROM credentials WHERE service = ? AND name = ?",
		service, name,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// --- Settings ---

// ReadSettings returns every stored value under destination/scope/resource,
// ordered by name.
func (s *SQLiteStore) ReadSettings(destination, scope, resource string) ([]Setting, error) {
	rows, err := s.db.Query(
		`SELECT destination, scope, resource, name, value FROM settings
		 WHERE destination = ? AND scope = ? AND resource = ? ORDER BY name`,
		destination, scope, resource,
	)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s/%s: %w", destination, scope, err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Destination, &st.Scope, &st.Resource, &st.Name, &st.Value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// WriteSettings upserts all settings in one transaction: either every value
// is stored or none is.
func (s *SQLiteStore) WriteSettings(settings []Setting) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, st := range settings {
		_, err := tx.Exec(
			`INSERT INTO settings (destination, scope, resource, name, value) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(destination, scope, resource, name) DO UPDATE SET value = excluded.value`,
			st.Destination, st.Scope, st.Resource, st.Name, st.Value,
		)
		if err != nil {
			return fmt.Errorf("upserting setting %s/%s/%s: %w", st.Destination, st.Scope, st.Name, err)
		}
	}

	return tx.Commit()
}

// SeedSettings inserts settings that are not stored yet and reports how many
// were added. Existing values are left alone.
func (s *SQLiteStore) SeedSettings(settings []Setting) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, st := range settings {
		res, err := tx.Exec(
			`INSERT INTO settings (destination, scope, resource, name, value) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(destination, scope, resource, name) DO NOTHING`,
			st.Destination, st.Scope, st.Resource, st.Name, st.Value,
		)
		if err != nil {
			return 0, fmt.Errorf("seeding setting %s/%s/%s: %w", st.Destination, st.Scope, st.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return added, nil
}

// --- Users ---

func (s *SQLiteStore) GetUser(uid string) (*User, error) {
	u := &User{UID: uid}
	err := s.db.QueryRow("SELECT password_hash FROM users WHERE uid = ?", uid).Scan(&u.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", uid)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) SetUser(uid, passwordHash string) error {
	_, err := s.db.Exec(
		`INSERT INTO users (uid, password_hash) VALUES (?, ?)
		 ON CONFLICT(uid) DO UPDATE SET password_hash = excluded.password_hash`,
		uid, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("setting user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListUsers() ([]User, error) {
	rows, err := s.db.Query("SELECT uid, password_hash FROM users ORDER BY uid")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UID, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
