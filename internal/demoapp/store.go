// Package demoapp hosts the built-in target application for the harness: a
// minimal username/password web app exposing the exact rendered surface the
// auth suite verifies. It exists so `flowcheck run` works out of the box and
// the browser tests have a deterministic target.
package demoapp

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// DriverName is the project-specific SQLCipher driver registration.
const DriverName = "sqlite3_flowcheck"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{})
}

// Store errors.
var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS users (
    username TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    username TEXT NOT NULL REFERENCES users(username),
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// Store persists users and sessions in a SQLCipher database. An empty hexKey
// opens the file unencrypted, which is what ephemeral per-run databases use.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path. hexKey, when
// non-empty, must be 64 hex characters and enables SQLCipher encryption.
func OpenStore(path, hexKey string) (*Store, error) {
	dsn := path
	if hexKey != "" {
		if _, err := hex.DecodeString(hexKey); err != nil || len(hexKey) != 64 {
			return nil, fmt.Errorf("store key must be 64 hex characters")
		}
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, hexKey)
	}
	dsn = appendParams(dsn, "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite is single-writer; keep the pool small.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func appendParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// DB returns the underlying sql.DB for direct access when needed.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user. Returns ErrUsernameTaken when the username
// already exists; the existing account is left untouched.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, time.Now().Unix(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetPasswordHash returns the stored password hash for username.
// Returns ErrUserNotFound for unknown usernames.
func (s *Store) GetPasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

// CreateSession creates a session for username and returns its opaque ID.
func (s *Store) CreateSession(ctx context.Context, username string, ttl time.Duration) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, username, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, username, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sessionID, nil
}

// GetSessionUser returns the username for a live session.
// Expired or unknown sessions return ErrSessionNotFound.
func (s *Store) GetSessionUser(ctx context.Context, sessionID string) (string, error) {
	var username string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT username, expires_at FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&username, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if time.Now().Unix() >= expiresAt {
		_ = s.DeleteSession(ctx, sessionID)
		return "", ErrSessionNotFound
	}
	return username, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
