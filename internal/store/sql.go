package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const createProfiles = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`

type dialect struct {
	insert string
	get    string
}

var dialects = map[string]dialect{
	"sqlite": {
		insert: `INSERT INTO profiles (id, document, created_at) VALUES (?, ?, ?)`,
		get:    `SELECT document FROM profiles WHERE id = ?`,
	},
	"pgx": {
		insert: `INSERT INTO profiles (id, document, created_at) VALUES ($1, $2, $3)`,
		get:    `SELECT document FROM profiles WHERE id = $1`,
	},
}

// SQLStore keeps each profile as a JSON document in a single table. It runs on
// SQLite (modernc, no cgo) or PostgreSQL (pgx).
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL opens the database, verifies the connection and creates the
// profiles table when missing.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver: %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store dsn is required")
	}

	if driver == "sqlite" {
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer keeps inserts serialized and makes :memory: databases shared.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := newSQLStore(db, d)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Profile store ready", zap.String("driver", driver))
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.Contains(path, "?") || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create store directory: %w", err)
		}
	}
	return filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createProfiles); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (s *SQLStore) Insert(ctx context.Context, profile models.Profile) (string, error) {
	document, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}

	id := NewID()
	if _, err := s.db.ExecContext(ctx, s.dialect.insert, id, string(document), time.Now().UTC().UnixMilli()); err != nil {
		return "", fmt.Errorf("insert profile: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (models.Profile, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var document string
	err := s.db.QueryRowContext(ctx, s.dialect.get, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var profile models.Profile
	dec := json.NewDecoder(bytes.NewReader([]byte(document)))
	dec.UseNumber()
	if err := dec.Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return profile, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
