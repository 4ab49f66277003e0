package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/briefdesk/brief-service/internal/config"
)

// SQLite wraps an embedded database used for single-node deployments.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens the database file and applies the schema.
func NewSQLite(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*SQLite, error) {
	db, err := OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	logger.Info("opened sqlite database", zap.String("path", cfg.SQLitePath))
	return &SQLite{DB: db}, nil
}

// OpenSQLite opens path with a busy timeout and runs the schema statements.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			conversation_ids TEXT NOT NULL DEFAULT '[]',
			total_briefs INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			last_active_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT 'anonymous',
			messages TEXT NOT NULL DEFAULT '[]',
			brief TEXT,
			contact_info TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			language TEXT NOT NULL DEFAULT 'en',
			project_type TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT,
			email_sent_at TEXT,
			email_status TEXT NOT NULL DEFAULT '',
			email_message_id TEXT NOT NULL DEFAULT '',
			email_attempts INTEGER NOT NULL DEFAULT 0,
			last_email_attempt TEXT,
			email_error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS briefs (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			brief TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'draft',
			email_sent_to TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			email_sent_at TEXT,
			viewed_at TEXT,
			accepted_at TEXT,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_last_email_attempt ON conversations(last_email_attempt)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_email_sent_at ON conversations(email_sent_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("sqlite not configured")
	}
	return s.DB.PingContext(ctx)
}
