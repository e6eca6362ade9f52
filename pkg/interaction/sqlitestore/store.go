// Package sqlitestore persists conversation state in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/message"
)

// Store implements interaction.Store. Writes are serialised; reads run
// concurrently under WAL.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ interaction.Store = (*Store)(nil)

// Open creates the database at dbPath, including parent directories. The
// path ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS revisions (
			conversation_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			revision_id TEXT NOT NULL,
			content BLOB NOT NULL,
			metadata TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (conversation_id, resource_id, revision_id)
		)`,
		`CREATE TABLE IF NOT EXISTS message_resources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			revision_id TEXT NOT NULL,
			UNIQUE (conversation_id, message_id, resource_id, revision_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_message_resources ON message_resources(conversation_id, message_id)`,
		`CREATE TABLE IF NOT EXISTS changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			path TEXT NOT NULL,
			content TEXT NOT NULL,
			changed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_conversation ON changes(conversation_id, id)`,
		`CREATE TABLE IF NOT EXISTS usage (
			conversation_id TEXT PRIMARY KEY,
			tool_stats TEXT NOT NULL,
			token_usage TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) PutRevision(ctx context.Context, conv string, rev interaction.Revision) error {
	md, err := json.Marshal(rev.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if rev.Content == nil {
		rev.Content = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO revisions (conversation_id, resource_id, revision_id, content, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, resource_id, revision_id)
		DO UPDATE SET content = excluded.content, metadata = excluded.metadata`,
		conv, rev.ResourceID, rev.RevisionID, rev.Content, string(md))
	if err != nil {
		return fmt.Errorf("put revision: %w", err)
	}
	return nil
}

func (s *Store) GetRevision(ctx context.Context, conv, resourceID, revisionID string) (*interaction.Revision, error) {
	var (
		content []byte
		md      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content, metadata FROM revisions
		WHERE conversation_id = ? AND resource_id = ? AND revision_id = ?`,
		conv, resourceID, revisionID).Scan(&content, &md)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s@%s", interaction.ErrRevisionNotFound, resourceID, revisionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}

	rev := &interaction.Revision{ResourceID: resourceID, RevisionID: revisionID, Content: content}
	if err := json.Unmarshal([]byte(md), &rev.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return rev, nil
}

func (s *Store) AttachResources(ctx context.Context, conv, messageID string, refs []interaction.ResourceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_resources (conversation_id, message_id, resource_id, revision_id)
			VALUES (?, ?, ?, ?)`,
			conv, messageID, ref.ResourceID, ref.RevisionID); err != nil {
			return fmt.Errorf("attach resource: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) MessageResources(ctx context.Context, conv, messageID string) ([]interaction.ResourceRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource_id, revision_id FROM message_resources
		WHERE conversation_id = ? AND message_id = ? ORDER BY id`,
		conv, messageID)
	if err != nil {
		return nil, fmt.Errorf("query message resources: %w", err)
	}
	defer rows.Close()

	var refs []interaction.ResourceRef
	for rows.Next() {
		var ref interaction.ResourceRef
		if err := rows.Scan(&ref.ResourceID, &ref.RevisionID); err != nil {
			return nil, fmt.Errorf("scan message resource: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Store) AppendChange(ctx context.Context, conv string, c interaction.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO changes (conversation_id, path, content, changed_at) VALUES (?, ?, ?, ?)`,
		conv, c.Path, c.Content, c.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append change: %w", err)
	}
	return nil
}

func (s *Store) Changes(ctx context.Context, conv string) ([]interaction.Change, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, content, changed_at FROM changes WHERE conversation_id = ? ORDER BY id`, conv)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []interaction.Change
	for rows.Next() {
		var (
			c  interaction.Change
			at string
		)
		if err := rows.Scan(&c.Path, &c.Content, &at); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if c.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse change time: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveUsage(ctx context.Context, conv string, stats message.ToolUsageStats, tokens message.TokenUsage) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode tool stats: %w", err)
	}
	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode token usage: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO usage (conversation_id, tool_stats, token_usage) VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			tool_stats = excluded.tool_stats,
			token_usage = excluded.token_usage,
			updated_at = datetime('now')`,
		conv, string(statsJSON), string(tokensJSON))
	if err != nil {
		return fmt.Errorf("save usage: %w", err)
	}
	return nil
}

func (s *Store) LoadUsage(ctx context.Context, conv string) (message.ToolUsageStats, message.TokenUsage, error) {
	var (
		stats              message.ToolUsageStats
		tokens             message.TokenUsage
		statsJSON, tokJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tool_stats, token_usage FROM usage WHERE conversation_id = ?`, conv).Scan(&statsJSON, &tokJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, tokens, nil
	}
	if err != nil {
		return stats, tokens, fmt.Errorf("load usage: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return stats, tokens, fmt.Errorf("decode tool stats: %w", err)
	}
	if err := json.Unmarshal([]byte(tokJSON), &tokens); err != nil {
		return stats, tokens, fmt.Errorf("decode token usage: %w", err)
	}
	return stats, tokens, nil
}
