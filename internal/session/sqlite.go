package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/termbridge/termbridge/internal/llm"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    prompt TEXT,
    parts TEXT NOT NULL,
    finish_reason TEXT,
    input_tokens INTEGER DEFAULT 0,
    output_tokens INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at DESC);
`

// NewSQLiteStore opens (creating if needed) the generation log at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, g *Generation) error {
	parts, err := json.Marshal(g.Parts)
	if err != nil {
		return fmt.Errorf("marshal parts: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (provider, model, prompt, parts, finish_reason, input_tokens, output_tokens, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Provider, g.Model, g.Prompt, string(parts), g.FinishReason,
		g.InputTokens, g.OutputTokens, g.DurationMS)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	g.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, model, prompt, parts, finish_reason, input_tokens, output_tokens, duration_ms, created_at
		FROM generations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		var parts string
		var created time.Time
		if err := rows.Scan(&g.ID, &g.Provider, &g.Model, &g.Prompt, &parts,
			&g.FinishReason, &g.InputTokens, &g.OutputTokens, &g.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		g.CreatedAt = created
		if err := json.Unmarshal([]byte(parts), &g.Parts); err != nil {
			g.Parts = []llm.Part{llm.TextPart(parts)}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
