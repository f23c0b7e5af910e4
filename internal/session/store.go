// Package session records generate calls locally for later review.
package session

import (
	"context"
	"path/filepath"
	"time"

	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/llm"
)

// Generation is one recorded model turn.
type Generation struct {
	ID           int64
	Provider     string
	Model        string
	Prompt       string
	Parts        []llm.Part
	FinishReason string
	InputTokens  int
	OutputTokens int
	DurationMS   int64
	CreatedAt    time.Time
}

// Store is the interface for generation persistence.
type Store interface {
	Record(ctx context.Context, g *Generation) error
	List(ctx context.Context, limit int) ([]Generation, error)
	Close() error
}

// GetDBPath returns the session database location, honoring the
// configured override.
func GetDBPath(cfg config.SessionConfig) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	dir, err := config.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}
