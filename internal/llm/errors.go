package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports that an explicitly requested provider family is
// missing required configuration. The router raises it before any
// network attempt; it never falls back to the native path silently.
type ConfigError struct {
	Provider string
	Missing  []string // environment variable names
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider requested but not configured: set %s",
		e.Provider, strings.Join(e.Missing, ", "))
}

// TransportError is a non-success HTTP status or connection-level
// failure. Fatal per call, never retried; the body is kept for
// diagnostics.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("claude API error (status %d): %s", e.Status, e.Body)
}

// ErrEmbeddingUnsupported is returned by providers without an
// embedding endpoint.
var ErrEmbeddingUnsupported = errors.New("embeddings not supported by this provider")
