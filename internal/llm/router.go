package llm

import (
	"strings"

	"github.com/termbridge/termbridge/internal/config"
)

// Select chooses the adapter for a declared model identifier, or nil
// when the host's native path should handle the request. It is a pure
// function of the identifier and configuration: no fallback chains,
// no inference beyond name matching.
//
// The asymmetry is deliberate: an explicitly requested but
// misconfigured alternate family fails loud with a ConfigError naming
// the missing variables, while an ambiguous or unrecognized
// identifier quietly stays on the native path. Silently running the
// wrong backend is worse than either.
func Select(model string, cfg *config.Config) (Provider, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, nil
	}
	if !isClaudeModel(model) {
		return nil, nil
	}

	var missing []string
	if cfg.Anthropic.APIKey == "" {
		missing = append(missing, config.EnvAnthropicAPIKey)
	}
	if cfg.Anthropic.BaseURL == "" {
		missing = append(missing, config.EnvAnthropicBaseURL)
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Provider: "claude", Missing: missing}
	}

	return NewClaudeProvider(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey, model), nil
}

// isClaudeModel matches the alternate-provider family by name only.
func isClaudeModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "claude") || strings.HasPrefix(m, "anthropic/")
}
