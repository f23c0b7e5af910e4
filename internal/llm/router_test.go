package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/termbridge/termbridge/internal/config"
)

func configuredFor(key, base string) *config.Config {
	cfg := &config.Config{}
	cfg.Anthropic.APIKey = key
	cfg.Anthropic.BaseURL = base
	return cfg
}

func TestSelectEmptyModel(t *testing.T) {
	p, err := Select("", configuredFor("k", "http://x"))
	if p != nil || err != nil {
		t.Fatalf("empty model should be native: %v, %v", p, err)
	}
	p, err = Select("   ", configuredFor("k", "http://x"))
	if p != nil || err != nil {
		t.Fatalf("blank model should be native: %v, %v", p, err)
	}
}

func TestSelectNativeModels(t *testing.T) {
	for _, model := range []string{"gpt-4o", "gemini-pro", "llama3", "clau"} {
		p, err := Select(model, configuredFor("", ""))
		if p != nil || err != nil {
			t.Errorf("%s: expected native path, got %v, %v", model, p, err)
		}
	}
}

func TestSelectClaudeConfigured(t *testing.T) {
	for _, model := range []string{"claude-sonnet-4", "Claude-Opus", "anthropic/claude-haiku"} {
		p, err := Select(model, configuredFor("key", "http://proxy.local"))
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		if p == nil {
			t.Fatalf("%s: expected adapter", model)
		}
	}
}

func TestSelectClaudeMissingConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *config.Config
		missing []string
	}{
		{"both", configuredFor("", ""), []string{config.EnvAnthropicAPIKey, config.EnvAnthropicBaseURL}},
		{"no key", configuredFor("", "http://x"), []string{config.EnvAnthropicAPIKey}},
		{"no base", configuredFor("k", ""), []string{config.EnvAnthropicBaseURL}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Select("claude-sonnet-4", tc.cfg)
			if p != nil {
				t.Fatal("no adapter expected")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if len(ce.Missing) != len(tc.missing) {
				t.Fatalf("missing = %v, want %v", ce.Missing, tc.missing)
			}
			for _, name := range tc.missing {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("error %q does not name %s", err.Error(), name)
				}
			}
		})
	}
}
