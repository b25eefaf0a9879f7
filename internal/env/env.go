// Package env reads process configuration from environment variables.
package env

import (
	"os"
	"strconv"
	"strings"
)

// Str returns the value of the environment variable key, or fallback if unset/empty.
func Str(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// Int returns the integer value of key, or fallback if unset/empty/unparseable.
func Int(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

// Float returns the float64 value of key, or fallback if unset/empty/unparseable.
func Float(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Provider is one configured LLM endpoint: name|base_url|model|api_key.
type Provider struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
}

// Providers parses a semicolon-separated provider list from key. Each entry
// is "name|base_url|model[|api_key]"; a missing api_key falls back to
// defaultAPIKeyEnv. If key is unset, falls back to reading fallbackKey
// instead (e.g. INTENT_LLM_PROVIDERS falling back to LLM_PROVIDERS). If
// nothing is configured, returns a single "default" provider built from
// defaultBaseURLEnv/defaultModelEnv/defaultAPIKeyEnv.
func Providers(key, fallbackKey, defaultAPIKeyEnv, defaultBaseURLEnv, defaultModelEnv string) []Provider {
	raw := os.Getenv(key)
	if raw == "" && fallbackKey != "" {
		raw = os.Getenv(fallbackKey)
	}

	var providers []Provider
	if raw != "" {
		for _, entry := range strings.Split(raw, ";") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := strings.Split(entry, "|")
			if len(parts) < 3 {
				continue
			}
			apiKey := Str(defaultAPIKeyEnv, "")
			if len(parts) > 3 && parts[3] != "" {
				apiKey = strings.TrimSpace(parts[3])
			}
			providers = append(providers, Provider{
				Name:    strings.TrimSpace(parts[0]),
				BaseURL: strings.TrimSpace(parts[1]),
				Model:   strings.TrimSpace(parts[2]),
				APIKey:  apiKey,
			})
		}
	}

	if len(providers) == 0 {
		providers = append(providers, Provider{
			Name:    "default",
			APIKey:  Str(defaultAPIKeyEnv, Str("OPENAI_API_KEY", "")),
			BaseURL: Str(defaultBaseURLEnv, Str("OPENAI_BASE_URL", "http://127.0.0.1:8045/v1")),
			Model:   Str(defaultModelEnv, Str("OPENAI_LLM_MODEL", "claude-sonnet-4-5")),
		})
	}
	return providers
}
