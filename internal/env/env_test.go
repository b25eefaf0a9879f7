package env

import "testing"

func TestStrFallback(t *testing.T) {
	if got := Str("ENV_TEST_UNSET_STR", "fallback"); got != "fallback" {
		t.Errorf("Str() = %q, want fallback", got)
	}
	t.Setenv("ENV_TEST_STR", "value")
	if got := Str("ENV_TEST_STR", "fallback"); got != "value" {
		t.Errorf("Str() = %q, want value", got)
	}
}

func TestIntFallbackOnUnparseable(t *testing.T) {
	t.Setenv("ENV_TEST_INT", "not-a-number")
	if got := Int("ENV_TEST_INT", 42); got != 42 {
		t.Errorf("Int() = %d, want fallback 42", got)
	}
	t.Setenv("ENV_TEST_INT", "7")
	if got := Int("ENV_TEST_INT", 42); got != 7 {
		t.Errorf("Int() = %d, want 7", got)
	}
}

func TestFloatFallbackOnUnparseable(t *testing.T) {
	t.Setenv("ENV_TEST_FLOAT", "nope")
	if got := Float("ENV_TEST_FLOAT", 0.7); got != 0.7 {
		t.Errorf("Float() = %v, want fallback 0.7", got)
	}
	t.Setenv("ENV_TEST_FLOAT", "1.5")
	if got := Float("ENV_TEST_FLOAT", 0.7); got != 1.5 {
		t.Errorf("Float() = %v, want 1.5", got)
	}
}

func TestProvidersParsesSemicolonList(t *testing.T) {
	t.Setenv("TEST_LLM_PROVIDERS", "local|http://127.0.0.1:8045/v1|claude-sonnet-4-5; groq|https://api.groq.com/openai/v1|llama-3.3-70b|gk_abc")
	providers := Providers("TEST_LLM_PROVIDERS", "", "TEST_OPENAI_API_KEY", "TEST_OPENAI_BASE_URL", "TEST_OPENAI_LLM_MODEL")
	if len(providers) != 2 {
		t.Fatalf("got %d providers, want 2: %+v", len(providers), providers)
	}
	if providers[0].Name != "local" || providers[0].Model != "claude-sonnet-4-5" {
		t.Errorf("providers[0] = %+v", providers[0])
	}
	if providers[1].Name != "groq" || providers[1].APIKey != "gk_abc" {
		t.Errorf("providers[1] = %+v", providers[1])
	}
}

func TestProvidersFallsBackToFallbackKey(t *testing.T) {
	t.Setenv("TEST_MAIN_PROVIDERS", "local|http://x|model-a")
	providers := Providers("TEST_INTENT_PROVIDERS_UNSET", "TEST_MAIN_PROVIDERS", "TEST_API_KEY", "TEST_BASE_URL", "TEST_MODEL")
	if len(providers) != 1 || providers[0].Name != "local" {
		t.Errorf("got %+v, want one provider named local from the fallback key", providers)
	}
}

func TestProvidersDefaultWhenNothingConfigured(t *testing.T) {
	providers := Providers("TEST_UNSET_A", "TEST_UNSET_B", "TEST_UNSET_KEY", "TEST_UNSET_URL", "TEST_UNSET_MODEL")
	if len(providers) != 1 || providers[0].Name != "default" {
		t.Fatalf("got %+v, want a single default provider", providers)
	}
	if providers[0].BaseURL != "http://127.0.0.1:8045/v1" {
		t.Errorf("default BaseURL = %q, want the local fallback endpoint", providers[0].BaseURL)
	}
}

func TestProvidersSkipsEntriesMissingRequiredFields(t *testing.T) {
	t.Setenv("TEST_SPARSE_PROVIDERS", "incomplete|only-two-fields;valid|http://x|model-b")
	providers := Providers("TEST_SPARSE_PROVIDERS", "", "K", "U", "M")
	if len(providers) != 1 || providers[0].Name != "valid" {
		t.Errorf("got %+v, want only the well-formed entry", providers)
	}
}
