package prompts

import "testing"

func TestForSessionUsesProvidedPrompt(t *testing.T) {
	if got := ForSession("custom persona"); got != "custom persona" {
		t.Errorf("ForSession = %q, want custom persona", got)
	}
}

func TestForSessionFallsBackToDefault(t *testing.T) {
	if got := ForSession(""); got != DefaultSystem {
		t.Errorf("ForSession(\"\") = %q, want DefaultSystem", got)
	}
}
