package mcptools

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/hubenschmidt/voice-gateway/internal/alarm"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	store, err := alarm.Open(filepath.Join(dir, "alarm.db"))
	if err != nil {
		t.Fatalf("alarm.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry, err := NewRegistry(store, &http.Client{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func TestListToolsReturnsBothDescriptors(t *testing.T) {
	registry := newTestRegistry(t)
	names := map[string]bool{}
	for _, d := range registry.ListTools() {
		names[d.Name] = true
	}
	if !names[toolSearchMusic] || !names[toolSetAlarm] {
		t.Errorf("ListTools() = %v, want both %q and %q", names, toolSearchMusic, toolSetAlarm)
	}
}

func TestCallToolUnknownName(t *testing.T) {
	registry := newTestRegistry(t)
	res := registry.CallTool(context.Background(), "not_a_tool", nil)
	if res.OK {
		t.Error("expected a non-OK result for an unknown tool name")
	}
}

func TestCallToolSetAlarmMissingTimeFailsSchemaValidation(t *testing.T) {
	registry := newTestRegistry(t)
	res := registry.CallTool(context.Background(), toolSetAlarm, map[string]any{"message": "wake up"})
	if res.OK {
		t.Error("expected failure: `time` is a required field")
	}
}

func TestCallToolSetAlarmSucceeds(t *testing.T) {
	registry := newTestRegistry(t)
	res := registry.CallTool(context.Background(), toolSetAlarm, map[string]any{
		"time":    "23:59",
		"message": "đi ngủ",
	})
	if !res.OK {
		t.Fatalf("CallTool(set_alarm) failed: %+v", res)
	}
	if len(res.Content) != 2 || res.Content[1].Type != "json" {
		t.Fatalf("expected a json content item, got %+v", res.Content)
	}
}

func TestCallToolSetAlarmUnparsableTimeFails(t *testing.T) {
	registry := newTestRegistry(t)
	res := registry.CallTool(context.Background(), toolSetAlarm, map[string]any{"time": "not a time"})
	if res.OK {
		t.Error("expected failure for an unparsable time")
	}
}

func TestCallToolSetAlarmAcceptsUndocumentedRingtone(t *testing.T) {
	registry := newTestRegistry(t)
	res := registry.CallTool(context.Background(), toolSetAlarm, map[string]any{
		"time":     "23:59",
		"ringtone": "custom.wav",
	})
	if !res.OK {
		t.Fatalf("CallTool(set_alarm) with ringtone failed: %+v", res)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{nil, defaultMusicLimit},
		{float64(3), 3},
		{float64(0), minMusicLimit},
		{float64(100), maxMusicLimit},
		{"not a number", defaultMusicLimit},
	}
	for _, c := range cases {
		if got := clampLimit(c.in); got != c.want {
			t.Errorf("clampLimit(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
