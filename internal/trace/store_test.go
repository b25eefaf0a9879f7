package trace

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "trace.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateSessionAndListSessions(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateSession("s1", `{"device":"d1"}`); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sessions, total, err := store.ListSessions(10, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if total != 1 || len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("ListSessions = %+v, total=%d", sessions, total)
	}
}

func TestCreateRunAndGetSessionIncludesRuns(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateSession("s1", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.CreateRun("r1", "s1"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.UpdateRun("r1", 123.4, "xin chào", "chào bạn", "ok"); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	sess, runs, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.ID != "s1" {
		t.Errorf("session ID = %q, want s1", sess.ID)
	}
	if len(runs) != 1 || runs[0].Status != "ok" || runs[0].Transcript != "xin chào" {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestCreateSpanAndGetRunIncludesSpans(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateSession("s1", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.CreateRun("r1", "s1"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.CreateSpan(Span{ID: "sp1", RunID: "r1", Name: "stt", Status: "ok"}); err != nil {
		t.Fatalf("CreateSpan: %v", err)
	}

	run, spans, err := store.GetRun("s1", "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.ID != "r1" {
		t.Errorf("run ID = %q, want r1", run.ID)
	}
	if len(spans) != 1 || spans[0].Name != "stt" {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestEndSessionSetsEndedAt(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateSession("s1", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.EndSession("s1"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	sess, _, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.EndedAt == nil {
		t.Error("expected EndedAt to be set after EndSession")
	}
}
