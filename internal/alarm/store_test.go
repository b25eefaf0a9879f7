package alarm

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "alarm.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAppendAndDueAlarms(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	past := Record{ID: "past", ISOTime: now.Add(-time.Hour).Format(time.RFC3339), Message: "past", CreatedAt: now.Format(time.RFC3339)}
	future := Record{ID: "future", ISOTime: now.Add(time.Hour).Format(time.RFC3339), Message: "future", CreatedAt: now.Format(time.RFC3339)}

	if err := store.Append(past); err != nil {
		t.Fatalf("Append past: %v", err)
	}
	if err := store.Append(future); err != nil {
		t.Fatalf("Append future: %v", err)
	}

	due, err := store.DueAlarms(now)
	if err != nil {
		t.Fatalf("DueAlarms: %v", err)
	}
	if len(due) != 1 || due[0].ID != "past" {
		t.Fatalf("DueAlarms = %+v, want only %q", due, "past")
	}
}

func TestStoreMarkTriggeredExcludesFromDueAlarms(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	rec := Record{ID: "a1", ISOTime: now.Add(-time.Minute).Format(time.RFC3339), Message: "m", CreatedAt: now.Format(time.RFC3339)}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := store.MarkTriggered("a1"); err != nil {
		t.Fatalf("MarkTriggered: %v", err)
	}

	due, err := store.DueAlarms(now)
	if err != nil {
		t.Fatalf("DueAlarms: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("DueAlarms after MarkTriggered = %+v, want empty", due)
	}
}

func TestStoreAppendPersistsRingtone(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	rec := Record{ID: "r1", ISOTime: now.Add(-time.Minute).Format(time.RFC3339), Message: "m", Ringtone: "chime.wav", CreatedAt: now.Format(time.RFC3339)}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	due, err := store.DueAlarms(now)
	if err != nil {
		t.Fatalf("DueAlarms: %v", err)
	}
	if len(due) != 1 || due[0].Ringtone != "chime.wav" {
		t.Fatalf("DueAlarms = %+v, want Ringtone=chime.wav", due)
	}
}
