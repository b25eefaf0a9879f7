package trace

import (
	"strings"
	"testing"
	"time"
)

func TestTracerEndToEndWritesThroughToStore(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateSession("s1", ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	tracer := NewTracer(store, "s1")
	runID := tracer.StartRun()
	if runID == "" {
		t.Fatal("expected a non-empty run ID")
	}
	tracer.RecordSpan(runID, StageSTT, time.Now(), 10, "hi", "hi there", "ok", "")
	tracer.EndRun(runID, 50, "hi", "hi there", "ok")
	tracer.Close()

	run, spans, err := store.GetRun("s1", runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != "ok" {
		t.Errorf("run status = %q, want ok", run.Status)
	}
	if len(spans) != 1 || spans[0].Name != StageSTT {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestTracerNilReceiverIsNoop(t *testing.T) {
	var tracer *Tracer
	if got := tracer.StartRun(); got != "" {
		t.Errorf("nil tracer StartRun() = %q, want empty", got)
	}
	// Must not panic.
	tracer.EndRun("r1", 1, "x", "y", "ok")
	tracer.RecordSpan("r1", "n", time.Now(), 1, "x", "y", "ok", "")
	tracer.Close()
}

func TestTruncateCapsLongFields(t *testing.T) {
	long := strings.Repeat("a", maxTraceFieldLen+50)
	got := truncate(long, maxTraceFieldLen)
	if len(got) != maxTraceFieldLen {
		t.Errorf("truncate() len = %d, want %d", len(got), maxTraceFieldLen)
	}
}

func TestTruncateLeavesShortFieldsUntouched(t *testing.T) {
	short := "hello"
	if got := truncate(short, maxTraceFieldLen); got != short {
		t.Errorf("truncate() = %q, want unchanged %q", got, short)
	}
}
