package alarm

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
	"github.com/hubenschmidt/voice-gateway/internal/session"
)

type fakeStreamer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeStreamer) StreamAudioURL(ctx context.Context, enc *audio.Encoder, url string, onFrame func([]byte) bool) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	onFrame(make([]byte, 10))
	return nil
}

func (f *fakeStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeConn struct {
	mu       sync.Mutex
	jsonMsgs []map[string]any
	binMsgs  int
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := v.(map[string]any); ok {
		f.jsonMsgs = append(f.jsonMsgs, m)
	}
	return nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binMsgs++
	return nil
}

func (f *fakeConn) snapshot() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.jsonMsgs))
	copy(out, f.jsonMsgs)
	return out
}

func TestSchedulerTickDeliversDueAlarmToConnectedSessions(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "alarm.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now().UTC()
	rec := Record{ID: "a1", ISOTime: now.Add(-time.Minute).Format(time.RFC3339), Message: "dậy thôi", CreatedAt: now.Format(time.RFC3339)}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	registry := session.NewRegistry()
	s := session.New("dev-1", "client-1", nil, 0)
	conn := &fakeConn{}
	registry.Register(s, conn)

	streamer := &fakeStreamer{}
	scheduler := NewScheduler(store, registry, streamer, "default-ringtone.wav", nil)

	// Run one tick directly rather than waiting on the 5s poll ticker. deliver()
	// fires in its own goroutine and loops on playDuration, so cancel as soon
	// as the assertions below are done to avoid a background busy-loop.
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	scheduler.tick(ctx)

	// deliver() runs in its own goroutine and loops for playDuration; give it
	// a moment to send the initial tts/start and sentence_start messages.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(conn.snapshot()) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	msgs := conn.snapshot()
	if len(msgs) < 2 {
		t.Fatalf("got %d json messages, want at least tts/start and sentence_start: %+v", len(msgs), msgs)
	}
	if msgs[0]["state"] != "start" {
		t.Errorf("first message state = %v, want start", msgs[0]["state"])
	}
	if msgs[1]["text"] != "dậy thôi" {
		t.Errorf("sentence_start text = %v, want %q", msgs[1]["text"], "dậy thôi")
	}
	cancel()

	due, err := store.DueAlarms(now)
	if err != nil {
		t.Fatalf("DueAlarms: %v", err)
	}
	if len(due) != 0 {
		t.Error("alarm should be marked triggered and excluded from DueAlarms after tick")
	}
}

func TestSchedulerTickSkipsWhenNoAlarmsDue(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "alarm.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := session.NewRegistry()
	streamer := &fakeStreamer{}
	scheduler := NewScheduler(store, registry, streamer, "default-ringtone.wav", nil)

	scheduler.tick(context.Background())

	if streamer.callCount() != 0 {
		t.Error("no alarms due, expected no delivery attempts")
	}
}
