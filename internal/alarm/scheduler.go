package alarm

import (
	"context"
	"log/slog"
	"time"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
	"github.com/hubenschmidt/voice-gateway/internal/metrics"
	"github.com/hubenschmidt/voice-gateway/internal/session"
)

const (
	pollInterval = 5 * time.Second
	// playDuration bounds how long a triggered alarm loops its ringtone;
	// the alarm record itself carries no duration field.
	playDuration = 15 * time.Second
	// binaryMessage is the WebSocket binary data message type (RFC 6455
	// opcode 2), the value Conn.WriteMessage expects for audio frames.
	binaryMessage = 2
)

// AudioStreamer is the subset of the TTS adapter the scheduler needs. Kept
// as a narrow interface so this package never imports the pipeline package.
type AudioStreamer interface {
	StreamAudioURL(ctx context.Context, enc *audio.Encoder, url string, onFrame func([]byte) bool) error
}

// Scheduler polls the alarm store and, for every alarm that comes due,
// pushes a tts/start -> sentence_start -> ringtone frames -> tts/stop burst
// into every currently connected session.
type Scheduler struct {
	store               *Store
	registry            *session.Registry
	tts                 AudioStreamer
	defaultRingtonePath string
	logger              *slog.Logger
}

func NewScheduler(store *Store, registry *session.Registry, tts AudioStreamer, defaultRingtonePath string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:               store,
		registry:            registry,
		tts:                 tts,
		defaultRingtonePath: defaultRingtonePath,
		logger:              logger,
	}
}

// Run polls every 5 seconds until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.store.DueAlarms(time.Now())
	if err != nil {
		s.logger.Error("alarm store poll failed", "error", err)
		return
	}
	for _, rec := range due {
		if err := s.store.MarkTriggered(rec.ID); err != nil {
			s.logger.Error("alarm mark triggered failed", "id", rec.ID, "error", err)
			continue
		}
		metrics.AlarmsTriggered.Inc()

		ringtone := rec.Ringtone
		if ringtone == "" {
			ringtone = s.defaultRingtonePath
		}
		for _, entry := range s.registry.All() {
			go s.deliver(ctx, entry, rec, ringtone)
		}
	}
}

// deliver is best-effort and never affects other sessions or the scheduler
// loop. A failed start/sentence_start send or a ringtone stream error logs
// and ends this session's delivery; a failed frame send logs and ends only
// the current ringtone pass, and the loop streams again until playDuration.
func (s *Scheduler) deliver(ctx context.Context, entry *session.Entry, rec Record, ringtonePath string) {
	sessionID := entry.Session.ID

	sendJSON := func(v any) bool {
		entry.SendMu.Lock()
		defer entry.SendMu.Unlock()
		if err := entry.Conn.WriteJSON(v); err != nil {
			s.logger.Warn("alarm delivery send failed", "session_id", sessionID, "error", err)
			return false
		}
		return true
	}

	if !sendJSON(map[string]any{"type": "tts", "state": "start", "session_id": sessionID}) {
		return
	}
	if !sendJSON(map[string]any{"type": "tts", "state": "sentence_start", "text": rec.Message, "session_id": sessionID}) {
		return
	}

	enc, err := audio.NewEncoder()
	if err != nil {
		s.logger.Error("alarm delivery encoder init failed", "session_id", sessionID, "error", err)
		return
	}

	onFrame := func(frame []byte) bool {
		entry.SendMu.Lock()
		defer entry.SendMu.Unlock()
		if err := entry.Conn.WriteMessage(binaryMessage, frame); err != nil {
			s.logger.Warn("alarm delivery frame send failed", "session_id", sessionID, "error", err)
			return false
		}
		return true
	}

	deadline := time.Now().Add(playDuration)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if err := s.tts.StreamAudioURL(ctx, enc, ringtonePath, onFrame); err != nil {
			s.logger.Warn("alarm ringtone stream failed", "session_id", sessionID, "error", err)
			break
		}
	}

	sendJSON(map[string]any{"type": "tts", "state": "stop", "session_id": sessionID})
}
