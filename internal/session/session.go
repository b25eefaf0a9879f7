// Package session holds per-connection voice session state and the
// process-wide registry that the transport handler owns.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
)

const defaultMaxHistory = 20

// Turn is one conversation turn. Role is "user" or "assistant"; the system
// prompt is prepended by the LLM adapter and never stored here.
type Turn struct {
	Role    string
	Content string
}

// Session is the per-connection state created at accept and destroyed at close.
type Session struct {
	ID       string
	DeviceID string
	ClientID string

	Decoder *audio.Decoder
	VAD     *audio.VAD

	Speaking bool
	Aborted  bool
	Idling   bool

	FrameCount        int
	PipelineTriggered bool

	CreatedAt time.Time

	mu         sync.Mutex
	pcmBuffer  []byte
	history    []Turn
	maxHistory int
}

// New creates a session with a fresh opaque identifier and an empty state.
func New(deviceID, clientID string, decoder *audio.Decoder, maxHistory int) *Session {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Session{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		ClientID:   clientID,
		Decoder:    decoder,
		VAD:        audio.NewVAD(),
		maxHistory: maxHistory,
		CreatedAt:  time.Now(),
	}
}

// AppendPCM appends decoded PCM bytes to the pending buffer. The buffer is
// always a multiple of 2 bytes since the codec only ever emits whole int16 samples.
func (s *Session) AppendPCM(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcmBuffer = append(s.pcmBuffer, pcm...)
}

// BufferedBytes reports the current pending PCM length.
func (s *Session) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pcmBuffer)
}

// TakeAudioBuffer atomically drains and returns the pending PCM buffer.
func (s *Session) TakeAudioBuffer() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.pcmBuffer
	s.pcmBuffer = nil
	return buf
}

// ResetAudioBuffer clears the pending PCM buffer without returning it.
func (s *Session) ResetAudioBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcmBuffer = nil
}

// History returns a snapshot of the bounded conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// AppendHistory appends a turn, evicting the oldest entry once max_history
// is exceeded so the last entry (when non-empty) is always "assistant" right
// after an assistant turn is recorded.
func (s *Session) AppendHistory(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Content: content})
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// ResetUtterance clears per-utterance state on listen start/detect: the PCM
// buffer, VAD counters, frame counter, and the pipeline-triggered flag.
func (s *Session) ResetUtterance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcmBuffer = nil
	s.VAD.Reset()
	s.FrameCount = 0
	s.PipelineTriggered = false
	s.Idling = false
}
