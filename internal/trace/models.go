package trace

import "time"

// Stage names a pipeline stage a Span records. Keeping it as a distinct
// type (rather than a bare string) ties the generic run/span model to the
// specific stages the voice pipeline actually has.
type Stage string

const (
	StageSTT    Stage = "stt"
	StageIntent Stage = "intent"
	StageLLM    Stage = "llm"
	StageTTS    Stage = "tts"
	StageMusic  Stage = "music"
)

// Session represents one device's WebSocket connection, identified the same
// way session.Session is (device_id/client_id JSON-encoded into Metadata by
// the caller), so a trace session can be matched back to a live one.
type Session struct {
	ID        string     `json:"id"`
	Metadata  string     `json:"metadata"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	RunCount  int        `json:"run_count,omitempty"`
}

// Run represents one pipeline execution: one speech segment carried through
// STT -> intent detection -> LLM/music -> TTS.
type Run struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Response   string    `json:"response,omitempty"`
	Status     string    `json:"status"`
	SpanCount  int       `json:"span_count,omitempty"`
}

// Span represents one pipeline stage's execution within a Run.
type Span struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Name       Stage     `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms"`
	Input      string    `json:"input,omitempty"`
	Output     string    `json:"output,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}
