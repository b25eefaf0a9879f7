// Package ws implements the bidirectional device-facing transport: the
// hello/listen/abort/mcp message surface and the binary audio frame path.
package ws

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
	"github.com/hubenschmidt/voice-gateway/internal/mcptools"
	"github.com/hubenschmidt/voice-gateway/internal/metrics"
	"github.com/hubenschmidt/voice-gateway/internal/pipeline"
	"github.com/hubenschmidt/voice-gateway/internal/session"
	"github.com/hubenschmidt/voice-gateway/internal/trace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	// idleGoodbyeFrames is how many inbound frames without detected speech
	// trigger an idle goodbye instead of a pipeline run.
	idleGoodbyeFrames = 167

	// minDisconnectFlushBytes is the PCM buffer size above which a
	// disconnect triggers one best-effort final pipeline run.
	minDisconnectFlushBytes = 3200

	defaultMaxHistoryTurns = 20

	// idleGoodbyeText is spoken once before the connection goes idle.
	idleGoodbyeText = "Bạn ơi, lâu quá không thấy nói gì, tôi đi ngủ đây nhé, khi nào cần thì gọi lại nha!"
	// idleMessage accompanies the idle JSON sent after the goodbye finishes.
	idleMessage = "Server is idling (connection kept open)"
)

// HandlerConfig holds the shared backend clients for every voice session.
type HandlerConfig struct {
	STT            *pipeline.STTClient
	LLM            *pipeline.LLMAdapter
	IntentLLM      *pipeline.LLMAdapter
	TTS            *pipeline.TTSAdapter
	Tools          *mcptools.Registry
	Registry       *session.Registry
	TraceStore     *trace.Store
	PreferFastOnly bool
	// MaxHistoryTurns caps the conversation history kept per session.
	// Falls back to defaultMaxHistoryTurns when zero.
	MaxHistoryTurns int
}

// Handler manages WebSocket voice sessions.
type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// ServeHTTP accepts one connection and runs its session to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	deviceID := r.Header.Get("device-id")
	clientID := r.Header.Get("client-id")
	protocolVersion, _ := strconv.Atoi(r.Header.Get("protocol-version"))
	if protocolVersion == 0 {
		protocolVersion = 1
	}

	decoder, err := audio.NewDecoder()
	if err != nil {
		slog.Error("decoder init failed", "error", err)
		return
	}

	maxHistory := h.cfg.MaxHistoryTurns
	if maxHistory == 0 {
		maxHistory = defaultMaxHistoryTurns
	}
	sess := session.New(deviceID, clientID, decoder, maxHistory)
	h.cfg.Registry.Register(sess, conn)
	h.recordSessionStart(sess)
	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	slog.Info("session accepted", "session_id", sess.ID, "device_id", deviceID, "protocol_version", protocolVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.runSession(ctx, sess, conn, protocolVersion)

	h.maybeFlushOnDisconnect(ctx, sess, conn)
	h.cfg.Registry.Unregister(sess.ID)
	h.recordSessionEnd(sess)
	metrics.SessionsActive.Dec()
	slog.Info("session closed", "session_id", sess.ID)
}

// recordSessionStart persists the device/client identity of a new session
// to the trace store, so the trace replay surface can match a recorded run
// back to the device that produced it. Best-effort: trace recording never
// blocks or fails a live session.
func (h *Handler) recordSessionStart(sess *session.Session) {
	if h.cfg.TraceStore == nil {
		return
	}
	metadata, err := json.Marshal(map[string]string{"device_id": sess.DeviceID, "client_id": sess.ClientID})
	if err != nil {
		return
	}
	if err := h.cfg.TraceStore.CreateSession(sess.ID, string(metadata)); err != nil {
		slog.Warn("trace session create failed", "session_id", sess.ID, "error", err)
	}
}

func (h *Handler) recordSessionEnd(sess *session.Session) {
	if h.cfg.TraceStore == nil {
		return
	}
	if err := h.cfg.TraceStore.EndSession(sess.ID); err != nil {
		slog.Warn("trace session end failed", "session_id", sess.ID, "error", err)
	}
}

func (h *Handler) runSession(ctx context.Context, sess *session.Session, conn *websocket.Conn, protocolVersion int) {
	vad := sess.VAD

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			h.handleText(ctx, sess, conn, data)
		case websocket.BinaryMessage:
			h.handleBinary(ctx, sess, conn, vad, data, protocolVersion)
		}
	}
}

func (h *Handler) maybeFlushOnDisconnect(ctx context.Context, sess *session.Session, conn *websocket.Conn) {
	if sess.PipelineTriggered || sess.BufferedBytes() <= minDisconnectFlushBytes {
		return
	}
	sess.PipelineTriggered = true
	h.runPipeline(ctx, sess, conn)
}

// --- text message handling -------------------------------------------------

func (h *Handler) handleText(ctx context.Context, sess *session.Session, conn *websocket.Conn, data []byte) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return
	}
	msgType, _ := raw["type"].(string)

	switch msgType {
	case "hello":
		h.sendJSON(sess, conn, map[string]any{
			"type":      "hello",
			"transport": "websocket",
			"audio_params": map[string]any{
				"format":         "opus",
				"sample_rate":    audio.OutputSampleRate,
				"channels":       audio.OutputChannels,
				"frame_duration": audio.OutputFrameMs,
			},
		})
	case "listen":
		h.handleListen(ctx, sess, conn, raw)
	case "abort":
		sess.Aborted = true
	case "mcp":
		h.handleMCP(ctx, sess, conn, raw)
	}
}

func (h *Handler) handleListen(ctx context.Context, sess *session.Session, conn *websocket.Conn, raw map[string]any) {
	state, _ := raw["state"].(string)
	switch state {
	case "start", "detect":
		sess.ResetUtterance()
		sess.Aborted = false
	case "stop":
		if !sess.PipelineTriggered {
			sess.PipelineTriggered = true
			go h.runPipeline(ctx, sess, conn)
		}
	}
}

func (h *Handler) handleMCP(ctx context.Context, sess *session.Session, conn *websocket.Conn, raw map[string]any) {
	env := mcpEnvelope(raw)
	op := env.opName()
	switch op {
	case "tools/list", "list_tools", "mcp.tools.list":
		h.sendJSON(sess, conn, map[string]any{
			"type": "mcp", "op": op, "ok": true, "tools": h.cfg.Tools.ListTools(),
		})
	case "tools/call", "call_tool", "mcp.tools.call":
		name, args := env.toolCall()
		result := h.cfg.Tools.CallTool(ctx, name, args)
		h.sendJSON(sess, conn, map[string]any{
			"type": "mcp", "op": op, "ok": result.OK, "name": name, "content": result.Content,
		})
	default:
		h.sendJSON(sess, conn, map[string]any{
			"type": "mcp", "op": op, "ok": false, "error": "unknown mcp operation",
		})
	}
}

// mcpEnvelope accepts either a flat {name, arguments} message or one nested
// under params/payload/payload.params, matching whichever shape the client sent.
type mcpEnvelope map[string]any

func (e mcpEnvelope) opName() string {
	if v, ok := e["op"].(string); ok && v != "" {
		return v
	}
	if v, ok := e["method"].(string); ok && v != "" {
		return v
	}
	return ""
}

func (e mcpEnvelope) toolCall() (name string, arguments map[string]any) {
	candidates := []map[string]any{e}
	if p, ok := e["params"].(map[string]any); ok {
		candidates = append(candidates, p)
	}
	if payload, ok := e["payload"].(map[string]any); ok {
		candidates = append(candidates, payload)
		if pp, ok := payload["params"].(map[string]any); ok {
			candidates = append(candidates, pp)
		}
	}
	for _, c := range candidates {
		if n, ok := c["name"].(string); ok && n != "" {
			name = n
			if a, ok := c["arguments"].(map[string]any); ok {
				arguments = a
			}
			return
		}
	}
	return "", nil
}

// --- binary audio path -------------------------------------------------

func (h *Handler) handleBinary(ctx context.Context, sess *session.Session, conn *websocket.Conn, vad *audio.VAD, data []byte, protocolVersion int) {
	payload := stripFrameHeader(data, protocolVersion)
	if payload == nil {
		return
	}

	pcm, err := sess.Decoder.Decode(payload)
	if err != nil {
		metrics.Errors.WithLabelValues("codec", "decode").Inc()
		return
	}
	metrics.FramesDecoded.Inc()
	sess.AppendPCM(pcm)
	sess.FrameCount++

	rms := audio.RMS(pcm)
	state := vad.Process(rms)

	if state == audio.StateSilenceAfterSpeech {
		if !sess.PipelineTriggered {
			sess.PipelineTriggered = true
			metrics.SpeechSegments.Inc()
			go h.runPipeline(ctx, sess, conn)
		}
		return
	}

	if sess.FrameCount >= idleGoodbyeFrames && !vad.HasSpeech() && !sess.Idling {
		sess.Idling = true
		metrics.IdleGoodbyes.Inc()
		go h.goodbyeAndIdle(ctx, sess, conn)
	}
}

// goodbyeAndIdle speaks the idle farewell (tts/start, sentence_start, paced
// audio frames, tts/stop) before emitting the idle JSON that tells the
// device the connection stays open but the server stopped listening.
func (h *Handler) goodbyeAndIdle(ctx context.Context, sess *session.Session, conn *websocket.Conn) {
	h.sendJSON(sess, conn, map[string]any{"type": "tts", "state": "start"})
	h.sendJSON(sess, conn, map[string]any{"type": "tts", "state": "sentence_start", "text": idleGoodbyeText})

	if enc, err := audio.NewEncoder(); err != nil {
		slog.Error("idle goodbye encoder init failed", "session_id", sess.ID, "error", err)
	} else {
		pacer := pipeline.NewPacer(audio.OutputFrameMs * time.Millisecond)
		if err := h.cfg.TTS.Synthesize(ctx, enc, idleGoodbyeText, func(frame []byte) bool {
			pacer.Wait()
			h.sendBinary(sess, conn, frame)
			return !sess.Aborted
		}); err != nil {
			slog.Warn("idle goodbye synthesis failed", "session_id", sess.ID, "error", err)
		}
	}

	h.sendJSON(sess, conn, map[string]any{"type": "tts", "state": "stop"})
	h.sendJSON(sess, conn, map[string]any{"type": "idle", "message": idleMessage})
}

func stripFrameHeader(data []byte, protocolVersion int) []byte {
	switch protocolVersion {
	case 2:
		if len(data) <= 16 {
			return nil
		}
		return data[16:]
	case 3:
		if len(data) < 4 {
			return nil
		}
		n := int(binary.BigEndian.Uint16(data[2:4]))
		if len(data) < 4+n {
			return nil
		}
		return data[4 : 4+n]
	default:
		return data
	}
}

// --- pipeline invocation -------------------------------------------------

func (h *Handler) runPipeline(ctx context.Context, sess *session.Session, conn *websocket.Conn) {
	pcm := sess.TakeAudioBuffer()
	if len(pcm) == 0 {
		return
	}

	var tracer *trace.Tracer
	if h.cfg.TraceStore != nil {
		tracer = trace.NewTracer(h.cfg.TraceStore, sess.ID)
		defer tracer.Close()
	}

	pipe := pipeline.New(pipeline.Config{
		STT:            h.cfg.STT,
		LLM:            h.cfg.LLM,
		IntentLLM:      h.cfg.IntentLLM,
		TTS:            h.cfg.TTS,
		Tools:          h.cfg.Tools,
		PreferFastOnly: h.cfg.PreferFastOnly,
		Tracer:         tracer,
		SessionID:      sess.ID,
	})

	isAborted := func() bool { return sess.Aborted }
	cb := pipeline.Callbacks{
		OnSTTResult: func(text string) {
			h.sendJSON(sess, conn, map[string]any{"type": "stt", "text": text})
		},
		OnTTSStart: func() {
			sess.Speaking = true
			h.sendJSON(sess, conn, map[string]any{"type": "tts", "state": "start"})
		},
		OnTTSSentence: func(text string) {
			h.sendJSON(sess, conn, map[string]any{"type": "tts", "state": "sentence_start", "text": text})
		},
		OnTTSAudio: func(frame []byte) {
			h.sendBinary(sess, conn, frame)
		},
		OnTTSStop: func() {
			sess.Speaking = false
			h.sendJSON(sess, conn, map[string]any{"type": "tts", "state": "stop"})
		},
		OnMusicAction: func(result mcptools.Result) {
			h.sendJSON(sess, conn, map[string]any{"type": "mcp", "op": "tools/call", "ok": result.OK, "name": "search_vietnamese_music", "content": result.Content})
		},
	}

	userText, assistantText, ok := pipe.Process(ctx, pcm, sess.History(), cb, isAborted)
	if !ok {
		return
	}
	sess.AppendHistory("user", userText)
	if assistantText != "" {
		sess.AppendHistory("assistant", assistantText)
	}
}

// --- send helpers -------------------------------------------------

func (h *Handler) sendJSON(sess *session.Session, conn *websocket.Conn, v map[string]any) {
	v["session_id"] = sess.ID
	entry, ok := h.cfg.Registry.Get(sess.ID)
	if !ok {
		return
	}
	entry.SendMu.Lock()
	defer entry.SendMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		slog.Warn("send json failed", "session_id", sess.ID, "error", err)
	}
}

func (h *Handler) sendBinary(sess *session.Session, conn *websocket.Conn, frame []byte) {
	entry, ok := h.cfg.Registry.Get(sess.ID)
	if !ok {
		return
	}
	entry.SendMu.Lock()
	defer entry.SendMu.Unlock()
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		slog.Warn("send frame failed", "session_id", sess.ID, "error", err)
		return
	}
	metrics.FramesEncoded.Inc()
}
