package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
	"github.com/hubenschmidt/voice-gateway/internal/intent"
	"github.com/hubenschmidt/voice-gateway/internal/mcptools"
	"github.com/hubenschmidt/voice-gateway/internal/metrics"
	"github.com/hubenschmidt/voice-gateway/internal/trace"
)

const (
	sentenceChannelBuffer = 4
	sentenceGraceMs       = 50

	ackFmt = "Đang mở bài %s của %s."
)

// Turn is one conversation turn, independent of the session package's type
// so this package never needs to import it.
type Turn struct {
	Role    string
	Content string
}

// Callbacks are the client-facing hooks the orchestrator drives, invoked
// synchronously from whichever internal goroutine produced the event.
// Callers are responsible for their own send serialization (the transport's
// per-session send mutex).
type Callbacks struct {
	OnSTTResult   func(text string)
	OnTTSStart    func()
	OnTTSSentence func(text string)
	OnTTSAudio    func(frame []byte)
	OnTTSStop     func()
	OnMusicAction func(result mcptools.Result)
}

// Config bundles every adapter the orchestrator drives for one session.
type Config struct {
	STT *STTClient
	LLM *LLMAdapter
	TTS *TTSAdapter
	// IntentLLM is the provider chain used for the parallel JSON intent
	// classification pass. Falls back to LLM when nil, e.g. when
	// INTENT_LLM_PROVIDERS was never set and the deployment shares one
	// provider chain for both generation and classification.
	IntentLLM      *LLMAdapter
	Tools          *mcptools.Registry
	PreferFastOnly bool
	Tracer         *trace.Tracer
	SessionID      string
}

func (c Config) intentLLM() *LLMAdapter {
	if c.IntentLLM != nil {
		return c.IntentLLM
	}
	return c.LLM
}

// Pipeline runs one utterance at a time: STT, then either the music fast
// path or the generative LLM+TTS path.
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

type queueItem struct {
	isSentence bool
	text       string
	frame      []byte
}

// Process runs process(pcm, history, callbacks, is_aborted). ok is false
// when nothing was said: an empty transcript, or a generative turn that
// produced no text.
func (p *Pipeline) Process(ctx context.Context, pcm []byte, history []Turn, cb Callbacks, isAborted func() bool) (userText, assistantText string, ok bool) {
	e2eStart := time.Now()
	var e2eOnce sync.Once
	if onAudio := cb.OnTTSAudio; onAudio != nil {
		cb.OnTTSAudio = func(frame []byte) {
			e2eOnce.Do(func() { metrics.E2EDuration.Observe(time.Since(e2eStart).Seconds()) })
			onAudio(frame)
		}
	}
	runID := ""
	if p.cfg.Tracer != nil {
		runID = p.cfg.Tracer.StartRun()
	}

	sttStart := time.Now()
	userText = p.cfg.STT.Transcribe(ctx, pcm)
	p.traceSpan(runID, trace.StageSTT, sttStart, fmt.Sprintf("pcm_bytes=%d", len(pcm)), userText, nil)
	if userText == "" {
		p.endRun(runID, e2eStart, "", "", "empty")
		return "", "", false
	}
	if cb.OnSTTResult != nil {
		cb.OnSTTResult(userText)
	}

	fast := intent.DetectFast(userText)
	if fast.Intent == "music" {
		p.runMusic(ctx, fast.SongName, cb, isAborted)
		p.endRun(runID, e2eStart, userText, "", "ok")
		return userText, "", true
	}

	assistantText = p.runGenerative(ctx, userText, history, cb, isAborted, runID)
	if assistantText == "" {
		p.endRun(runID, e2eStart, userText, "", "empty")
		return userText, "", false
	}
	p.endRun(runID, e2eStart, userText, assistantText, "ok")
	return userText, assistantText, true
}

// runMusic implements the fast-path music step: acknowledge, then stream
// the full song, falling back to the Deezer preview clip on resolution failure.
func (p *Pipeline) runMusic(ctx context.Context, songName string, cb Callbacks, isAborted func() bool) {
	if cb.OnTTSStart != nil {
		cb.OnTTSStart()
	}

	result := p.cfg.Tools.CallTool(ctx, "search_vietnamese_music", map[string]any{"song_name": songName})
	if cb.OnMusicAction != nil {
		cb.OnMusicAction(result)
	}

	p.playMusicResult(ctx, result, cb, isAborted)

	if !isAborted() && cb.OnTTSStop != nil {
		cb.OnTTSStop()
	}
}

// playMusicResult speaks the acknowledgement line, then streams the
// resolved full song or falls back to the preview clip.
func (p *Pipeline) playMusicResult(ctx context.Context, result mcptools.Result, cb Callbacks, isAborted func() bool) {
	title, artist, previewURL := topTrack(result)

	enc, err := audio.NewEncoder()
	if err != nil {
		slog.Error("music encoder init failed", "error", err)
		return
	}
	pacer := NewPacer(audio.OutputFrameMs * time.Millisecond)
	onFrame := pacedSink(pacer, cb.OnTTSAudio, isAborted)

	if title != "" {
		ack := fmt.Sprintf(ackFmt, title, artist)
		p.cfg.TTS.Synthesize(ctx, enc, ack, onFrame)
	}
	if isAborted() {
		return
	}

	played := false
	if title != "" {
		frames := 0
		counting := func(frame []byte) bool {
			frames++
			return onFrame(frame)
		}
		p.cfg.TTS.StreamFullSongByQuery(ctx, enc, strings.TrimSpace(title+" "+artist), counting)
		played = frames > 0
	}
	if !played && previewURL != "" && !isAborted() {
		p.cfg.TTS.StreamAudioURL(ctx, enc, previewURL, onFrame)
	}
}

// topTrack pulls the first match out of a search_vietnamese_music result,
// reading the in-process JSON payload directly rather than round-tripping
// through a marshal/unmarshal.
func topTrack(result mcptools.Result) (title, artist, previewURL string) {
	for _, item := range result.Content {
		m, ok := item.JSON.(map[string]any)
		if !ok {
			continue
		}
		tracks, ok := m["tracks"].([]mcptools.Track)
		if !ok || len(tracks) == 0 {
			continue
		}
		return tracks[0].Title, tracks[0].Artist, tracks[0].PreviewURL
	}
	return "", "", ""
}

func pacedSink(pacer *Pacer, onFrame func([]byte), isAborted func() bool) func([]byte) bool {
	return func(frame []byte) bool {
		if isAborted() {
			return false
		}
		pacer.Wait()
		if onFrame != nil {
			onFrame(frame)
		}
		return true
	}
}

// runGenerative implements the generative path: a producer synthesizes
// audio per sentence as the LLM streams, a consumer paces emission, and a
// parallel intent-detection task may redirect to the music path mid-stream.
func (p *Pipeline) runGenerative(ctx context.Context, userText string, history []Turn, cb Callbacks, isAborted func() bool, runID string) string {
	if cb.OnTTSStart != nil {
		cb.OnTTSStart()
	}

	enc, err := audio.NewEncoder()
	if err != nil {
		slog.Error("generative encoder init failed", "error", err)
		if !isAborted() && cb.OnTTSStop != nil {
			cb.OnTTSStop()
		}
		return ""
	}

	chatHistory := make([]ChatTurn, 0, len(history))
	for _, t := range history {
		chatHistory = append(chatHistory, ChatTurn{Role: t.Role, Content: t.Content})
	}

	var musicActive atomic.Bool
	var musicResult atomic.Value // mcptools.Result
	var intentWg sync.WaitGroup

	if !p.cfg.PreferFastOnly {
		intentWg.Add(1)
		go func() {
			defer intentWg.Done()
			res := intent.Detect(ctx, p.cfg.intentLLM(), userText)
			if res.Intent != "music" {
				return
			}
			musicActive.Store(true)
			r := p.cfg.Tools.CallTool(ctx, "search_vietnamese_music", map[string]any{"song_name": res.SongName})
			musicResult.Store(r)
		}()
	}

	queue := make(chan queueItem, sentenceChannelBuffer)
	var fullResponse strings.Builder

	llmStart := time.Now()
	go func() {
		defer close(queue)
		var buf sentenceBuffer
		p.cfg.LLM.ChatStream(ctx, userText, chatHistory, func(delta string) {
			fullResponse.WriteString(delta)
			buf.Feed(delta)
			for {
				if isAborted() || musicActive.Load() {
					return
				}
				chunk, ok := buf.Extract()
				if !ok {
					return
				}
				p.emitChunk(ctx, queue, enc, chunk, isAborted, &musicActive)
			}
		})
		if !isAborted() && !musicActive.Load() {
			if chunk, ok := buf.Flush(); ok {
				p.emitChunk(ctx, queue, enc, chunk, isAborted, &musicActive)
			}
		}
	}()

	p.consumeQueue(queue, cb, isAborted)
	p.traceSpan(runID, trace.StageLLM, llmStart, userText, fullResponse.String(), nil)

	intentWg.Wait()
	if musicActive.Load() && !isAborted() {
		if r, ok := musicResult.Load().(mcptools.Result); ok {
			if cb.OnMusicAction != nil {
				cb.OnMusicAction(r)
			}
			p.playMusicResult(ctx, r, cb, isAborted)
		}
	}

	if !isAborted() && cb.OnTTSStop != nil {
		cb.OnTTSStop()
	}
	return strings.TrimSpace(fullResponse.String())
}

// emitChunk enqueues a sentence marker followed by the Opus frames
// synthesized for it. Returns false if the chunk was abandoned mid-stream.
func (p *Pipeline) emitChunk(ctx context.Context, queue chan<- queueItem, enc *audio.Encoder, text string, isAborted func() bool, musicActive *atomic.Bool) bool {
	if isAborted() || musicActive.Load() {
		return false
	}
	select {
	case queue <- queueItem{isSentence: true, text: text}:
	case <-ctx.Done():
		return false
	}

	complete := true
	p.cfg.TTS.Synthesize(ctx, enc, text, func(frame []byte) bool {
		if isAborted() || musicActive.Load() {
			complete = false
			return false
		}
		select {
		case queue <- queueItem{frame: frame}:
			return true
		case <-ctx.Done():
			complete = false
			return false
		}
	})
	return complete
}

// consumeQueue drains the producer's queue, holding the inter-sentence
// grace pause and enforcing the steady-state pacing rule on frames.
func (p *Pipeline) consumeQueue(queue <-chan queueItem, cb Callbacks, isAborted func() bool) {
	pacer := NewPacer(audio.OutputFrameMs * time.Millisecond)
	grace := time.Duration(audio.OutputFrameMs+sentenceGraceMs) * time.Millisecond
	playedOne := false

	for item := range queue {
		if isAborted() {
			continue
		}
		if item.isSentence {
			if playedOne {
				time.Sleep(grace)
			}
			playedOne = true
			if cb.OnTTSSentence != nil {
				cb.OnTTSSentence(item.text)
			}
			continue
		}
		pacer.Wait()
		if cb.OnTTSAudio != nil {
			cb.OnTTSAudio(item.frame)
		}
	}
}

func (p *Pipeline) traceSpan(runID string, stage trace.Stage, start time.Time, input, output string, err error) {
	if p.cfg.Tracer == nil || runID == "" {
		return
	}
	status, errMsg := "ok", ""
	if err != nil {
		status, errMsg = "error", err.Error()
	}
	p.cfg.Tracer.RecordSpan(runID, stage, start, float64(time.Since(start).Milliseconds()), input, output, status, errMsg)
}

func (p *Pipeline) endRun(runID string, start time.Time, transcript, response, status string) {
	if p.cfg.Tracer == nil || runID == "" {
		return
	}
	p.cfg.Tracer.EndRun(runID, float64(time.Since(start).Milliseconds()), transcript, response, status)
}
