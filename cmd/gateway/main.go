package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hubenschmidt/voice-gateway/internal/alarm"
	"github.com/hubenschmidt/voice-gateway/internal/env"
	"github.com/hubenschmidt/voice-gateway/internal/mcptools"
	"github.com/hubenschmidt/voice-gateway/internal/pipeline"
	"github.com/hubenschmidt/voice-gateway/internal/session"
	"github.com/hubenschmidt/voice-gateway/internal/trace"
	"github.com/hubenschmidt/voice-gateway/internal/ws"
)

const version = "0.1.0"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	llm := pipeline.NewLLMAdapter(buildProviders(cfg.llmProviders), cfg.llmSystemPrompt, cfg.llmMaxTokens, cfg.llmTemperature)
	intentLLM := pipeline.NewLLMAdapter(buildProviders(cfg.intentLLMProviders), cfg.llmSystemPrompt, cfg.llmMaxTokens, cfg.llmTemperature)

	stt := pipeline.NewSTTClient(cfg.sttBaseURL, cfg.sttModel, cfg.sttLanguage, cfg.sttPoolSize)
	tts := pipeline.NewTTSAdapter(pipeline.TTSConfig{
		PiperBinary:  cfg.piperBinary,
		ModelPath:    cfg.ttsModelPath,
		SpeakerID:    cfg.ttsSpeakerID,
		Speed:        cfg.ttsSpeed,
		VoiceStyle:   cfg.ttsVoiceStyle,
		FFmpegBinary: cfg.ffmpegBinary,
		YtDlpBinary:  cfg.ytDlpBinary,
	})

	if err := os.MkdirAll("data", 0o755); err != nil {
		slog.Error("data dir create failed", "error", err)
		os.Exit(1)
	}

	alarmStore, err := alarm.Open(cfg.alarmDBPath)
	if err != nil {
		slog.Error("alarm store open failed", "error", err)
		os.Exit(1)
	}
	defer alarmStore.Close()

	if err := alarm.EnsureDefaultRingtone(cfg.defaultRingtonePath); err != nil {
		slog.Error("default ringtone synth failed", "error", err)
		os.Exit(1)
	}

	traceStore, err := trace.Open(cfg.traceDBPath)
	if err != nil {
		slog.Error("trace store open failed", "error", err)
		os.Exit(1)
	}
	defer traceStore.Close()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	tools, err := mcptools.NewRegistry(alarmStore, httpClient)
	if err != nil {
		slog.Error("mcp tool registry init failed", "error", err)
		os.Exit(1)
	}

	registry := session.NewRegistry()

	scheduler := alarm.NewScheduler(alarmStore, registry, tts, cfg.defaultRingtonePath, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	handler := ws.NewHandler(ws.HandlerConfig{
		STT:             stt,
		LLM:             llm,
		IntentLLM:       intentLLM,
		TTS:             tts,
		Tools:           tools,
		Registry:        registry,
		TraceStore:      traceStore,
		PreferFastOnly:  cfg.preferFastOnly,
		MaxHistoryTurns: cfg.maxChatHistory,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		registry:   registry,
		traceStore: traceStore,
		wsHandler:  handler,
		version:    version,
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, cancel)

	slog.Info("gateway starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}

func buildProviders(specs []env.Provider) []*pipeline.LLMProvider {
	providers := make([]*pipeline.LLMProvider, 0, len(specs))
	for _, s := range specs {
		providers = append(providers, pipeline.NewLLMProvider(s.Name, s.BaseURL, s.Model, s.APIKey))
	}
	return providers
}

func awaitShutdown(srv *http.Server, cancelBackground context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	cancelBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
