package main

import (
	"github.com/hubenschmidt/voice-gateway/internal/env"
	"github.com/hubenschmidt/voice-gateway/internal/prompts"
)

// config holds every deployment knob the gateway reads from its environment.
type config struct {
	port string

	llmProviders       []env.Provider
	llmMaxTokens       int
	llmTemperature     float64
	llmSystemPrompt    string
	intentLLMProviders []env.Provider

	sttBaseURL  string
	sttModel    string
	sttLanguage string
	sttPoolSize int

	ttsModelPath  string
	ttsSpeakerID  int
	ttsSpeed      float64
	ttsVoiceStyle string
	piperBinary   string
	ffmpegBinary  string
	ytDlpBinary   string

	maxChatHistory int
	preferFastOnly bool

	traceDBPath         string
	alarmDBPath         string
	defaultRingtonePath string
}

func loadConfig() config {
	env.LoadDotenv(".env")

	return config{
		port: env.Str("GATEWAY_PORT", "8000"),

		llmProviders:       env.Providers("LLM_PROVIDERS", "", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_LLM_MODEL"),
		llmMaxTokens:       env.Int("LLM_MAX_TOKENS", 500),
		llmTemperature:     env.Float("LLM_TEMPERATURE", 0.7),
		llmSystemPrompt:    env.Str("LLM_SYSTEM_PROMPT", prompts.DefaultSystem),
		intentLLMProviders: intentProviders(),

		// STT defaults to the Groq-hosted Whisper endpoint, matching the
		// original's STTConfig default provider.
		sttBaseURL:  env.Str("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		sttModel:    env.Str("STT_MODEL", "whisper-large-v3-turbo"),
		sttLanguage: env.Str("STT_LANGUAGE", "vi"),
		sttPoolSize: env.Int("ASR_POOL_SIZE", 10),

		ttsModelPath:  env.Str("TTS_MODEL_PATH", "models/vi_VN-vais1000-medium.onnx"),
		ttsSpeakerID:  env.Int("TTS_SPEAKER_ID", -1),
		ttsSpeed:      env.Float("TTS_SPEED", 0.7),
		ttsVoiceStyle: env.Str("TTS_VOICE_STYLE", "normal"),
		piperBinary:   env.Str("PIPER_BINARY", "piper"),
		ffmpegBinary:  env.Str("FFMPEG_BINARY", "ffmpeg"),
		ytDlpBinary:   env.Str("YTDLP_BINARY", "yt-dlp"),

		maxChatHistory: env.Int("MAX_CHAT_HISTORY", 20),
		preferFastOnly: env.Str("PREFER_FAST_ONLY", "") == "true",

		traceDBPath:         env.Str("TRACE_DB_PATH", "data/trace.db"),
		alarmDBPath:         env.Str("ALARM_DB_PATH", "data/alarm.db"),
		defaultRingtonePath: env.Str("DEFAULT_RINGTONE_PATH", "data/ringtone.wav"),
	}
}

// intentProviders mirrors config.py's rule: a dedicated INTENT_LLM_PROVIDERS
// chain when set, otherwise the main LLM_PROVIDERS chain. When neither is
// set it returns one default provider from INTENT_LLM_API_KEY/BASE_URL/MODEL,
// each falling back to its OPENAI_* counterpart; with OPENAI_BASE_URL also
// unset that is the local http://127.0.0.1:8045/v1 endpoint.
func intentProviders() []env.Provider {
	return env.Providers("INTENT_LLM_PROVIDERS", "LLM_PROVIDERS", "INTENT_LLM_API_KEY", "INTENT_LLM_BASE_URL", "INTENT_LLM_MODEL")
}
