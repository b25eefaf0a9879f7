package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_sessions_active",
		Help: "Currently connected voice sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_sessions_total",
		Help: "Total sessions accepted",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_stage_duration_seconds",
		Help:    "Per-stage latency (stt, tts, tts_first_frame)",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	E2EDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_e2e_duration_seconds",
		Help:    "End-to-end latency from speech-end to first TTS audio frame",
		Buckets: []float64{0.1, 0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_frames_decoded_total",
		Help: "Total inbound Opus frames decoded",
	})

	FramesEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_frames_encoded_total",
		Help: "Total outbound Opus frames encoded",
	})

	SpeechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_vad_speech_segments_total",
		Help: "Utterances where VAD confirmed speech",
	})

	IdleGoodbyes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_idle_goodbyes_total",
		Help: "Idle-goodbye events fired by the transport handler",
	})

	ProviderFailovers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_llm_provider_failovers_total",
		Help: "LLM provider failover events by failed provider name",
	}, []string{"provider"})

	AlarmsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_alarms_triggered_total",
		Help: "Alarms marked triggered by the scheduler",
	})

	IntentFastPathHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_intent_fastpath_total",
		Help: "detect_fast classifications by resulting intent",
	}, []string{"intent"})
)
