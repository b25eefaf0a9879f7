package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
	"github.com/hubenschmidt/voice-gateway/internal/metrics"
)

// minPCMBytes is the shortest utterance worth transcribing (~0.5s at 16kHz/16-bit mono).
const minPCMBytes = 16000

// STTClient submits raw PCM to a remote Whisper-compatible transcription endpoint.
type STTClient struct {
	url      string
	model    string
	language string
	client   *http.Client
}

// NewSTTClient creates a client for the given transcription endpoint.
func NewSTTClient(url, model, language string, poolSize int) *STTClient {
	return &STTClient{
		url:      url,
		model:    model,
		language: language,
		client:   NewPooledHTTPClient(poolSize, 30*time.Second),
	}
}

// Transcribe wraps 16kHz mono PCM in a WAV container and posts it for
// transcription. Returns the empty string (not an error) for short
// utterances or remote failures, per the adapter's error-handling policy.
func (c *STTClient) Transcribe(ctx context.Context, pcm []byte) string {
	if len(pcm) < minPCMBytes {
		return ""
	}

	start := time.Now()
	wavData := audio.WrapPCM(pcm, audio.InputSampleRate)

	body, contentType, err := buildMultipartWAV(wavData, c.model, c.language)
	if err != nil {
		metrics.Errors.WithLabelValues("stt", "build_request").Inc()
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/audio/transcriptions", body)
	if err != nil {
		metrics.Errors.WithLabelValues("stt", "build_request").Inc()
		return ""
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("stt", "http").Inc()
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		metrics.Errors.WithLabelValues("stt", "status").Inc()
		return ""
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.Errors.WithLabelValues("stt", "decode").Inc()
		return ""
	}

	metrics.StageDuration.WithLabelValues("stt").Observe(time.Since(start).Seconds())
	return strings.TrimSpace(result.Text)
}

func buildMultipartWAV(wavData []byte, model, language string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}
	if model != "" {
		if err := writer.WriteField("model", model); err != nil {
			return nil, "", fmt.Errorf("write model field: %w", err)
		}
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}

	return &body, writer.FormDataContentType(), nil
}
