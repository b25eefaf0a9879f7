package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
	"github.com/hubenschmidt/voice-gateway/internal/metrics"
)

const (
	piperSampleRate  = 22050
	pcmQueueCapacity = 32
)

// TTSConfig configures the local synthesizer, output voice shaping, and the
// external subprocesses used for remote media playback.
type TTSConfig struct {
	PiperBinary  string
	ModelPath    string
	SpeakerID    int
	Speed        float64
	VoiceStyle   string // normal | robot | robot_soft | robot_deep
	FFmpegBinary string
	YtDlpBinary  string
}

// TTSAdapter synthesizes speech locally and streams remote audio sources,
// always yielding compressed 60ms outbound Opus frames.
type TTSAdapter struct {
	cfg      TTSConfig
	up, down int // resample ratio: piperSampleRate -> audio.OutputSampleRate
}

// NewTTSAdapter precomputes the resample ratio for the configured voice model.
func NewTTSAdapter(cfg TTSConfig) *TTSAdapter {
	up, down := audio.ReduceRatio(audio.OutputSampleRate, piperSampleRate)
	return &TTSAdapter{cfg: cfg, up: up, down: down}
}

// Synthesize drives Piper as a subprocess in a background goroutine that
// pushes raw PCM chunks onto a bounded channel. The consumer resamples,
// applies voice-style shaping (state scoped to this call), appends to a
// residual buffer, and emits one compressed frame per full buffer. The
// residual is zero-padded and emitted once more at stream end. onFrame
// returning false aborts the stream and kills the subprocess.
func (a *TTSAdapter) Synthesize(ctx context.Context, enc *audio.Encoder, text string, onFrame func([]byte) bool) error {
	start := time.Now()
	_, profile := audio.ResolveRobotVoiceProfile(a.cfg.VoiceStyle)
	voice := audio.NewRobotVoice(profile, audio.OutputSampleRate)

	cmd := a.piperCommand(ctx, text)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("piper stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start piper: %w", err)
	}

	pcmCh := make(chan []byte, pcmQueueCapacity)
	go func() {
		defer close(pcmCh)
		buf := make([]byte, 4096)
		for {
			n, rerr := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case pcmCh <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if rerr != nil {
				return
			}
		}
	}()

	frameBytes := enc.FrameBytes()
	var residual []byte
	firstFrame := true
	aborted := false

	for chunk := range pcmCh {
		if ctx.Err() != nil {
			aborted = true
			break
		}
		samples := audio.BytesToInt16(chunk)
		resampled := audio.Resample(samples, a.up, a.down)
		shaped := voice.Process(audio.Int16ToBytes(resampled))
		residual = append(residual, shaped...)

		for len(residual) >= frameBytes {
			frame, ferr := enc.Encode(residual[:frameBytes])
			residual = residual[frameBytes:]
			if ferr != nil {
				metrics.Errors.WithLabelValues("tts", "encode").Inc()
				continue
			}
			if firstFrame {
				metrics.StageDuration.WithLabelValues("tts_first_frame").Observe(time.Since(start).Seconds())
				firstFrame = false
			}
			if !onFrame(frame) {
				aborted = true
				break
			}
		}
		if aborted {
			break
		}
	}

	if aborted {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
		return nil
	}

	if err := cmd.Wait(); err != nil {
		metrics.Errors.WithLabelValues("tts", "piper_exit").Inc()
	}

	if len(residual) > 0 {
		padded := make([]byte, frameBytes)
		copy(padded, residual)
		if frame, ferr := enc.Encode(padded); ferr == nil {
			onFrame(frame)
		}
	}

	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	return nil
}

func (a *TTSAdapter) piperCommand(ctx context.Context, text string) *exec.Cmd {
	args := []string{"--model", a.cfg.ModelPath, "--output-raw"}
	if a.cfg.SpeakerID > 0 {
		args = append(args, "--speaker", fmt.Sprintf("%d", a.cfg.SpeakerID))
	}
	if a.cfg.Speed > 0 {
		args = append(args, "--length-scale", fmt.Sprintf("%f", 1.0/a.cfg.Speed))
	}
	cmd := exec.CommandContext(ctx, a.cfg.PiperBinary, args...)
	cmd.Stdin = strings.NewReader(text + "\n")
	return cmd
}

// StreamAudioURL spawns an external media decoder subprocess (reconnect on
// transient errors, raw 16-bit little-endian mono PCM at the target rate),
// frame-aligns its stdout, encodes, and yields frames. The subprocess is
// killed on cancellation or when onFrame requests a stop.
func (a *TTSAdapter) StreamAudioURL(ctx context.Context, enc *audio.Encoder, url string, onFrame func([]byte) bool) error {
	args := []string{
		"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5",
		"-i", url,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", "1", "-ar", fmt.Sprintf("%d", audio.OutputSampleRate),
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, a.cfg.FFmpegBinary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	}()

	frameBytes := enc.FrameBytes()
	reader := bufio.NewReaderSize(stdout, 8*1024)
	buf := make([]byte, 8*1024)
	var residual []byte

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, rerr := reader.Read(buf)
		if n > 0 {
			residual = append(residual, buf[:n]...)
			for len(residual) >= frameBytes {
				frame, ferr := enc.Encode(residual[:frameBytes])
				residual = residual[frameBytes:]
				if ferr != nil {
					metrics.Errors.WithLabelValues("tts", "encode").Inc()
					continue
				}
				if !onFrame(frame) {
					return nil
				}
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				metrics.Errors.WithLabelValues("tts", "ffmpeg_read").Inc()
			}
			break
		}
	}

	if len(residual) > 0 {
		padded := make([]byte, frameBytes)
		copy(padded, residual)
		if frame, ferr := enc.Encode(padded); ferr == nil {
			onFrame(frame)
		}
	}
	return nil
}

// StreamFullSongByQuery resolves a direct media URL for a search query via
// an external resolver, then delegates to StreamAudioURL. Yields no frames
// if resolution fails.
func (a *TTSAdapter) StreamFullSongByQuery(ctx context.Context, enc *audio.Encoder, query string, onFrame func([]byte) bool) error {
	cmd := exec.CommandContext(ctx, a.cfg.YtDlpBinary,
		"-f", "bestaudio",
		"-g",
		fmt.Sprintf("ytsearch1:%s official audio", query),
	)
	out, err := cmd.Output()
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "resolver").Inc()
		return nil
	}
	url := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if url == "" {
		return nil
	}
	return a.StreamAudioURL(ctx, enc, url, onFrame)
}
