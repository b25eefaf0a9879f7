package alarm

import (
	"math"
	"os"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
)

const (
	ringtoneDurationSec = 3
	ringtoneToneAHz     = 880.0
	ringtoneToneBHz     = 1320.0
)

// EnsureDefaultRingtone writes a synthesized 3-second two-tone 24kHz WAV to
// path if no file exists there yet.
func EnsureDefaultRingtone(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, synthesizeTwoTone(), 0o644)
}

func synthesizeTwoTone() []byte {
	n := ringtoneDurationSec * audio.OutputSampleRate
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(audio.OutputSampleRate)
		v := 0.5*math.Sin(2*math.Pi*ringtoneToneAHz*t) + 0.5*math.Sin(2*math.Pi*ringtoneToneBHz*t)
		samples[i] = audioClampInt16(v * 0.6 * 32767)
	}
	pcm := audio.Int16ToBytes(samples)
	return audio.WrapPCM(pcm, audio.OutputSampleRate)
}

func audioClampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
