package alarm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hubenschmidt/voice-gateway/internal/audio"
)

func TestEnsureDefaultRingtoneCreatesValidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringtone.wav")
	if err := EnsureDefaultRingtone(path); err != nil {
		t.Fatalf("EnsureDefaultRingtone: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ringtone file: %v", err)
	}

	pcm, rate, err := audio.UnwrapPCM(data)
	if err != nil {
		t.Fatalf("UnwrapPCM: %v", err)
	}
	if rate != audio.OutputSampleRate {
		t.Errorf("sample rate = %d, want %d", rate, audio.OutputSampleRate)
	}
	wantBytes := ringtoneDurationSec * audio.OutputSampleRate * 2
	if len(pcm) != wantBytes {
		t.Errorf("pcm length = %d, want %d", len(pcm), wantBytes)
	}
}

func TestEnsureDefaultRingtoneDoesNotOverwriteExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringtone.wav")
	if err := os.WriteFile(path, []byte("custom ringtone data"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := EnsureDefaultRingtone(path); err != nil {
		t.Fatalf("EnsureDefaultRingtone: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ringtone file: %v", err)
	}
	if string(data) != "custom ringtone data" {
		t.Error("EnsureDefaultRingtone must not overwrite an existing file")
	}
}
