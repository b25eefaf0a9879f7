package audio

import (
	"bytes"
	"testing"
)

func TestWrapUnwrapPCMRoundTrip(t *testing.T) {
	pcm := Int16ToBytes([]int16{1, 2, 3, -4, 5, -6})
	wav := WrapPCM(pcm, 16000)

	gotPCM, gotRate, err := UnwrapPCM(wav)
	if err != nil {
		t.Fatalf("UnwrapPCM: %v", err)
	}
	if gotRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", gotRate)
	}
	if !bytes.Equal(gotPCM, pcm) {
		t.Errorf("pcm round trip mismatch: got %v, want %v", gotPCM, pcm)
	}
}

func TestWrapPCMHeaderLength(t *testing.T) {
	wav := WrapPCM([]byte{1, 2, 3, 4}, 24000)
	if len(wav) != 48 {
		t.Errorf("len(wav) = %d, want 48 (44 header + 4 data)", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Errorf("missing RIFF/WAVE markers: %v", wav[0:12])
	}
}

func TestUnwrapPCMRejectsNonRIFF(t *testing.T) {
	if _, _, err := UnwrapPCM([]byte("not a wav file at all, too short")); err == nil {
		t.Error("expected an error for a non-RIFF buffer")
	}
}

func TestUnwrapPCMRejectsTruncatedData(t *testing.T) {
	wav := WrapPCM([]byte{1, 2, 3, 4}, 16000)
	truncated := wav[:len(wav)-2]
	if _, _, err := UnwrapPCM(truncated); err == nil {
		t.Error("expected an error when declared data length exceeds buffer")
	}
}
