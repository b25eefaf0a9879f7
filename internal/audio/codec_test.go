package audio

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	samples := make([]int16, OutputFrameSize)
	for i := range samples {
		samples[i] = int16((i % 200) * 100)
	}
	pcm := Int16ToBytes(samples)

	opusFrame, err := enc.Encode(pcm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(opusFrame) == 0 {
		t.Fatal("expected a non-empty opus frame")
	}

	// The encoder ran at OutputSampleRate; the decoder always runs at
	// InputSampleRate, so the packet's duration fixes the decoded size.
	decoded, err := dec.Decode(opusFrame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != InputFrameBytes {
		t.Errorf("decoded length = %d, want %d (decoder is fixed at 16kHz/60ms)", len(decoded), InputFrameBytes)
	}
}

func TestEncodeAllDropsTrailingPartialFrame(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	frameBytes := enc.FrameBytes()
	full := 3*frameBytes + frameBytes/2 // 3 whole frames plus a partial one
	pcm := make([]byte, full)

	frames, err := enc.EncodeAll(pcm)
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	if len(frames) != 3 {
		t.Errorf("got %d frames, want 3 (trailing partial frame dropped)", len(frames))
	}
}

func TestEncodeAllEmptyInput(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	frames, err := enc.EncodeAll(nil)
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("got %d frames, want 0", len(frames))
	}
}
