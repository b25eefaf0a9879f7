package audio

import (
	"fmt"

	"layeh.com/gopus"
)

// Frame geometry for the device <-> gateway Opus streams. Inbound audio from
// the microphone is 16 kHz mono; outbound synthesized audio is 24 kHz mono.
// Both sides use 60 ms frames.
const (
	InputSampleRate = 16000
	InputChannels   = 1
	InputFrameMs    = 60
	InputFrameSize  = InputSampleRate * InputFrameMs / 1000 // 960 samples
	InputFrameBytes = InputFrameSize * 2                    // 1920 bytes

	OutputSampleRate = 24000
	OutputChannels   = 1
	OutputFrameMs    = 60
	OutputFrameSize  = OutputSampleRate * OutputFrameMs / 1000 // 1440 samples
	OutputFrameBytes = OutputFrameSize * 2                     // 2880 bytes
	OutputBitrate    = 32000
)

// Decoder decodes inbound Opus frames from the device into PCM.
type Decoder struct {
	dec *gopus.Decoder
}

// NewDecoder creates a decoder for 16 kHz mono inbound audio.
func NewDecoder() (*Decoder, error) {
	dec, err := gopus.NewDecoder(InputSampleRate, InputChannels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &Decoder{dec: dec}, nil
}

// Decode converts one 60ms Opus frame into 1920 bytes of little-endian PCM.
// Decode failures are returned to the caller, which logs and drops the frame.
func (d *Decoder) Decode(opusFrame []byte) ([]byte, error) {
	samples, err := d.dec.Decode(opusFrame, InputFrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return Int16ToBytes(samples), nil
}

// Encoder encodes outbound PCM into Opus frames for the device.
type Encoder struct {
	enc *gopus.Encoder
}

// NewEncoder creates an encoder for 24 kHz mono outbound audio with the
// "audio" application hint and a 32 kbps bitrate target.
func NewEncoder() (*Encoder, error) {
	enc, err := gopus.NewEncoder(OutputSampleRate, OutputChannels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(OutputBitrate); err != nil {
		return nil, fmt.Errorf("set opus bitrate: %w", err)
	}
	return &Encoder{enc: enc}, nil
}

// FrameBytes is the number of PCM bytes required for one outbound frame.
func (e *Encoder) FrameBytes() int { return OutputFrameBytes }

// Encode converts one 2880-byte PCM frame to an Opus packet.
func (e *Encoder) Encode(pcm []byte) ([]byte, error) {
	samples := BytesToInt16(pcm)
	opusFrame, err := e.enc.Encode(samples, OutputFrameSize, len(pcm))
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return opusFrame, nil
}

// EncodeAll splits pcm into whole outbound frames and encodes each,
// silently dropping any trailing partial frame.
func (e *Encoder) EncodeAll(pcm []byte) ([][]byte, error) {
	var frames [][]byte
	frameBytes := e.FrameBytes()
	for offset := 0; offset+frameBytes <= len(pcm); offset += frameBytes {
		frame, err := e.Encode(pcm[offset : offset+frameBytes])
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
