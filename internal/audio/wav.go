package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WrapPCM packs little-endian mono int16 PCM bytes into a WAV container.
func WrapPCM(pcm []byte, sampleRate int) []byte {
	dataLen := len(pcm)
	totalLen := 44 + dataLen

	buf := make([]byte, totalLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalLen-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[44:], pcm)

	return buf
}

// UnwrapPCM reads back the PCM payload written by WrapPCM, returning the raw
// bytes and the sample rate declared in the header.
func UnwrapPCM(wav []byte) ([]byte, int, error) {
	if len(wav) < 44 || !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE container")
	}
	sampleRate := int(binary.LittleEndian.Uint32(wav[24:28]))
	dataLen := int(binary.LittleEndian.Uint32(wav[40:44]))
	if 44+dataLen > len(wav) {
		return nil, 0, fmt.Errorf("wav data length %d exceeds buffer", dataLen)
	}
	return wav[44 : 44+dataLen], sampleRate, nil
}
