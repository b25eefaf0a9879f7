package audio

import (
	"encoding/binary"
	"math"
)

// BytesToInt16 converts little-endian PCM bytes to int16 samples.
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := range n {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

// Int16ToBytes converts int16 samples to little-endian PCM bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// RMS computes the root-mean-square energy of little-endian int16 PCM bytes.
func RMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	samples := BytesToInt16(pcm)
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		f := float64(s)
		sumSq += f * f
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}
