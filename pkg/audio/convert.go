// Package audio provides PCM loading, conversion, analysis, and clip-writing
// utilities for the vocalign pipeline.
//
// All functions operate on mono float32 samples normalised to [-1.0, 1.0],
// which is the sample format every downstream component (boundary detector,
// ASR providers, validators) consumes.
package audio

import "encoding/binary"

// PCM16ToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0]. The input length must be even
// (two bytes per sample); any trailing odd byte is silently ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// PCM16ToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame. If channels is 1 this is equivalent to
// PCM16ToFloat32.
func PCM16ToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return PCM16ToFloat32(pcm)
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// Float32ToPCM16 converts float32 samples in [-1.0, 1.0] back to 16-bit
// signed little-endian PCM bytes. Values outside the range are clamped.
func Float32ToPCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(Float32ToInt16(s)))
	}
	return pcm
}

// Float32ToInt16 converts a single float32 sample to int16 with clamping.
func Float32ToInt16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767)
}
