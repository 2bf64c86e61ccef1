package audio

import "math"

// RMS returns the root-mean-square energy of the samples. An empty slice
// yields 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RMSToDBFS converts a linear RMS value to decibels relative to full scale.
// An RMS of 0 maps to -120 dBFS, the floor used throughout the pipeline.
func RMSToDBFS(rms float64) float64 {
	if rms <= 0 {
		return -120
	}
	db := 20 * math.Log10(rms)
	if db < -120 {
		return -120
	}
	return db
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs whose signs
// differ, in [0, 1]. Voiced speech typically sits well below 0.3; fricatives
// and broadband noise push the rate higher.
func ZeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// Frame is one analysis window over a sample buffer.
type Frame struct {
	// Start is the index of the first sample of the window.
	Start int

	// RMS is the window's root-mean-square energy.
	RMS float64

	// ZCR is the window's zero-crossing rate.
	ZCR float64
}

// Frames slices samples into consecutive windows of windowSize samples and
// computes RMS and zero-crossing rate per window. A trailing partial window
// shorter than windowSize/2 is dropped; longer partials are kept.
func Frames(samples []float32, windowSize int) []Frame {
	if windowSize <= 0 || len(samples) == 0 {
		return nil
	}
	var frames []Frame
	for start := 0; start < len(samples); start += windowSize {
		end := start + windowSize
		if end > len(samples) {
			end = len(samples)
			if end-start < windowSize/2 {
				break
			}
		}
		win := samples[start:end]
		frames = append(frames, Frame{
			Start: start,
			RMS:   RMS(win),
			ZCR:   ZeroCrossingRate(win),
		})
	}
	return frames
}
