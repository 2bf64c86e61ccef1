// Package asr defines the Provider interface for automatic speech recognition
// backends.
//
// An ASR provider wraps a transcription model (a local whisper.cpp build or
// the hosted Whisper API) and exposes a single blocking call: given mono PCM
// samples it returns the recognised text with a confidence score. The aligner
// treats providers as black boxes: transcription quality is scored
// downstream by the phonetic comparator, never trusted blindly.
//
// Implementations must be safe for concurrent use: the aligner issues
// independent Transcribe calls for unrelated candidate segments in parallel.
package asr

import (
	"context"

	"github.com/vocalign/vocalign/pkg/types"
)

// Provider is the abstraction over any transcription backend.
type Provider interface {
	// Transcribe runs speech recognition over the given mono samples
	// (normalised to [-1.0, 1.0]) at the given sample rate and returns the
	// recognised text. A transcription may legitimately take seconds;
	// implementations must honour ctx cancellation.
	//
	// An empty-text result with a low confidence is a valid outcome for
	// silent or unintelligible audio; an error indicates the backend itself
	// failed (model load, network, decode).
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (types.Transcription, error)
}
