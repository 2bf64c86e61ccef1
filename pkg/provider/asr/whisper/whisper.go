// Package whisper implements asr.Provider using the whisper.cpp CGO bindings.
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h) must
// be available at link time via LIBRARY_PATH and C_INCLUDE_PATH environment
// variables.
//
// The model is loaded once at construction and shared across all concurrent
// Transcribe calls; each call creates its own whisper context because
// contexts are not thread-safe while the model is.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/types"
)

const (
	// defaultLanguage is Cantonese; whisper models recognise it under the
	// "yue" tag, falling back to "zh" on models without the dialect split.
	defaultLanguage = "yue"

	// whisperSampleRate is the only sample rate whisper.cpp accepts.
	whisperSampleRate = 16000
)

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider implements asr.Provider on a locally loaded whisper.cpp model.
type Provider struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the recognition language tag (e.g. "yue", "zh", "en").
// Defaults to "yue".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference over the given samples. Input at a
// rate other than 16 kHz is linearly resampled first.
func (p *Provider) Transcribe(ctx context.Context, samples []float32, sampleRate int) (types.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcription{}, fmt.Errorf("whisper: context cancelled: %w", err)
	}
	if len(samples) == 0 {
		return types.Transcription{}, errors.New("whisper: no samples")
	}
	if sampleRate != whisperSampleRate {
		samples = resampleLinear(samples, sampleRate, whisperSampleRate)
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return types.Transcription{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return types.Transcription{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts    []string
		segments []types.TranscriptionSegment
		probSum  float64
		probN    int
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Transcription{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)

		var segProb float64
		for _, tok := range segment.Tokens {
			segProb += float64(tok.P)
		}
		if n := len(segment.Tokens); n > 0 {
			segProb /= float64(n)
			probSum += segProb
			probN++
		}
		segments = append(segments, types.TranscriptionSegment{
			Text:       text,
			Start:      segment.Start.Seconds(),
			End:        segment.End.Seconds(),
			Confidence: segProb,
		})
	}

	confidence := 0.5 // models without token probabilities get a neutral score
	if probN > 0 {
		confidence = probSum / float64(probN)
	}

	return types.Transcription{
		Text:       strings.Join(parts, " "),
		Confidence: confidence,
		Segments:   segments,
	}, nil
}

// resampleLinear converts samples from one rate to another by linear
// interpolation. Adequate for speech recognition input; not a general
// purpose resampler.
func resampleLinear(in []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(in) == 0 {
		return in
	}
	outLen := int(int64(len(in)) * int64(toRate) / int64(fromRate))
	if outLen == 0 {
		return nil
	}
	out := make([]float32, outLen)
	ratio := float64(len(in)-1) / float64(outLen-1)
	if outLen == 1 {
		ratio = 0
	}
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))
		if idx+1 < len(in) {
			out[i] = in[idx]*(1-frac) + in[idx+1]*frac
		} else {
			out[i] = in[len(in)-1]
		}
	}
	return out
}
