// Package openai implements asr.Provider on the hosted OpenAI transcription
// API. It exists primarily as a fallback backend behind the local
// whisper.cpp provider: slower and metered, but available on machines
// without a local model build.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vocalign/vocalign/pkg/audio"
	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/types"
)

// Provider implements asr.Provider using the OpenAI transcription API.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL  string
	timeout  time.Duration
	language string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithLanguage sets the ISO-639-1 recognition language hint. Defaults to
// "zh", since the hosted API does not expose a Cantonese dialect tag.
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// Compile-time interface assertion.
var _ asr.Provider = (*Provider)(nil)

// New constructs a Provider. model is the transcription model name
// (e.g. "whisper-1").
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = string(oai.AudioModelWhisper1)
	}

	cfg := &config{language: "zh"}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client:   oai.NewClient(reqOpts...),
		model:    model,
		language: cfg.language,
	}, nil
}

// Transcribe uploads the samples as a WAV buffer and returns the recognised
// text. Confidence is derived from returned token logprobs when the model
// reports them, otherwise a neutral 0.5 is used so downstream scoring leans
// on phonetic similarity instead.
func (p *Provider) Transcribe(ctx context.Context, samples []float32, sampleRate int) (types.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcription{}, fmt.Errorf("openai: context cancelled: %w", err)
	}
	if len(samples) == 0 {
		return types.Transcription{}, fmt.Errorf("openai: no samples")
	}

	wav := audio.EncodeWAV(samples, sampleRate)

	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model:    oai.AudioModel(p.model),
		File:     oai.File(bytes.NewReader(wav), "segment.wav", "audio/wav"),
		Language: oai.String(p.language),
	})
	if err != nil {
		return types.Transcription{}, fmt.Errorf("openai: transcribe: %w", err)
	}

	confidence := 0.5
	if n := len(resp.Logprobs); n > 0 {
		var sum float64
		for _, lp := range resp.Logprobs {
			sum += lp.Logprob
		}
		confidence = math.Exp(sum / float64(n))
		if confidence > 1 {
			confidence = 1
		}
	}

	return types.Transcription{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: confidence,
	}, nil
}
