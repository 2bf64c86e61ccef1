package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vocalign/vocalign/internal/config"
	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/provider/vocab"
	"github.com/vocalign/vocalign/pkg/types"
)

type fakeProvider struct{ model string }

func (p *fakeProvider) Transcribe(context.Context, []float32, int) (types.Transcription, error) {
	return types.Transcription{}, nil
}

func TestRegistry_CreateASR(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterASR("fake", func(entry config.ProviderEntry) (asr.Provider, error) {
		return &fakeProvider{model: entry.Model}, nil
	})

	p, err := reg.CreateASR(config.ProviderEntry{Name: "fake", Model: "tiny"})
	if err != nil {
		t.Fatalf("CreateASR: %v", err)
	}
	fp, ok := p.(*fakeProvider)
	if !ok {
		t.Fatalf("CreateASR returned %T", p)
	}
	if fp.model != "tiny" {
		t.Errorf("factory did not receive the entry: model = %q", fp.model)
	}
}

func TestRegistry_UnregisteredName(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	if _, err := reg.CreateASR(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateASR error = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateVocab("nope", "x.tsv"); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateVocab error = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_CreateVocab(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterVocab("tsv", func(path string) (vocab.Source, error) {
		return vocab.NewTSVSource(path), nil
	})
	src, err := reg.CreateVocab("tsv", "words.tsv")
	if err != nil {
		t.Fatalf("CreateVocab: %v", err)
	}
	if src == nil {
		t.Fatal("CreateVocab returned nil source")
	}
}
