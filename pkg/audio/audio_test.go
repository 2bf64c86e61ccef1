package audio_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/vocalign/vocalign/pkg/audio"
)

func TestPCM16RoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.5, -0.5, 0.999, -0.999, 0.001}
	out := audio.PCM16ToFloat32(audio.Float32ToPCM16(in))
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > 2.0/32768 {
			t.Errorf("sample %d: got %f, want %f", i, out[i], in[i])
		}
	}
}

func TestFloat32ToInt16_Clamps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float32
		want int16
	}{
		{2.0, 32767},
		{1.0, 32767},
		{-2.0, -32767},
		{0, 0},
	}
	for _, tc := range cases {
		if got := audio.Float32ToInt16(tc.in); got != tc.want {
			t.Errorf("Float32ToInt16(%f) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPCM16ToFloat32Mono_Downmix(t *testing.T) {
	t.Parallel()

	// One stereo frame: left at full positive, right at zero.
	stereo := audio.Float32ToPCM16([]float32{0.8, 0})
	mono := audio.PCM16ToFloat32Mono(stereo, 2)
	if len(mono) != 1 {
		t.Fatalf("got %d samples, want 1", len(mono))
	}
	if diff := math.Abs(float64(mono[0]) - 0.4); diff > 0.001 {
		t.Errorf("downmixed sample = %f, want 0.4", mono[0])
	}
}

func TestRMSAndDBFS(t *testing.T) {
	t.Parallel()

	if got := audio.RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
	constant := make([]float32, 100)
	for i := range constant {
		constant[i] = 0.5
	}
	if got := audio.RMS(constant); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("RMS = %f, want 0.5", got)
	}
	if got := audio.RMSToDBFS(0); got != -120 {
		t.Errorf("RMSToDBFS(0) = %f, want -120", got)
	}
	if got := audio.RMSToDBFS(1.0); math.Abs(got) > 1e-9 {
		t.Errorf("RMSToDBFS(1.0) = %f, want 0", got)
	}
	if got := audio.RMSToDBFS(0.1); math.Abs(got+20) > 1e-9 {
		t.Errorf("RMSToDBFS(0.1) = %f, want -20", got)
	}
}

func TestZeroCrossingRate(t *testing.T) {
	t.Parallel()

	alternating := []float32{1, -1, 1, -1, 1}
	if got := audio.ZeroCrossingRate(alternating); got != 1.0 {
		t.Errorf("alternating ZCR = %f, want 1.0", got)
	}
	flat := []float32{1, 1, 1, 1}
	if got := audio.ZeroCrossingRate(flat); got != 0 {
		t.Errorf("flat ZCR = %f, want 0", got)
	}
	if got := audio.ZeroCrossingRate([]float32{1}); got != 0 {
		t.Errorf("single-sample ZCR = %f, want 0", got)
	}
}

func TestFrames(t *testing.T) {
	t.Parallel()

	samples := make([]float32, 1000)
	frames := audio.Frames(samples, 400)
	// Two full windows plus a 200-sample partial, which is kept at half the
	// window size.
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[1].Start != 400 {
		t.Errorf("frame 1 start = %d, want 400", frames[1].Start)
	}

	// A 100-sample partial after two windows is dropped.
	frames = audio.Frames(make([]float32, 900), 400)
	if len(frames) != 2 {
		t.Errorf("got %d frames, want 2 (short partial dropped)", len(frames))
	}

	if audio.Frames(nil, 400) != nil {
		t.Error("Frames(nil) != nil")
	}
	if audio.Frames(samples, 0) != nil {
		t.Error("Frames with zero window != nil")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	in := make([]float32, 1600)
	for i := range in {
		in[i] = 0.4 * float32(math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, audio.EncodeWAV(in, 16000), 0o644); err != nil {
		t.Fatal(err)
	}

	out, rate, err := audio.NewFileLoader().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > 2.0/32768 {
			t.Fatalf("sample %d: got %f, want %f", i, out[i], in[i])
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := audio.NewFileLoader().Load(filepath.Join(t.TempDir(), "absent.wav"))
	if !errors.Is(err, audio.ErrUnreadable) {
		t.Errorf("error = %v, want ErrUnreadable", err)
	}
}

func TestLoad_CorruptWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("not a riff container at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := audio.NewFileLoader().Load(path)
	if !errors.Is(err, audio.ErrCorrupt) {
		t.Errorf("error = %v, want ErrCorrupt", err)
	}
}

func TestLoad_EmptyWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := os.WriteFile(path, audio.EncodeWAV(nil, 16000), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := audio.NewFileLoader().Load(path)
	if !errors.Is(err, audio.ErrEmpty) {
		t.Errorf("error = %v, want ErrEmpty", err)
	}
}
