package audio

import (
	"fmt"
	"os"
	"path/filepath"

	shine "github.com/braheezy/shine-mp3/pkg/mp3"

	"github.com/vocalign/vocalign/pkg/types"
)

// ClipWriter materializes one AudioSegment as a playable clip file.
//
// Implementations must be safe for concurrent use.
type ClipWriter interface {
	// WriteClip writes the segment's audio into dir and returns the path of
	// the created file. The file name is derived from the segment ID so
	// repeated writes of the same segment overwrite rather than accumulate.
	WriteClip(segment *types.AudioSegment, dir string) (path string, err error)
}

// MP3ClipWriter writes MP3 clips using the pure-Go shine encoder. MP3 is the
// format study-card applications expect for embedded audio.
type MP3ClipWriter struct{}

// Compile-time interface assertion.
var _ ClipWriter = (*MP3ClipWriter)(nil)

// NewMP3ClipWriter returns an MP3ClipWriter.
func NewMP3ClipWriter() *MP3ClipWriter { return &MP3ClipWriter{} }

// WriteClip encodes segment.Samples as <dir>/<segment_id>.mp3.
func (w *MP3ClipWriter) WriteClip(segment *types.AudioSegment, dir string) (string, error) {
	if len(segment.Samples) == 0 {
		return "", fmt.Errorf("audio: segment %s has no samples", segment.SegmentID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: create clip dir %q: %w", dir, err)
	}

	path := filepath.Join(dir, segment.SegmentID+".mp3")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("audio: create clip %q: %w", path, err)
	}
	defer f.Close()

	enc := shine.NewEncoder(segment.SampleRate, 1)
	pcm := make([]int16, len(segment.Samples))
	for i, s := range segment.Samples {
		pcm[i] = Float32ToInt16(s)
	}
	if err := enc.Write(f, pcm); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("audio: encode clip %q: %w", path, err)
	}
	return path, nil
}

// WAVClipWriter writes uncompressed WAV clips. Useful for debugging and for
// card tools that prefer lossless audio.
type WAVClipWriter struct{}

// Compile-time interface assertion.
var _ ClipWriter = (*WAVClipWriter)(nil)

// NewWAVClipWriter returns a WAVClipWriter.
func NewWAVClipWriter() *WAVClipWriter { return &WAVClipWriter{} }

// WriteClip encodes segment.Samples as <dir>/<segment_id>.wav.
func (w *WAVClipWriter) WriteClip(segment *types.AudioSegment, dir string) (string, error) {
	if len(segment.Samples) == 0 {
		return "", fmt.Errorf("audio: segment %s has no samples", segment.SegmentID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: create clip dir %q: %w", dir, err)
	}

	path := filepath.Join(dir, segment.SegmentID+".wav")
	if err := os.WriteFile(path, EncodeWAV(segment.Samples, segment.SampleRate), 0o644); err != nil {
		return "", fmt.Errorf("audio: write clip %q: %w", path, err)
	}
	return path, nil
}
