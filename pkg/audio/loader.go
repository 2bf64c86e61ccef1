package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mp3lib "github.com/hajimehoshi/go-mp3"
)

// Classified loader errors. Callers use errors.Is to distinguish unreadable
// input from structurally broken input.
var (
	// ErrUnreadable indicates the file could not be opened or read.
	ErrUnreadable = errors.New("audio: file unreadable")

	// ErrEmpty indicates the file decoded to zero samples.
	ErrEmpty = errors.New("audio: file contains no audio data")

	// ErrCorrupt indicates the container or codec data is malformed.
	ErrCorrupt = errors.New("audio: file is corrupt")
)

// Loader decodes a source audio file into mono float32 samples.
//
// Implementations must be safe for concurrent use.
type Loader interface {
	// Load reads the file at path and returns mono samples normalised to
	// [-1.0, 1.0] together with the sample rate in Hz. Errors wrap one of
	// ErrUnreadable, ErrEmpty, or ErrCorrupt.
	Load(path string) (samples []float32, sampleRate int, err error)
}

// FileLoader is the default Loader implementation. It decodes WAV (PCM16)
// and MP3 input based on the file extension.
type FileLoader struct{}

// Compile-time interface assertion.
var _ Loader = (*FileLoader)(nil)

// NewFileLoader returns a FileLoader.
func NewFileLoader() *FileLoader { return &FileLoader{} }

// Load decodes the audio file at path.
func (l *FileLoader) Load(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open %q: %v", ErrUnreadable, path, err)
	}
	defer f.Close()

	var (
		samples []float32
		rate    int
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		samples, rate, err = decodeMP3(f)
	default:
		samples, rate, err = decodeWAV(f)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("decode %q: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("%w: %q", ErrEmpty, path)
	}
	return samples, rate, nil
}

// decodeMP3 decodes an MP3 stream to mono float32 samples. go-mp3 always
// emits 16-bit stereo PCM, so the two channels are averaged.
func decodeMP3(r io.Reader) ([]float32, int, error) {
	dec, err := mp3lib.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read pcm: %v", ErrCorrupt, err)
	}
	return PCM16ToFloat32Mono(pcm, 2), dec.SampleRate(), nil
}

// decodeWAV parses a RIFF/WAVE container holding 16-bit PCM and returns mono
// float32 samples. Multi-channel input is down-mixed by averaging.
func decodeWAV(r io.Reader) ([]float32, int, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, fmt.Errorf("%w: short riff header: %v", ErrCorrupt, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: not a RIFF/WAVE file", ErrCorrupt)
	}

	var (
		sampleRate int
		channels   int
		bits       int
		data       []byte
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, 0, fmt.Errorf("%w: chunk header: %v", ErrCorrupt, err)
		}
		size := binary.LittleEndian.Uint32(chunk[4:8])
		switch string(chunk[0:4]) {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("%w: fmt chunk: %v", ErrCorrupt, err)
			}
			if len(body) < 16 {
				return nil, 0, fmt.Errorf("%w: fmt chunk too short", ErrCorrupt)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != 1 { // PCM
				return nil, 0, fmt.Errorf("%w: unsupported wav format %d (want PCM)", ErrCorrupt, format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			data = make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, 0, fmt.Errorf("%w: data chunk: %v", ErrCorrupt, err)
			}
		default:
			// Skip unknown chunks, honouring RIFF word alignment.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				break
			}
		}
		if sampleRate != 0 && data != nil {
			break
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, 0, fmt.Errorf("%w: missing fmt chunk", ErrCorrupt)
	}
	if bits != 16 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d (want 16)", ErrCorrupt, bits)
	}
	if data == nil {
		return nil, 0, ErrEmpty
	}
	return PCM16ToFloat32Mono(data, channels), sampleRate, nil
}
