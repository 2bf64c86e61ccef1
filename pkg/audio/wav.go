package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV serialises mono float32 samples into a 16-bit PCM RIFF/WAVE
// buffer. Used both by the WAV clip writer and by ASR backends that expect a
// container rather than raw samples.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	pcm := Float32ToPCM16(samples)

	var buf bytes.Buffer
	dataSize := uint32(len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}
