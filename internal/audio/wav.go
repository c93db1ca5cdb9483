package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV persists normalized float samples as a standard 16-bit mono WAV
// file at path. Samples are quantized the same way as the live stream so the
// file and the stream are acoustically identical.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: Channels, SampleRate: sampleRate},
		SourceBitDepth: BitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		buf.Data[i] = v
	}

	enc := wav.NewEncoder(f, sampleRate, BitDepth, Channels, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

// ReadWAV loads a 16-bit WAV file back into normalized float samples.
// Used by tests to verify stream/file equivalence.
func ReadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / 32767
	}
	return samples, buf.Format.SampleRate, nil
}
