package audio

import "time"

// Fixed output format shared by the live stream and the persisted file.
// The engine produces normalized float samples; everything downstream is
// 16-bit signed little-endian mono.
const (
	BitDepth       = 16
	Channels       = 1
	BytesPerSample = BitDepth / 8

	// ChunkGap is the silence inserted between consecutive fragments, both
	// on the live stream and in the joined final waveform.
	ChunkGap = 150 * time.Millisecond
)

// EncodeS16LE converts normalized float samples (range ~[-1,1]) to raw
// 16-bit signed little-endian PCM bytes. Samples are scaled by 32767,
// clamped to the representable range and truncated toward zero.
func EncodeS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		v := int32(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// DecodeS16LE converts raw 16-bit signed little-endian PCM bytes back to
// normalized float samples. A trailing odd byte is ignored. The scale
// mirrors the encoder's 32767, so the extreme -32768 decodes slightly below
// -1; round trips through EncodeS16LE are exact for every other value.
func DecodeS16LE(data []byte) []float32 {
	n := len(data) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float32(v) / 32767
	}
	return out
}

// SilenceSamples returns the number of samples covering d at the given rate.
func SilenceSamples(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}

// SilencePCM returns d worth of silent 16-bit PCM at the given rate.
func SilencePCM(d time.Duration, sampleRate int) []byte {
	return make([]byte, SilenceSamples(d, sampleRate)*BytesPerSample)
}

// JoinWithSilence concatenates fragment waveforms into one continuous
// waveform with a gap of silence between consecutive fragments (none after
// the last).
func JoinWithSilence(fragments [][]float32, sampleRate int, gap time.Duration) []float32 {
	if len(fragments) == 0 {
		return nil
	}

	gapSamples := SilenceSamples(gap, sampleRate)
	total := gapSamples * (len(fragments) - 1)
	for _, f := range fragments {
		total += len(f)
	}

	out := make([]float32, 0, total)
	for i, f := range fragments {
		if i > 0 {
			out = append(out, make([]float32, gapSamples)...)
		}
		out = append(out, f...)
	}
	return out
}

// Duration returns the play time of a waveform at the given rate.
func Duration(sampleCount, sampleRate int) time.Duration {
	return time.Duration(float64(sampleCount) / float64(sampleRate) * float64(time.Second))
}
