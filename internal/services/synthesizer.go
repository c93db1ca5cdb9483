package services

import "context"

// ---------------------------------------------------------------------------
// Synthesizer: the narrow contract for the neural inference engine.
// The engine owns model loading, device selection and voice cloning; the
// server only asks it to render text and resolve voice references.
// ---------------------------------------------------------------------------

// VoiceReference is the resolved conditioning input for inference: opaque
// engine codes plus the transcript of the reference audio.
type VoiceReference struct {
	Codes []byte
	Text  string
}

// VoiceInfo describes one preset voice the engine ships with.
type VoiceInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Synthesizer is the interface any inference engine must implement.
type Synthesizer interface {
	// Infer renders one text fragment as a normalized float waveform
	// (range ~[-1,1], mono, SampleRate()). ref may be nil, in which case
	// the engine's default voice is used.
	Infer(ctx context.Context, text string, ref *VoiceReference, temperature float64) ([]float32, error)

	// EncodeReference turns a reference audio file into conditioning codes.
	EncodeReference(ctx context.Context, audioPath string) ([]byte, error)

	// PresetVoice resolves a preset voice id to its codes and canonical
	// transcript.
	PresetVoice(ctx context.Context, voiceID string) (*VoiceReference, error)

	// ListVoices enumerates the engine's preset voices.
	ListVoices(ctx context.Context) ([]VoiceInfo, error)

	// SampleRate is the fixed output rate of the engine in Hz.
	SampleRate() int
}
