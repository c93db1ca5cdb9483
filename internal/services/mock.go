package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockSynthesizer is a deterministic in-memory engine for tests and local
// development without the VieNeu runtime. Each fragment renders to a short
// ramp waveform whose length is proportional to the text length.
type MockSynthesizer struct {
	Rate       int
	InferDelay time.Duration
	// FailAt makes the Nth Infer call (1-based) return an error. Zero
	// disables failure injection.
	FailAt int
	Voices []VoiceInfo

	mu     sync.Mutex
	infers int
}

// SamplesPerChar controls how much audio the mock renders per input
// character (10ms at 24kHz).
const SamplesPerChar = 240

func NewMockSynthesizer(sampleRate int) *MockSynthesizer {
	return &MockSynthesizer{
		Rate: sampleRate,
		Voices: []VoiceInfo{
			{ID: "binh", Description: "Binh (male, northern)"},
			{ID: "lan", Description: "Lan (female, southern)"},
		},
	}
}

func (m *MockSynthesizer) Infer(ctx context.Context, text string, ref *VoiceReference, temperature float64) ([]float32, error) {
	m.mu.Lock()
	m.infers++
	n := m.infers
	m.mu.Unlock()

	if m.FailAt > 0 && n == m.FailAt {
		return nil, fmt.Errorf("mock inference failure on call %d", n)
	}

	if m.InferDelay > 0 {
		select {
		case <-time.After(m.InferDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	samples := make([]float32, len(text)*SamplesPerChar)
	for i := range samples {
		// Triangle ramp in [-0.5, 0.5], cheap and quantization-stable.
		samples[i] = float32(i%100)/100 - 0.5
	}
	return samples, nil
}

func (m *MockSynthesizer) EncodeReference(ctx context.Context, audioPath string) ([]byte, error) {
	return []byte("codes:" + audioPath), nil
}

func (m *MockSynthesizer) PresetVoice(ctx context.Context, voiceID string) (*VoiceReference, error) {
	for _, v := range m.Voices {
		if v.ID == voiceID {
			return &VoiceReference{Codes: []byte("preset:" + voiceID), Text: "xin chào"}, nil
		}
	}
	return nil, fmt.Errorf("unknown voice: %s", voiceID)
}

func (m *MockSynthesizer) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	return m.Voices, nil
}

func (m *MockSynthesizer) SampleRate() int {
	return m.Rate
}

// InferCalls reports how many Infer calls the mock has served.
func (m *MockSynthesizer) InferCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infers
}
