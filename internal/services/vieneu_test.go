package services

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeSamples(t *testing.T) {
	want := []float32{0, 0.5, -0.5, 1.0}
	raw := make([]byte, len(want)*4)
	for i, s := range want {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}

	got, err := decodeSamples(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("decodeSamples: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestDecodeSamplesMisaligned(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if _, err := decodeSamples(payload); err == nil {
		t.Fatal("expected error for non-float32-aligned payload")
	}
}

func TestNewVieNeuEngineCommandParsing(t *testing.T) {
	e, err := NewVieNeuEngine(`python3 serve.py --backbone "VieNeu-TTS 0.3B"`, 24000)
	if err != nil {
		t.Fatalf("NewVieNeuEngine: %v", err)
	}
	if len(e.cmd) != 4 {
		t.Fatalf("expected 4 argv entries, got %v", e.cmd)
	}
	if e.cmd[3] != "VieNeu-TTS 0.3B" {
		t.Errorf("quoted argument mangled: %q", e.cmd[3])
	}
	if e.SampleRate() != 24000 {
		t.Errorf("sample rate not retained")
	}
}

func TestNewVieNeuEngineEmptyCommand(t *testing.T) {
	if _, err := NewVieNeuEngine("", 24000); err == nil {
		t.Fatal("expected error for empty command")
	}
}
