package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

// VieNeuEngine drives the VieNeu-TTS runtime as a subprocess. Each call
// spawns the configured command, writes one JSON request to stdin and reads
// one JSON response from stdout. Calls are mutex-serialized: the engine
// holds the model on a single shared device.
type VieNeuEngine struct {
	cmd        []string
	sampleRate int
	mu         sync.Mutex
}

type engineRequest struct {
	Op          string  `json:"op"`
	Text        string  `json:"text,omitempty"`
	VoiceID     string  `json:"voice_id,omitempty"`
	AudioPath   string  `json:"audio_path,omitempty"`
	RefCodes    string  `json:"ref_codes,omitempty"`
	RefText     string  `json:"ref_text,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	SampleRate  int     `json:"sample_rate,omitempty"`
}

type engineResponse struct {
	Samples string      `json:"samples_base64,omitempty"` // float32 LE
	Codes   string      `json:"codes_base64,omitempty"`
	Text    string      `json:"text,omitempty"`
	Voices  []VoiceInfo `json:"voices,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewVieNeuEngine(command string, sampleRate int) (*VieNeuEngine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command empty")
	}
	return &VieNeuEngine{cmd: args, sampleRate: sampleRate}, nil
}

func (e *VieNeuEngine) SampleRate() int {
	return e.sampleRate
}

func (e *VieNeuEngine) Infer(ctx context.Context, text string, ref *VoiceReference, temperature float64) ([]float32, error) {
	req := engineRequest{
		Op:          "infer",
		Text:        text,
		Temperature: temperature,
		SampleRate:  e.sampleRate,
	}
	if ref != nil {
		req.RefCodes = base64.StdEncoding.EncodeToString(ref.Codes)
		req.RefText = ref.Text
	}

	resp, err := e.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeSamples(resp.Samples)
}

func (e *VieNeuEngine) EncodeReference(ctx context.Context, audioPath string) ([]byte, error) {
	resp, err := e.call(ctx, engineRequest{Op: "encode_reference", AudioPath: audioPath})
	if err != nil {
		return nil, err
	}
	codes, err := base64.StdEncoding.DecodeString(resp.Codes)
	if err != nil {
		return nil, fmt.Errorf("decode reference codes: %w", err)
	}
	return codes, nil
}

func (e *VieNeuEngine) PresetVoice(ctx context.Context, voiceID string) (*VoiceReference, error) {
	resp, err := e.call(ctx, engineRequest{Op: "preset_voice", VoiceID: voiceID})
	if err != nil {
		return nil, err
	}
	codes, err := base64.StdEncoding.DecodeString(resp.Codes)
	if err != nil {
		return nil, fmt.Errorf("decode voice codes: %w", err)
	}
	return &VoiceReference{Codes: codes, Text: resp.Text}, nil
}

func (e *VieNeuEngine) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	resp, err := e.call(ctx, engineRequest{Op: "list_voices"})
	if err != nil {
		return nil, err
	}
	return resp.Voices, nil
}

// call runs one request/response round trip against the engine subprocess.
func (e *VieNeuEngine) call(ctx context.Context, req engineRequest) (*engineResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal engine request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("engine %s failed: %s", req.Op, msg)
		}
		return nil, fmt.Errorf("engine %s failed: %w", req.Op, err)
	}

	var resp engineResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, fmt.Errorf("decode engine response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("engine %s: %s", req.Op, resp.Error)
	}
	return &resp, nil
}

// decodeSamples converts a base64 float32-LE payload into samples.
func decodeSamples(b64 string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("sample payload not float32-aligned (%d bytes)", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}
