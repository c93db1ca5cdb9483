package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresEngineCommand(t *testing.T) {
	t.Setenv("ENGINE_COMMAND", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when ENGINE_COMMAND is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENGINE_COMMAND", "python3 engine.py")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q", cfg.APIPort)
	}
	if cfg.SampleRate != 24000 {
		t.Errorf("SampleRate = %d", cfg.SampleRate)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q", cfg.FFmpegPath)
	}
	if cfg.MaxChunkChars != 256 {
		t.Errorf("MaxChunkChars = %d", cfg.MaxChunkChars)
	}
	if cfg.BackendAPIKey != "" {
		t.Errorf("BackendAPIKey should default empty, got %q", cfg.BackendAPIKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENGINE_COMMAND", "python3 engine.py --device cuda")
	t.Setenv("API_PORT", "9000")
	t.Setenv("SAMPLE_RATE", "48000")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("MAX_CHUNK_CHARS", "128")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q", cfg.APIPort)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d", cfg.SampleRate)
	}
	if !cfg.LogPretty {
		t.Error("LOG_PRETTY override ignored")
	}
	if cfg.MaxChunkChars != 128 {
		t.Errorf("MaxChunkChars = %d", cfg.MaxChunkChars)
	}
}

func TestLoadRejectsBadSampleRate(t *testing.T) {
	t.Setenv("ENGINE_COMMAND", "python3 engine.py")
	t.Setenv("SAMPLE_RATE", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive sample rate")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `backbone_configs:
  vieneu-0.3b:
    repo: vieneu/tts-0.3b
    description: base Vietnamese model
  vieneu-0.9b:
    repo: vieneu/tts-0.9b
    description: larger model
codec_configs:
  neucodec:
    repo: vieneu/neucodec
    description: neural audio codec
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	backbones := c.BackboneList()
	if len(backbones) != 2 {
		t.Fatalf("expected 2 backbones, got %d", len(backbones))
	}
	// Sorted by name.
	if backbones[0].Name != "vieneu-0.3b" || backbones[1].Name != "vieneu-0.9b" {
		t.Errorf("backbones out of order: %+v", backbones)
	}
	if backbones[0].Repo != "vieneu/tts-0.3b" {
		t.Errorf("repo not parsed: %+v", backbones[0])
	}

	codecs := c.CodecList()
	if len(codecs) != 1 || codecs[0].Name != "neucodec" {
		t.Errorf("unexpected codecs: %+v", codecs)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
