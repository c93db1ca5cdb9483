package services

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// ---------------------------------------------------------------------------
// TranscoderService wraps an ffmpeg subprocess that re-encodes the raw
// s16le PCM stream into a WebM/Opus container suitable for the browser
// MediaSource API. One process per attached stream consumer.
// ---------------------------------------------------------------------------

const opusBitrate = "64k"

type TranscoderService struct {
	ffmpegPath string
	sampleRate int
}

func NewTranscoderService(ffmpegPath string, sampleRate int) *TranscoderService {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &TranscoderService{
		ffmpegPath: ffmpegPath,
		sampleRate: sampleRate,
	}
}

// Transcoder is one running ffmpeg process. Lifecycle: Start, Feed (many),
// CloseInput, drain Output, then Terminate and Wait. Terminate and Wait are
// safe on every exit path, including consumer disconnect and cancellation.
type Transcoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// Start launches ffmpeg reading raw PCM on stdin and writing WebM/Opus to
// stdout. The process dies with ctx, so binding it to the HTTP request
// context tears it down when the consumer disconnects.
func (s *TranscoderService) Start(ctx context.Context) (*Transcoder, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le", "-ar", fmt.Sprint(s.sampleRate), "-ac", "1", "-i", "pipe:0",
		"-c:a", "libopus", "-b:a", opusBitrate,
		"-f", "webm", "pipe:1",
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transcoder stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transcoder stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start transcoder: %w", err)
	}

	return &Transcoder{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// Feed writes one PCM segment to the transcoder input.
func (t *Transcoder) Feed(data []byte) error {
	_, err := t.stdin.Write(data)
	return err
}

// CloseInput signals end of PCM input so ffmpeg flushes and finishes the
// container. Safe to call more than once.
func (t *Transcoder) CloseInput() {
	_ = t.stdin.Close()
}

// Output is the encoded WebM stream.
func (t *Transcoder) Output() io.Reader {
	return t.stdout
}

// Terminate kills the process. Used for cancellation and teardown; errors
// are swallowed, the process may already be gone.
func (t *Transcoder) Terminate() {
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
}

// Wait reaps the process. Must be called exactly once after the output is
// exhausted or Terminate was issued.
func (t *Transcoder) Wait() error {
	return t.cmd.Wait()
}
