package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vieneu/tts-server/internal/audio"
	"github.com/vieneu/tts-server/internal/jobs"
	"github.com/vieneu/tts-server/internal/models"
	"github.com/vieneu/tts-server/internal/services"
)

// Push waits for the per-job PCM channel. On timeout the segment is dropped
// rather than stalling inference; the end marker is delivered by closing
// the channel, which never blocks.
const (
	audioPushTimeout   = 10 * time.Second
	silencePushTimeout = 5 * time.Second
)

// Worker drives one admitted synthesis job end to end: reference
// resolution, chunked inference, live PCM streaming, final WAV assembly.
type Worker struct {
	registry      *jobs.Registry
	synth         services.Synthesizer
	outDir        string
	maxChunkChars int
}

func New(registry *jobs.Registry, synth services.Synthesizer, outDir string, maxChunkChars int) *Worker {
	if maxChunkChars <= 0 {
		maxChunkChars = services.MaxChunkChars
	}
	return &Worker{
		registry:      registry,
		synth:         synth,
		outDir:        outDir,
		maxChunkChars: maxChunkChars,
	}
}

// Run executes the job and never returns an error to its caller: every
// failure is captured into the job record. On all exit paths the stream end
// marker is delivered and the admission slot released. ctx is the server
// lifecycle context; per-job cancellation is observed through the record's
// own token between fragments.
func (w *Worker) Run(ctx context.Context, job *jobs.Job, req models.SynthesizeRequest) {
	start := time.Now()
	defer w.registry.Release(job.ID)
	defer job.PCM.Close()

	job.SetProcessing()

	if err := w.synthesize(ctx, job, req, start); err != nil {
		job.Fail(err.Error())
		if errors.Is(err, jobs.ErrCancelled) {
			log.Info().
				Stringer("job", job.ID).
				Dur("elapsed", time.Since(start)).
				Msg("synthesis cancelled")
		} else {
			log.Error().
				Stringer("job", job.ID).
				Err(err).
				Msg("synthesis failed")
		}
	}
}

func (w *Worker) synthesize(ctx context.Context, job *jobs.Job, req models.SynthesizeRequest, start time.Time) error {
	rate := w.synth.SampleRate()

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = 1.0
	}

	// Resolve the voice reference. An uploaded clip takes precedence over a
	// preset; with neither, the engine's default voice applies.
	var ref *services.VoiceReference
	switch {
	case req.RefAudioPath != "":
		// The temp upload is removed whether or not encoding succeeds.
		defer os.Remove(req.RefAudioPath)

		job.SetProgress("Encoding reference audio...")
		codes, err := w.synth.EncodeReference(ctx, req.RefAudioPath)
		if err != nil {
			return fmt.Errorf("encode reference audio: %w", err)
		}
		ref = &services.VoiceReference{Codes: codes, Text: req.RefText}

	case req.VoiceID != "":
		job.SetProgress("Loading preset voice...")
		var err error
		ref, err = w.synth.PresetVoice(ctx, req.VoiceID)
		if err != nil {
			return fmt.Errorf("load preset voice %q: %w", req.VoiceID, err)
		}
	}

	chunks := services.SplitText(req.Text, w.maxChunkChars)
	total := len(chunks)
	job.SetChunksTotal(total)

	log.Info().
		Stringer("job", job.ID).
		Int("chars", len(req.Text)).
		Int("chunks", total).
		Msg("synthesis started")

	var fragments [][]float32
	for i, chunk := range chunks {
		// Cooperative cancellation: only between fragments, never
		// mid-render.
		if job.Cancelled() {
			return jobs.ErrCancelled
		}

		job.SetProgress(fmt.Sprintf("Generating chunk %d/%d...", i+1, total))

		t0 := time.Now()
		wave, err := w.synth.Infer(ctx, chunk, ref, temperature)
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, total, err)
		}
		if len(wave) == 0 {
			continue
		}

		chunkDur := audio.Duration(len(wave), rate)
		log.Debug().
			Stringer("job", job.ID).
			Int("chunk", i+1).
			Int("of", total).
			Dur("audio", chunkDur).
			Dur("took", time.Since(t0)).
			Float64("rtf", time.Since(t0).Seconds()/chunkDur.Seconds()).
			Msg("chunk rendered")

		fragments = append(fragments, wave)
		job.SetChunksDone(i + 1)

		job.PCM.Push(audio.EncodeS16LE(wave), audioPushTimeout)
		if i < total-1 {
			job.PCM.Push(audio.SilencePCM(audio.ChunkGap, rate), silencePushTimeout)
		}
	}

	// Stream consumers can finish while the file is still being joined.
	job.PCM.Close()

	if len(fragments) == 0 {
		return errors.New("no audio generated")
	}

	job.SetProgress(fmt.Sprintf("Joining %d chunks...", total))
	joined := audio.JoinWithSilence(fragments, rate, audio.ChunkGap)

	outPath := filepath.Join(w.outDir, job.ID.String()+".wav")
	if err := audio.WriteWAV(outPath, joined, rate); err != nil {
		return fmt.Errorf("persist audio: %w", err)
	}

	job.Complete(outPath, fmt.Sprintf("Done: %d chunks", total))

	audioDur := audio.Duration(len(joined), rate)
	log.Info().
		Stringer("job", job.ID).
		Int("chunks", total).
		Dur("audio", audioDur).
		Dur("elapsed", time.Since(start)).
		Float64("rtf", time.Since(start).Seconds()/audioDur.Seconds()).
		Msg("synthesis done")

	return nil
}
