package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vieneu/tts-server/internal/config"
	"github.com/vieneu/tts-server/internal/jobs"
	"github.com/vieneu/tts-server/internal/models"
	"github.com/vieneu/tts-server/internal/services"
	"github.com/vieneu/tts-server/internal/stream"
	"github.com/vieneu/tts-server/internal/worker"
)

const maxUploadBytes = 32 << 20

type Handler struct {
	registry   *jobs.Registry
	worker     *worker.Worker
	synth      services.Synthesizer
	transcoder *services.TranscoderService
	catalog    *config.Catalog // may be nil when no catalog file is configured
}

func NewHandler(registry *jobs.Registry, w *worker.Worker, synth services.Synthesizer, transcoder *services.TranscoderService, catalog *config.Catalog) *Handler {
	return &Handler{
		registry:   registry,
		worker:     w,
		synth:      synth,
		transcoder: transcoder,
		catalog:    catalog,
	}
}

// Synthesize handles POST /api/synthesize. Accepts JSON or multipart form
// (the latter for reference-audio uploads). Admission is all-or-nothing:
// while another job is active the request is rejected as busy and no job is
// created.
func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseSynthesizeRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		h.discardUpload(req)
		respondError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.Temperature < 0 {
		h.discardUpload(req)
		respondError(w, http.StatusBadRequest, "Temperature must be positive")
		return
	}

	// Reject unknown preset voices before a job exists.
	if req.VoiceID != "" && req.RefAudioPath == "" {
		voices, err := h.synth.ListVoices(r.Context())
		if err == nil && !hasVoice(voices, req.VoiceID) {
			respondError(w, http.StatusBadRequest, "Unknown voice: "+req.VoiceID)
			return
		}
	}

	job := h.registry.NewJob()
	if ok, activeProgress := h.registry.Admit(job); !ok {
		h.discardUpload(req)
		respondJSON(w, http.StatusServiceUnavailable, models.BusyResponse{
			Busy:           true,
			ActiveProgress: activeProgress,
			Error:          "Server is busy generating audio for another client. Please wait and try again.",
		})
		return
	}

	// The worker outlives this request; it is cancelled per job, not per
	// connection.
	go h.worker.Run(context.Background(), job, req)

	respondJSON(w, http.StatusAccepted, models.SynthesizeResponse{JobID: job.ID})
}

func (h *Handler) parseSynthesizeRequest(r *http.Request) (models.SynthesizeRequest, error) {
	var req models.SynthesizeRequest

	if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, err
		}
		req.Text = r.FormValue("text")
		req.VoiceID = r.FormValue("voice_id")
		req.RefText = r.FormValue("ref_text")
		req.Temperature = 1.0
		if t := r.FormValue("temperature"); t != "" {
			parsed, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return req, err
			}
			req.Temperature = parsed
		}

		if file, _, err := r.FormFile("ref_audio"); err == nil {
			defer file.Close()
			path, err := saveUpload(file)
			if err != nil {
				return req, err
			}
			req.RefAudioPath = path
		}
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.Temperature == 0 {
		req.Temperature = 1.0
	}
	return req, nil
}

// saveUpload spools an uploaded reference clip to a temp file. The worker
// removes it once the reference has been encoded.
func saveUpload(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "ref_*.wav")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// discardUpload removes a spooled reference clip for a request that never
// became a job.
func (h *Handler) discardUpload(req models.SynthesizeRequest) {
	if req.RefAudioPath != "" {
		os.Remove(req.RefAudioPath)
	}
}

func hasVoice(voices []services.VoiceInfo, id string) bool {
	for _, v := range voices {
		if v.ID == id {
			return true
		}
	}
	return false
}

// Busy handles GET /api/busy
func (h *Handler) Busy(w http.ResponseWriter, r *http.Request) {
	busy, progress := h.registry.PeekBusy()
	respondJSON(w, http.StatusOK, models.BusyResponse{Busy: busy, ActiveProgress: progress})
}

// Status handles GET /api/status/{jobID}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	snap := job.Snapshot()
	resp := models.StatusResponse{
		Status:      snap.Status,
		Progress:    snap.Progress,
		ChunksDone:  snap.ChunksDone,
		ChunksTotal: snap.ChunksTotal,
	}
	if snap.Status == models.JobStatusDone {
		url := "/api/audio/" + job.ID.String()
		resp.AudioURL = &url
	}
	if snap.Error != "" {
		msg := snap.Error
		resp.Error = &msg
	}

	respondJSON(w, http.StatusOK, resp)
}

// Audio handles GET /api/audio/{jobID}: the complete joined waveform,
// available only once the job is done.
func (h *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	snap := job.Snapshot()
	if snap.Status != models.JobStatusDone || snap.AudioPath == "" {
		respondError(w, http.StatusNotFound, "Audio not available")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, snap.AudioPath)
}

// Stream handles GET /api/stream/{jobID}. Default output is WebM/Opus via
// the transcoder subprocess; ?format=pcm streams the raw s16le segments.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.URL.Query().Get("format") == "pcm" {
		w.Header().Set("Content-Type", "application/octet-stream")
		if err := stream.ServeRaw(r.Context(), w, job.PCM); err != nil {
			log.Debug().Err(err).Stringer("job", job.ID).Msg("raw stream ended")
		}
		return
	}

	t, err := h.transcoder.Start(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to start stream transcoder")
		return
	}

	w.Header().Set("Content-Type", "audio/webm")
	if err := stream.ServeTranscoded(r.Context(), w, job.PCM, t, job); err != nil {
		log.Debug().Err(err).Stringer("job", job.ID).Msg("transcoded stream ended")
	}
}

// Cancel handles POST /api/cancel/{jobID}. Best-effort: the worker stops
// between fragments, attached streams are unblocked immediately.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Voices handles GET /api/voices
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.synth.ListVoices(r.Context())
	if err != nil {
		// Engine not ready; an empty list keeps the UI functional.
		voices = []services.VoiceInfo{}
	}
	respondJSON(w, http.StatusOK, voices)
}

// Models handles GET /api/models
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		respondJSON(w, http.StatusOK, []models.ModelInfo{})
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.BackboneList())
}

// Codecs handles GET /api/codecs
func (h *Handler) Codecs(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		respondJSON(w, http.StatusOK, []models.ModelInfo{})
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.CodecList())
}

// lookupJob resolves the {jobID} URL param; an unknown or malformed id is a
// distinct not-found, never an error-status job payload.
func (h *Handler) lookupJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	job, ok := h.registry.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	return job, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
