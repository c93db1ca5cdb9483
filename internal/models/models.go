package models

import "github.com/google/uuid"

// Enums
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether the status is final. A job never leaves a
// terminal status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Active reports whether the job still occupies the synthesis slot.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// SynthesizeRequest carries the parameters of one synthesis submission.
// RefAudioPath is the server-side temp path of an uploaded reference clip,
// set by the handler when the request was multipart.
type SynthesizeRequest struct {
	Text         string  `json:"text"`
	VoiceID      string  `json:"voice_id,omitempty"`
	RefText      string  `json:"ref_text,omitempty"`
	RefAudioPath string  `json:"-"`
	Temperature  float64 `json:"temperature,omitempty"`
}

type SynthesizeResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// BusyResponse is returned both by the busy poll endpoint and as the 503
// body when admission is rejected.
type BusyResponse struct {
	Busy           bool   `json:"busy"`
	ActiveProgress string `json:"active_progress,omitempty"`
	Error          string `json:"error,omitempty"`
}

type StatusResponse struct {
	Status      JobStatus `json:"status"`
	Progress    string    `json:"progress"`
	ChunksDone  int       `json:"chunks_done"`
	ChunksTotal int       `json:"chunks_total"`
	AudioURL    *string   `json:"audio_url,omitempty"`
	Error       *string   `json:"error,omitempty"`
}

// ModelInfo describes one catalog entry (backbone or codec).
type ModelInfo struct {
	Name        string `json:"name"`
	Repo        string `json:"repo"`
	Description string `json:"description"`
}
