package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vieneu/tts-server/internal/models"
	"github.com/vieneu/tts-server/internal/services"
	"github.com/vieneu/tts-server/internal/stream"
)

// ErrCancelled is recorded as a job's error message when the client stops
// the synthesis. Cancellation is an Error-status variant, not a fifth
// status.
var ErrCancelled = errors.New("cancelled")

// Job is the record of one synthesis request. Mutable fields are guarded by
// mu; the owning worker is the only writer apart from Cancel. Once the
// status is terminal the record never changes again.
type Job struct {
	ID        uuid.UUID
	PCM       *stream.Channel
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	status      models.JobStatus
	progress    string
	chunksTotal int
	chunksDone  int
	audioPath   string
	errMsg      string
	transcoder  *services.Transcoder
}

func newJob() *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		ID:        uuid.New(),
		PCM:       stream.NewChannel(stream.DefaultCapacity),
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		status:    models.JobStatusPending,
		progress:  "Queued",
	}
}

// Snapshot is a consistent read of the job's observable state.
type Snapshot struct {
	Status      models.JobStatus
	Progress    string
	ChunksTotal int
	ChunksDone  int
	AudioPath   string
	Error       string
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{
		Status:      j.status,
		Progress:    j.progress,
		ChunksTotal: j.chunksTotal,
		ChunksDone:  j.chunksDone,
		AudioPath:   j.audioPath,
		Error:       j.errMsg,
	}
}

// Cancelled reports whether the cancellation token has fired. The worker
// checks it between fragments; a fragment already in flight is not
// interrupted.
func (j *Job) Cancelled() bool {
	return j.ctx.Err() != nil
}

// SetProcessing moves the job out of Pending.
func (j *Job) SetProcessing() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == models.JobStatusPending {
		j.status = models.JobStatusProcessing
	}
}

func (j *Job) SetProgress(p string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Terminal() {
		j.progress = p
	}
}

func (j *Job) SetChunksTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunksTotal = n
}

// SetChunksDone advances the done counter. The counter never regresses.
func (j *Job) SetChunksDone(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > j.chunksDone {
		j.chunksDone = n
	}
}

// Complete marks the job Done with its persisted audio file. No-op when the
// job already reached a terminal status.
func (j *Job) Complete(audioPath, progress string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = models.JobStatusDone
	j.audioPath = audioPath
	j.progress = progress
}

// Fail marks the job Error with a message. First terminal transition wins.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = models.JobStatusError
	j.errMsg = msg
}

// AttachTranscoder records the stream relay's ffmpeg handle so Cancel can
// terminate it. The relay owns the handle's lifecycle.
func (j *Job) AttachTranscoder(t *services.Transcoder) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transcoder = t
}

func (j *Job) DetachTranscoder() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transcoder = nil
}

// Cancel fires the job's cancellation token, terminates an attached
// transcoder and delivers the stream end marker so blocked consumers are
// released even before the worker notices. Best-effort and idempotent.
func (j *Job) Cancel() {
	j.cancel()

	j.mu.RLock()
	t := j.transcoder
	j.mu.RUnlock()
	if t != nil {
		t.Terminate()
	}

	j.PCM.Close()
}

// ---------------------------------------------------------------------------
// Registry maps job ids to records and owns the single admission slot.
// Entries are
// retained for the process lifetime; the registry is the only cross-job
// shared state and the slot mutex is the only cross-job lock.
// ---------------------------------------------------------------------------

type Registry struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]*Job
	activeID uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]*Job)}
}

// NewJob builds an unadmitted Pending record. It is not visible to readers
// until Admit stores it.
func (r *Registry) NewJob() *Job {
	return newJob()
}

// Admit grants the shared synthesis slot to job. It fails when another job
// is still Pending or Processing, returning that job's progress text for the
// busy response. Check, insert and slot assignment happen atomically under
// one lock so the progress always belongs to the job that caused the
// rejection.
func (r *Registry) Admit(job *Job) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID != uuid.Nil {
		if active, ok := r.jobs[r.activeID]; ok {
			if snap := active.Snapshot(); snap.Status.Active() {
				return false, snap.Progress
			}
		}
	}

	r.jobs[job.ID] = job
	r.activeID = job.ID
	return true, ""
}

// Release frees the slot iff it is still held by id. A stale release from a
// superseded job never clears a newer admission.
func (r *Registry) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == id {
		r.activeID = uuid.Nil
	}
}

// PeekBusy reports whether a job currently holds the slot and, if so, its
// progress text. Non-mutating, for UI polling.
func (r *Registry) PeekBusy() (bool, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.activeID == uuid.Nil {
		return false, ""
	}
	active, ok := r.jobs[r.activeID]
	if !ok {
		return false, ""
	}
	snap := active.Snapshot()
	if !snap.Status.Active() {
		return false, ""
	}
	return true, snap.Progress
}

// Get looks up a job by id.
func (r *Registry) Get(id uuid.UUID) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}
