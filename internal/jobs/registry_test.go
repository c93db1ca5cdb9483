package jobs

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vieneu/tts-server/internal/models"
)

func TestAdmitSingleSlot(t *testing.T) {
	r := NewRegistry()

	first := r.NewJob()
	if ok, _ := r.Admit(first); !ok {
		t.Fatal("first admission should succeed")
	}

	second := r.NewJob()
	ok, activeProgress := r.Admit(second)
	if ok {
		t.Fatal("second admission while first is pending should fail")
	}
	// The rejection carries the blocking job's progress.
	if activeProgress != "Queued" {
		t.Errorf("expected active progress %q, got %q", "Queued", activeProgress)
	}
	if _, ok := r.Get(second.ID); ok {
		t.Fatal("rejected job must not be stored")
	}

	busy, progress := r.PeekBusy()
	if !busy {
		t.Fatal("expected busy while a job is pending")
	}
	if progress != "Queued" {
		t.Errorf("expected initial progress %q, got %q", "Queued", progress)
	}
}

func TestReleaseFreesSlot(t *testing.T) {
	r := NewRegistry()

	first := r.NewJob()
	r.Admit(first)
	first.Complete("/tmp/a.wav", "Done")
	r.Release(first.ID)

	if busy, _ := r.PeekBusy(); busy {
		t.Fatal("expected not busy after release")
	}

	second := r.NewJob()
	if ok, _ := r.Admit(second); !ok {
		t.Fatal("admission should succeed after release")
	}

	// A stale release from the finished job must not clear the new
	// admission.
	r.Release(first.ID)
	if busy, _ := r.PeekBusy(); !busy {
		t.Fatal("stale release cleared a newer admission")
	}
}

func TestAdmitAfterTerminalWithoutRelease(t *testing.T) {
	r := NewRegistry()

	first := r.NewJob()
	r.Admit(first)
	first.Fail("boom")

	// The slot still points at the finished job; its terminal status makes
	// it non-blocking.
	second := r.NewJob()
	if ok, _ := r.Admit(second); !ok {
		t.Fatal("terminal job should not block admission")
	}
}

func TestStatusMonotonic(t *testing.T) {
	j := NewRegistry().NewJob()

	if s := j.Snapshot().Status; s != models.JobStatusPending {
		t.Fatalf("expected pending, got %s", s)
	}

	j.SetProcessing()
	if s := j.Snapshot().Status; s != models.JobStatusProcessing {
		t.Fatalf("expected processing, got %s", s)
	}

	j.Complete("/tmp/a.wav", "Done: 2 chunks")
	snap := j.Snapshot()
	if snap.Status != models.JobStatusDone {
		t.Fatalf("expected done, got %s", snap.Status)
	}
	if snap.AudioPath != "/tmp/a.wav" {
		t.Errorf("audio path not recorded: %q", snap.AudioPath)
	}

	// Terminal status never regresses.
	j.Fail("late failure")
	j.SetProgress("late progress")
	snap = j.Snapshot()
	if snap.Status != models.JobStatusDone {
		t.Fatalf("done job regressed to %s", snap.Status)
	}
	if snap.Error != "" {
		t.Errorf("done job picked up an error: %q", snap.Error)
	}
	if snap.Progress != "Done: 2 chunks" {
		t.Errorf("terminal progress overwritten: %q", snap.Progress)
	}
}

func TestChunkCountersNeverRegress(t *testing.T) {
	j := NewRegistry().NewJob()
	j.SetChunksTotal(3)
	j.SetChunksDone(2)
	j.SetChunksDone(1)

	snap := j.Snapshot()
	if snap.ChunksDone != 2 {
		t.Fatalf("chunk counter regressed: %d", snap.ChunksDone)
	}
}

func TestCancelClosesStream(t *testing.T) {
	j := NewRegistry().NewJob()

	if j.Cancelled() {
		t.Fatal("fresh job should not be cancelled")
	}

	j.Cancel()
	j.Cancel() // idempotent

	if !j.Cancelled() {
		t.Fatal("expected cancelled flag set")
	}
	if _, err := j.PCM.Pop(100 * time.Millisecond); !errors.Is(err, io.EOF) {
		t.Fatalf("expected stream end after cancel, got %v", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	j := r.NewJob()
	r.Admit(j)

	var wg sync.WaitGroup
	// One writer (the owning worker) and many readers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 50; i++ {
			j.SetProgress("working")
			j.SetChunksDone(i)
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				if got, ok := r.Get(j.ID); ok {
					got.Snapshot()
				}
				r.PeekBusy()
			}
		}()
	}
	wg.Wait()

	if done := j.Snapshot().ChunksDone; done != 50 {
		t.Fatalf("expected 50 chunks done, got %d", done)
	}
}

func TestGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get(uuid.New()); ok {
		t.Fatal("unknown id should not resolve")
	}
}
