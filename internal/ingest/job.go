package ingest

import (
	"context"

	"studi-rag/internal/helper"
)

// Job is the handle for one in-flight ingestion. It is transient: once
// done, the document's persisted status is the source of truth.
type Job struct {
	ID         string
	DocumentID string

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newJob(documentID string, cancel context.CancelFunc) *Job {
	id, _ := helper.GenerateUUID()
	return &Job{
		ID:         id,
		DocumentID: documentID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (j *Job) finish() {
	close(j.done)
}

// Cancel aborts the job. The pipeline observes the cancellation at its
// next backend call and rolls the document back to failed.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job finishes or ctx expires. The job keeps
// running when ctx expires first.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports the job outcome; only meaningful after Wait returned nil
// or the done channel closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}
