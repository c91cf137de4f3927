// Package job holds the animation job model and the in-memory registry that
// tracks every job's lifecycle. The registry is the only shared mutable state
// in the pipeline.
package job

import (
	"time"

	"earthtour/internal/animation"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Result is the outcome of a completed job.
type Result struct {
	// VideoPath is the public URL path of the artifact (/videos/<file>).
	VideoPath string `json:"video_path"`
	// ObjectKey locates the artifact in the storage provider.
	ObjectKey string `json:"-"`
	// Duration is the animation length in seconds.
	Duration float64 `json:"duration"`
}

// Job is one asynchronous unit of work turning a validated request into a
// video artifact or an error. Exactly one job exists per accepted request;
// after creation it is mutated only by the single worker processing it, and
// only through Registry transitions.
type Job struct {
	ID      string                    `json:"id"`
	Status  Status                    `json:"status"`
	Created time.Time                 `json:"created"`
	Request animation.ResolvedRequest `json:"request"`
	Result  *Result                   `json:"result,omitempty"`
	// Error carries the human-readable failure detail for failed jobs.
	Error string `json:"error,omitempty"`
}

// clone returns a snapshot safe to hand outside the registry lock.
func (j *Job) clone() *Job {
	cp := *j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}
