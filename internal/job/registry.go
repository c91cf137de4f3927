package job

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"earthtour/internal/animation"
	"earthtour/internal/pkg/errors"
)

// Registry is the process-wide job store. All methods are safe for concurrent
// use; reads always observe the latest acknowledged transition. Entries live
// for the process lifetime unless an external retention policy removes them.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	// artifacts maps artifact file names to storage object keys so the
	// video endpoint can stream a completed job's output.
	artifacts map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:      make(map[string]*Job),
		artifacts: make(map[string]string),
	}
}

// Create atomically allocates an id and inserts a queued job snapshotting the
// request. The returned job is a copy.
func (r *Registry) Create(req animation.ResolvedRequest) *Job {
	j := &Job{
		ID:      "job_" + uuid.NewString(),
		Status:  StatusQueued,
		Created: time.Now().UTC(),
		Request: req,
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()

	return j.clone()
}

// Get returns a snapshot of the job or a NOT_FOUND error.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.RUnlock()
		return nil, errors.NotFound("job", id)
	}
	snapshot := j.clone()
	r.mu.RUnlock()
	return snapshot, nil
}

// Delete removes a job, used when a freshly created job cannot be scheduled
// and by external retention policies. Removing a completed job also drops its
// artifact mapping.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	if j, ok := r.jobs[id]; ok {
		if j.Result != nil {
			delete(r.artifacts, fileNameOf(j.Result.VideoPath))
		}
		delete(r.jobs, id)
	}
	r.mu.Unlock()
}

// MarkProcessing transitions queued → processing. Called exactly once by the
// worker that dequeued the job.
func (r *Registry) MarkProcessing(id string) error {
	return r.transition(id, StatusQueued, func(j *Job) {
		j.Status = StatusProcessing
	})
}

// MarkCompleted transitions processing → completed and records the result.
func (r *Registry) MarkCompleted(id string, res Result) error {
	return r.transition(id, StatusProcessing, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = &res
		r.artifacts[fileNameOf(res.VideoPath)] = res.ObjectKey
	})
}

// MarkFailed transitions processing → failed and records the error detail.
func (r *Registry) MarkFailed(id string, errText string) error {
	return r.transition(id, StatusProcessing, func(j *Job) {
		j.Status = StatusFailed
		j.Error = errText
	})
}

// ArtifactKey resolves an artifact file name to its storage object key.
func (r *Registry) ArtifactKey(fileName string) (string, bool) {
	r.mu.RLock()
	key, ok := r.artifacts[fileName]
	r.mu.RUnlock()
	return key, ok
}

// Stats returns the number of jobs per status.
func (r *Registry) Stats() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[Status]int, 4)
	for _, j := range r.jobs {
		stats[j.Status]++
	}
	return stats
}

// transition applies mutate under the lock if the job exists and is in the
// expected state. Terminal states never transition again.
func (r *Registry) transition(id string, from Status, mutate func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return errors.NotFound("job", id)
	}
	if j.Status != from {
		return errors.Newf(errors.CodeInternal,
			"illegal transition for job %s: status is %s, expected %s", id, j.Status, from)
	}

	mutate(j)
	return nil
}

func fileNameOf(videoPath string) string {
	for i := len(videoPath) - 1; i >= 0; i-- {
		if videoPath[i] == '/' {
			return videoPath[i+1:]
		}
	}
	return videoPath
}
