package store

import (
	"sync"

	"github.com/zhaozkTHU/oj/internal/models"
)

// Jobs is the append-mostly, dense, id-indexed sequence of finalized job
// records. Id assignment and append happen in the same atomic step, so
// ordering by id equals ordering by finalization.
type Jobs struct {
	mu   sync.RWMutex
	jobs []models.Job
}

func NewJobs() *Jobs {
	return &Jobs{}
}

// Append assigns the next id to job and stores it, returning the id.
func (j *Jobs) Append(job models.Job) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	job.ID = len(j.jobs)
	j.jobs = append(j.jobs, job)
	return job.ID
}

// Get fetches a job by id.
func (j *Jobs) Get(id int) (models.Job, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if id < 0 || id >= len(j.jobs) {
		return models.Job{}, false
	}
	return j.jobs[id], true
}

// Replace overwrites an existing job in place (same id), used by reruns.
func (j *Jobs) Replace(id int, job models.Job) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if id < 0 || id >= len(j.jobs) {
		return false
	}
	job.ID = id
	j.jobs[id] = job
	return true
}

// Snapshot returns a point-in-time copy of every stored job, safe to scan
// without holding the store's lock.
func (j *Jobs) Snapshot() []models.Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]models.Job, len(j.jobs))
	copy(out, j.jobs)
	return out
}

// NextID reports the id the next Append call would assign, used for the
// "id >= next job id" not-found check on GET /jobs/{id}.
func (j *Jobs) NextID() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.jobs)
}
