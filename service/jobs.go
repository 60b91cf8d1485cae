package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/export"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
)

type JobState string

const (
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// ExportJob is one batch export. Progress is updated while it runs; the other
// fields only change under the registry lock.
type ExportJob struct {
	ID        string
	Request   validation.ExportRequest
	State     JobState
	Progress  export.ProgressBox
	Result    *export.Result
	Object    string // archive object name when stored in MinIO
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time

	cancel context.CancelFunc
}

// JobView is the JSON shape of a job.
type JobView struct {
	ID        string                   `json:"id"`
	State     JobState                 `json:"state"`
	Request   validation.ExportRequest `json:"request"`
	Progress  export.Progress          `json:"progress"`
	Percent   float64                  `json:"percent"`
	FileName  string                   `json:"filename,omitempty"`
	Size      int                      `json:"size,omitempty"`
	Stored    bool                     `json:"stored"`
	Error     string                   `json:"error,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// JobStore keeps export jobs in memory. Finished jobs beyond maxJobs are
// evicted oldest first; running jobs are never evicted.
type JobStore struct {
	jobs    map[string]*ExportJob
	mu      sync.RWMutex
	maxJobs int // 0 = unlimited
}

// NewJobStore creates a job store retaining maxJobs jobs. Zero keeps them all.
func NewJobStore(maxJobs int) *JobStore {
	if maxJobs < 0 {
		maxJobs = 0
	}
	slog.Info("export job store initialized", "max_jobs", maxJobs)
	return &JobStore{jobs: make(map[string]*ExportJob), maxJobs: maxJobs}
}

// Save adds or replaces a job, evicting the oldest finished ones past the
// limit.
func (s *JobStore) Save(job *ExportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.UpdatedAt = time.Now()
	s.jobs[job.ID] = job
	s.cleanupIfNeeded()
}

// Get returns the job with id, or nil.
func (s *JobStore) Get(id string) *ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// View snapshots a job for JSON output.
func (s *JobStore) View(id string) (JobView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return job.view(), true
}

func (s *JobStore) List() []JobView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobView, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.view())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

func (j *ExportJob) view() JobView {
	p := j.Progress.Get()
	v := JobView{
		ID:        j.ID,
		State:     j.State,
		Request:   j.Request,
		Progress:  p,
		Percent:   p.Percent(),
		Stored:    j.Object != "",
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Result != nil {
		v.FileName = j.Result.Name
		v.Size = len(j.Result.Data)
	}
	return v
}

// Finish records the outcome of a job.
func (s *JobStore) Finish(id string, state JobState, res *export.Result, object, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.State = state
		j.Result = res
		j.Object = object
		j.Error = errMsg
		j.UpdatedAt = time.Now()
		j.cancel = nil
	}
}

// Cancel asks a running job to stop. It reports whether the job was running.
func (s *JobStore) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.State != JobRunning || j.cancel == nil {
		return false
	}
	j.cancel()
	return true
}

// Delete forgets a job.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// cleanupIfNeeded removes the oldest finished jobs beyond maxJobs.
// Must be called with lock held.
func (s *JobStore) cleanupIfNeeded() {
	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return
	}

	finished := make([]*ExportJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.State != JobRunning {
			finished = append(finished, j)
		}
	}
	sort.Slice(finished, func(i, k int) bool {
		return finished[i].CreatedAt.Before(finished[k].CreatedAt)
	})

	removeCount := len(s.jobs) - s.maxJobs
	for i := 0; i < removeCount && i < len(finished); i++ {
		slog.Info("auto-cleaning old export job",
			"job_id", finished[i].ID,
			"created_at", finished[i].CreatedAt,
		)
		delete(s.jobs, finished[i].ID)
	}
}

func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
