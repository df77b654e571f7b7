package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"flow-ai/chatsync/internal/model"
)

// memoryJobRegistry keeps jobs in process memory. It is used when no Redis
// address is configured.
type memoryJobRegistry struct {
	mu    sync.RWMutex
	jobs  map[string]model.IndexingJob
	texts map[string]string
}

func NewMemoryJobRegistry() JobRegistry {
	return &memoryJobRegistry{
		jobs:  make(map[string]model.IndexingJob),
		texts: make(map[string]string),
	}
}

func (r *memoryJobRegistry) CreateJob(_ context.Context, job *model.IndexingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRegistry) GetJob(_ context.Context, jobID string) (*model.IndexingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (r *memoryJobRegistry) UpdateJob(_ context.Context, jobID string, status model.JobStatus, progress int, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status, job.Progress, job.Error = status, progress, errMsg
	job.UpdatedAt = time.Now().UTC()
	r.jobs[jobID] = job
	return nil
}

func (r *memoryJobRegistry) ListJobs(_ context.Context, conversationID string) ([]model.IndexingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := []model.IndexingJob{}
	for _, job := range r.jobs {
		if job.ConversationID == conversationID {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

func (r *memoryJobRegistry) SaveText(_ context.Context, jobID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[jobID] = text
	return nil
}

func (r *memoryJobRegistry) GetText(_ context.Context, jobID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	text, ok := r.texts[jobID]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}
