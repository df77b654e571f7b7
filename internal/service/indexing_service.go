package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"flow-ai/chatsync/internal/blobstore"
	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/repository"
)

const (
	indexQueueSize = 64
	reasonStopped  = "indexing stopped before the job finished"
)

// IndexingService stores documents and extracts their text in the background
// so chat replies can use them as context.
type IndexingService struct {
	jobs    repository.JobRegistry
	blobs   *blobstore.Store
	workers int
	logger  *slog.Logger

	queue    chan string
	cancel   context.CancelFunc
	wg       conc.WaitGroup
	started  sync.Once
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewIndexingService(jobs repository.JobRegistry, blobs *blobstore.Store, workers int, logger *slog.Logger) *IndexingService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &IndexingService{
		jobs:    jobs,
		blobs:   blobs,
		workers: workers,
		logger:  logger,
		queue:   make(chan string, indexQueueSize),
		stopped: make(chan struct{}),
	}
}

// Start launches the worker pool. It is a no-op after the first call.
func (s *IndexingService) Start(ctx context.Context) {
	s.started.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		for i := 0; i < s.workers; i++ {
			s.wg.Go(func() { s.work(ctx) })
		}
		s.logger.Info("Indexing workers started", "workers", s.workers)
	})
}

// Stop cancels in-flight jobs and waits for the workers to exit. Jobs still
// queued are marked failed so pollers see a terminal status.
func (s *IndexingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopped) })
	s.cancel()
	s.wg.Wait()
	for {
		select {
		case jobID := <-s.queue:
			s.fail(context.Background(), jobID, reasonStopped)
		default:
			s.logger.Info("Indexing workers stopped")
			return
		}
	}
}

// Enqueue stores the document and queues it for text extraction.
func (s *IndexingService) Enqueue(ctx context.Context, conversationID string, file model.FileMeta, r io.Reader) (*model.IndexingJob, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id is required", app_errors.ErrValidation)
	}
	if err := validateFilename(file.Name); err != nil {
		return nil, err
	}

	info, err := s.blobs.Put(blobstore.NewKey(file.Name), file.Type, r)
	if err != nil {
		return nil, fmt.Errorf("could not store %s: %w", file.Name, err)
	}

	now := time.Now().UTC()
	job := &model.IndexingJob{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		FileName:       file.Name,
		FileType:       file.Type,
		ObjectKey:      info.Key,
		Status:         model.StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("could not register indexing job: %w", err)
	}

	select {
	case <-s.stopped:
		s.fail(context.WithoutCancel(ctx), job.ID, reasonStopped)
		return nil, fmt.Errorf("%w: indexing is shutting down", app_errors.ErrInternal)
	default:
	}

	select {
	case s.queue <- job.ID:
	case <-ctx.Done():
		s.fail(context.WithoutCancel(ctx), job.ID, "request cancelled before the job was queued")
		return nil, ctx.Err()
	}
	s.logger.Info("Indexing job queued", "job_id", job.ID, "conversation_id", conversationID, "file", file.Name, "size", info.Size)
	return job, nil
}

func (s *IndexingService) GetJob(ctx context.Context, jobID string) (*model.IndexingStatus, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, translate(err, "indexing job "+jobID)
	}
	return &model.IndexingStatus{JobID: job.ID, Status: job.Status, Progress: job.Progress, Error: job.Error}, nil
}

func (s *IndexingService) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-s.queue:
			s.process(ctx, jobID)
		}
	}
}

// process extracts the text of one job. Registry writes outlive ctx so a job
// interrupted by Stop still ends failed.
func (s *IndexingService) process(ctx context.Context, jobID string) {
	logger := s.logger.With("job_id", jobID)
	persist := context.WithoutCancel(ctx)
	if ctx.Err() != nil {
		s.fail(persist, jobID, reasonStopped)
		return
	}

	job, err := s.jobs.GetJob(persist, jobID)
	if err != nil {
		logger.Error("Queued job disappeared", "error", err)
		return
	}
	s.progress(persist, logger, jobID, 10)

	data, _, err := s.blobs.Get(job.ObjectKey)
	if err != nil {
		s.fail(persist, jobID, "stored document could not be read")
		logger.Error("Failed to read document", "key", job.ObjectKey, "error", err)
		return
	}
	s.progress(persist, logger, jobID, 40)

	text, err := ExtractText(job.FileName, job.FileType, data)
	if err != nil {
		s.fail(persist, jobID, err.Error())
		logger.Warn("Text extraction failed", "file", job.FileName, "error", err)
		return
	}
	if ctx.Err() != nil {
		s.fail(persist, jobID, reasonStopped)
		return
	}
	s.progress(persist, logger, jobID, 80)

	if err := s.jobs.SaveText(persist, jobID, text); err != nil {
		s.fail(persist, jobID, "extracted text could not be saved")
		logger.Error("Failed to save extracted text", "error", err)
		return
	}
	if err := s.jobs.UpdateJob(persist, jobID, model.StatusCompleted, 100, ""); err != nil {
		logger.Error("Could not mark job completed", "error", err)
		return
	}
	logger.Info("Document indexed", "file", job.FileName, "characters", len(text))
}

func (s *IndexingService) progress(ctx context.Context, logger *slog.Logger, jobID string, pct int) {
	if err := s.jobs.UpdateJob(ctx, jobID, model.StatusProcessing, pct, ""); err != nil {
		logger.Warn("Could not record job progress", "progress", pct, "error", err)
	}
}

func (s *IndexingService) fail(ctx context.Context, jobID, reason string) {
	if err := s.jobs.UpdateJob(ctx, jobID, model.StatusFailed, 100, reason); err != nil {
		s.logger.Error("Could not mark job failed", "job_id", jobID, "error", err)
	}
}
