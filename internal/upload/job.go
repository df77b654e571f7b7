package upload

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"flow-ai/chatsync/internal/model"
)

// FSM triggers of an upload job. The states are the model.JobStatus values.
const (
	triggerStart    = "Start"
	triggerUploaded = "Uploaded"
	triggerIndexed  = "Indexed"
	triggerFail     = "Fail"
)

// jobTracker owns one UploadJob. The storage transfer and the indexing wait
// report into it concurrently; transitions are serialized by mu and validated
// by the state machine:
//
//	queued -> uploading -> completed
//	queued -> uploading -> processing -> completed
//	any non-terminal -> failed
type jobTracker struct {
	mu       sync.Mutex
	job      model.UploadJob
	fsm      *stateless.StateMachine
	index    bool
	indexed  bool
	logger   *slog.Logger
	onChange func(model.UploadJob)
}

func newJobTracker(file model.FileMeta, conversationID string, index bool, logger *slog.Logger, onChange func(model.UploadJob)) *jobTracker {
	t := &jobTracker{
		job: model.UploadJob{
			ID:             uuid.NewString(),
			File:           file,
			ConversationID: conversationID,
			Status:         model.StatusQueued,
		},
		index:    index,
		logger:   logger,
		onChange: onChange,
	}

	fsm := stateless.NewStateMachine(model.StatusQueued)
	fsm.Configure(model.StatusQueued).
		Permit(triggerStart, model.StatusUploading).
		Permit(triggerFail, model.StatusFailed)

	fsm.Configure(model.StatusUploading).
		Permit(triggerUploaded, model.StatusProcessing, t.awaitingIndex).
		Permit(triggerUploaded, model.StatusCompleted, t.nothingPending).
		InternalTransition(triggerIndexed, func(_ context.Context, _ ...any) error {
			t.indexed = true
			return nil
		}).
		Permit(triggerFail, model.StatusFailed)

	fsm.Configure(model.StatusProcessing).
		Permit(triggerIndexed, model.StatusCompleted).
		Permit(triggerFail, model.StatusFailed)

	fsm.Configure(model.StatusCompleted).
		OnEntry(func(_ context.Context, _ ...any) error {
			t.job.Progress = 100
			return nil
		})

	t.fsm = fsm
	return t
}

func (t *jobTracker) awaitingIndex(_ context.Context, _ ...any) bool {
	return t.index && !t.indexed
}

func (t *jobTracker) nothingPending(ctx context.Context, args ...any) bool {
	return !t.awaitingIndex(ctx, args...)
}

// fire applies trigger and publishes the resulting job snapshot. It must
// not be called with mu held.
func (t *jobTracker) fire(trigger string, mutate func(*model.UploadJob)) {
	t.mu.Lock()
	if mutate != nil {
		mutate(&t.job)
	}
	if trigger != "" && !t.job.Status.Terminal() {
		if err := t.fsm.Fire(trigger); err != nil {
			t.logger.Debug("Ignored upload job transition", "job_id", t.job.ID, "trigger", trigger, "state", t.job.Status, "error", err)
		}
		t.job.Status = t.fsm.MustState().(model.JobStatus)
	}
	snapshot := t.job
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(snapshot)
	}
}

func (t *jobTracker) start() { t.fire(triggerStart, nil) }

func (t *jobTracker) progress(pct int) {
	t.fire("", func(j *model.UploadJob) { j.Progress = pct })
}

func (t *jobTracker) uploaded(att model.Attachment) {
	t.fire(triggerUploaded, func(j *model.UploadJob) { j.Attachment = &att })
}

func (t *jobTracker) indexJob(id string) {
	t.fire("", func(j *model.UploadJob) { j.IndexJobID = id })
}

func (t *jobTracker) indexDone() { t.fire(triggerIndexed, nil) }

func (t *jobTracker) fail(err error) {
	t.fire(triggerFail, func(j *model.UploadJob) {
		if !j.Status.Terminal() {
			j.Error = err.Error()
		}
	})
}

func (t *jobTracker) snapshot() model.UploadJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job
}
