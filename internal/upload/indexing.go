package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

// WaitForIndexing polls the job every PollInterval until it completes, fails
// or IndexTimeout elapses.
//
// A failed job yields ErrIndexingFailed carrying the job's recorded error; a
// job still running at the ceiling yields ErrIndexingTimeout. Polling errors
// other than ErrNotFound are logged and retried.
func (c *Coordinator) WaitForIndexing(ctx context.Context, jobID string) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.IndexTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		st, err := c.indexing.GetIndexingJob(waitCtx, jobID)
		switch {
		case err == nil && st != nil:
			switch st.Status {
			case model.StatusCompleted:
				return nil
			case model.StatusFailed:
				reason := st.Error
				if reason == "" {
					reason = "no reason recorded"
				}
				return fmt.Errorf("%w: job %s: %s", app_errors.ErrIndexingFailed, jobID, reason)
			}
		case errors.Is(err, app_errors.ErrNotFound):
			return fmt.Errorf("%w: job %s: %w", app_errors.ErrIndexingFailed, jobID, err)
		case err != nil && waitCtx.Err() == nil:
			c.logger.Warn("Indexing status poll failed, retrying", "job_id", jobID, "error", err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: job %s still running after %s", app_errors.ErrIndexingTimeout, jobID, c.cfg.IndexTimeout)
		case <-ticker.C:
		}
	}
}
