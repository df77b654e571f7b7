package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"flow-ai/chatsync/internal/model"
)

// textTTL bounds how long extracted document text is kept around.
const textTTL = 7 * 24 * time.Hour

type redisJobRegistry struct {
	rdb *redis.Client
}

func NewRedisJobRegistry(rdb *redis.Client) JobRegistry {
	return &redisJobRegistry{rdb: rdb}
}

// Key Generation Helpers
func jobKey(jobID string) string               { return fmt.Sprintf("job:%s", jobID) }
func jobTextKey(jobID string) string           { return fmt.Sprintf("job:%s:text", jobID) }
func conversationJobsKey(convID string) string { return fmt.Sprintf("conversation:%s:jobs", convID) }

func (r *redisJobRegistry) CreateJob(ctx context.Context, job *model.IndexingJob) error {
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(job.ID), map[string]any{
		"id":              job.ID,
		"conversation_id": job.ConversationID,
		"file_name":       job.FileName,
		"file_type":       job.FileType,
		"object_key":      job.ObjectKey,
		"status":          string(job.Status),
		"progress":        job.Progress,
		"error":           job.Error,
		"created_at":      job.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":      job.UpdatedAt.Format(time.RFC3339Nano),
	})
	if job.ConversationID != "" {
		pipe.SAdd(ctx, conversationJobsKey(job.ConversationID), job.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisJobRegistry) GetJob(ctx context.Context, jobID string) (*model.IndexingJob, error) {
	fields, err := r.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return jobFromHash(fields)
}

func (r *redisJobRegistry) UpdateJob(ctx context.Context, jobID string, status model.JobStatus, progress int, errMsg string) error {
	exists, err := r.rdb.Exists(ctx, jobKey(jobID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return r.rdb.HSet(ctx, jobKey(jobID),
		"status", string(status),
		"progress", progress,
		"error", errMsg,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
}

func (r *redisJobRegistry) ListJobs(ctx context.Context, conversationID string) ([]model.IndexingJob, error) {
	ids, err := r.rdb.SMembers(ctx, conversationJobsKey(conversationID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	jobs := make([]model.IndexingJob, 0, len(ids))
	for _, id := range ids {
		job, err := r.GetJob(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

func (r *redisJobRegistry) SaveText(ctx context.Context, jobID, text string) error {
	return r.rdb.Set(ctx, jobTextKey(jobID), text, textTTL).Err()
}

func (r *redisJobRegistry) GetText(ctx context.Context, jobID string) (string, error) {
	text, err := r.rdb.Get(ctx, jobTextKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return text, err
}

func jobFromHash(fields map[string]string) (*model.IndexingJob, error) {
	job := &model.IndexingJob{
		ID:             fields["id"],
		ConversationID: fields["conversation_id"],
		FileName:       fields["file_name"],
		FileType:       fields["file_type"],
		ObjectKey:      fields["object_key"],
		Status:         model.JobStatus(fields["status"]),
		Error:          fields["error"],
	}
	var err error
	if p := fields["progress"]; p != "" {
		if job.Progress, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("job %s has a malformed progress: %w", job.ID, err)
		}
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("job %s has a malformed created_at: %w", job.ID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("job %s has a malformed updated_at: %w", job.ID, err)
	}
	return job, nil
}
