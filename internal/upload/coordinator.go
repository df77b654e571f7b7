// Package upload moves attachments to durable storage and, for large
// documents, waits for their background indexing to finish.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"flow-ai/chatsync/internal/interfaces"
	"flow-ai/chatsync/internal/model"
)

// Defaults used when a Config field is left zero.
const (
	DefaultChunkSize     int64 = 5 * 1024 * 1024
	DefaultIndexMinBytes int64 = 512 * 1024
	DefaultPollInterval        = 2 * time.Second
	DefaultIndexTimeout        = 5 * time.Minute
)

// indexableTypes are the document types worth indexing in the background.
var indexableTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":    true,
	"text/markdown": true,
	"text/csv":      true,
}

// Config tunes the coordinator.
type Config struct {
	// ChunkSize is the largest file sent with a single direct upload and the
	// part size of multipart uploads.
	ChunkSize int64
	// IndexMinBytes is the smallest indexable document that gets indexed.
	IndexMinBytes int64
	PollInterval  time.Duration
	IndexTimeout  time.Duration
	// MaxConcurrency caps the number of files processed at once. Zero means
	// one goroutine per file.
	MaxConcurrency int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.IndexMinBytes <= 0 {
		c.IndexMinBytes = DefaultIndexMinBytes
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.IndexTimeout <= 0 {
		c.IndexTimeout = DefaultIndexTimeout
	}
	return c
}

// File is one attachment selected by the user. Content is read through
// independent section readers, so the transfer and the indexing upload can
// consume it concurrently.
type File struct {
	Name    string
	Type    string
	Size    int64
	Content io.ReaderAt
}

// Meta returns the file's descriptor, inferring the type from the extension
// when none was given.
func (f File) Meta() model.FileMeta {
	t := f.Type
	if t == "" {
		t = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
	}
	return model.FileMeta{Name: f.Name, Type: t, Size: f.Size}
}

func (f File) section(off, n int64) io.Reader {
	return io.NewSectionReader(f.Content, off, n)
}

// Callbacks report coordinator progress. Both are optional and may be
// called from several goroutines.
type Callbacks struct {
	// OnConversationCreated fires when a conversation had to be created
	// before any upload could begin.
	OnConversationCreated func(conversationID string)
	OnProgress            func(job model.UploadJob)
}

// Result is the outcome of one submission's uploads.
type Result struct {
	ConversationID string
	// Attachments holds the successfully stored files, in input order.
	Attachments []model.Attachment
	Jobs        []model.UploadJob
}

// Coordinator drives uploads and indexing for one client.
type Coordinator struct {
	store    interfaces.ConversationStore
	uploads  interfaces.UploadAPI
	indexing interfaces.IndexingAPI
	cfg      Config
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator. A nil logger uses slog.Default().
func NewCoordinator(store interfaces.ConversationStore, uploads interfaces.UploadAPI, indexing interfaces.IndexingAPI, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:    store,
		uploads:  uploads,
		indexing: indexing,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Eligible reports whether a file is indexed in the background.
func (c *Coordinator) Eligible(f model.FileMeta) bool {
	mediaType, _, _ := strings.Cut(f.Type, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return indexableTypes[mediaType] && f.Size >= c.cfg.IndexMinBytes
}

// NeedsConversation reports whether uploading files requires a durable
// conversation id to exist first.
func (c *Coordinator) NeedsConversation(files []File) bool {
	for _, f := range files {
		if c.Eligible(f.Meta()) {
			return true
		}
	}
	return false
}

// Upload stores every file concurrently and waits for every indexing job it
// enqueued to settle. A failed file is left out of the attachments and does
// not affect its siblings; the only error returned is a failure to create the
// conversation that indexing requires.
func (c *Coordinator) Upload(ctx context.Context, files []File, conversationID string, cb Callbacks) (*Result, error) {
	if conversationID == "" && c.NeedsConversation(files) {
		id, err := c.store.CreateConversation(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("could not create conversation for indexing: %w", err)
		}
		conversationID = id
		c.logger.Info("Created conversation ahead of document indexing", "conversation_id", id)
		if cb.OnConversationCreated != nil {
			cb.OnConversationCreated(id)
		}
	}

	trackers := make([]*jobTracker, len(files))
	for i, f := range files {
		index := conversationID != "" && c.Eligible(f.Meta())
		trackers[i] = newJobTracker(f.Meta(), conversationID, index, c.logger, cb.OnProgress)
	}

	p := pool.New()
	if c.cfg.MaxConcurrency > 0 {
		p = p.WithMaxGoroutines(c.cfg.MaxConcurrency)
	}
	for i, f := range files {
		p.Go(func() {
			c.process(ctx, f, conversationID, trackers[i])
		})
	}
	p.Wait()

	res := &Result{ConversationID: conversationID, Attachments: []model.Attachment{}}
	for _, tr := range trackers {
		job := tr.snapshot()
		res.Jobs = append(res.Jobs, job)
		if job.Attachment != nil {
			res.Attachments = append(res.Attachments, *job.Attachment)
		}
	}
	return res, nil
}

// process runs the storage transfer and, when required, the indexing of one
// file side by side. Neither cancels the other.
func (c *Coordinator) process(ctx context.Context, f File, conversationID string, tr *jobTracker) {
	meta := f.Meta()
	tr.start()

	var wg conc.WaitGroup
	wg.Go(func() {
		url, err := c.transfer(ctx, f, tr)
		if err != nil {
			c.logger.Warn("Upload failed", "file", f.Name, "error", err)
			tr.fail(err)
			return
		}
		tr.uploaded(model.Attachment{Name: meta.Name, Type: meta.Type, Size: meta.Size, URL: url})
	})

	if tr.index {
		wg.Go(func() {
			jobID, err := c.indexing.EnqueueIndexing(ctx, conversationID, meta, f.section(0, f.Size))
			if err != nil {
				c.logger.Warn("Could not enqueue indexing", "file", f.Name, "error", err)
				tr.fail(err)
				return
			}
			tr.indexJob(jobID)
			if err := c.WaitForIndexing(ctx, jobID); err != nil {
				c.logger.Warn("Indexing did not complete", "file", f.Name, "job_id", jobID, "error", err)
				tr.fail(err)
				return
			}
			tr.indexDone()
		})
	}

	wg.Wait()
}
