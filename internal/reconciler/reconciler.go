// Package reconciler keeps the client-side view of one conversation
// consistent with the durable store while submissions, edits, streamed
// replies and uploads are in flight.
//
// The reconciler owns a flat set of message records (authoritative records
// plus local placeholders). The renderable list is always derived from it
// with versions.ActivePath; it is never stored.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"flow-ai/chatsync/internal/interfaces"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/upload"
	"flow-ai/chatsync/internal/versions"
)

// Defaults used when a Config field is left zero.
const (
	DefaultPageSize         = 50
	DefaultDetectionTimeout = 3 * time.Second
)

// Uploader moves attachments to storage; upload.Coordinator implements it.
type Uploader interface {
	Upload(ctx context.Context, files []upload.File, conversationID string, cb upload.Callbacks) (*upload.Result, error)
}

// Config tunes the reconciler.
type Config struct {
	PageSize           int
	DuplicateTolerance time.Duration
	DetectionTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.DuplicateTolerance <= 0 {
		c.DuplicateTolerance = DefaultDuplicateTolerance
	}
	if c.DetectionTimeout <= 0 {
		c.DetectionTimeout = DefaultDetectionTimeout
	}
	return c
}

// Deps are the collaborators of a Reconciler. Store and Uploader are
// required; the rest are optional.
type Deps struct {
	Store    interfaces.ConversationStore
	Uploader Uploader
	Detector interfaces.SurfaceDetector
	Surfaces *SurfaceCache
	Notifier Notifier
	Logger   *slog.Logger
}

// Reconciler is the client-side state of one open conversation.
//
// Every mutation happens under mu against the current record set, never a
// snapshot taken before a network call. Observers are called outside mu.
type Reconciler struct {
	store    interfaces.ConversationStore
	uploader Uploader
	detector interfaces.SurfaceDetector
	surfaces *SurfaceCache
	notifier Notifier
	logger   *slog.Logger
	cfg      Config

	mu             sync.Mutex
	conversationID string
	records        []model.Message
	selected       map[string]int
	nextCursor     string
	inFlight       int
	observers      map[int]Observer
	nextObserver   int
}

// New creates a reconciler with no conversation open.
func New(deps Deps, cfg Config) (*Reconciler, error) {
	if deps.Store == nil || deps.Uploader == nil {
		return nil, fmt.Errorf("reconciler: store and uploader are required")
	}
	r := &Reconciler{
		store:     deps.Store,
		uploader:  deps.Uploader,
		detector:  deps.Detector,
		surfaces:  deps.Surfaces,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		cfg:       cfg.withDefaults(),
		selected:  make(map[string]int),
		observers: make(map[int]Observer),
	}
	if r.notifier == nil {
		r.notifier = discardNotifier{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.surfaces == nil {
		cache, err := NewSurfaceCache(DefaultSurfaceCacheSize)
		if err != nil {
			return nil, err
		}
		r.surfaces = cache
	}
	return r, nil
}

// ConversationID returns the open conversation, or "" for a new chat.
func (r *Reconciler) ConversationID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversationID
}

// Messages returns the renderable list: one member per version group, on
// the selected branch, in turn order.
func (r *Reconciler) Messages() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Records returns a copy of every record held, including inactive versions
// and placeholders.
func (r *Reconciler) Records() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// HasOlder reports whether LoadOlder can fetch another page.
func (r *Reconciler) HasOlder() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextCursor != ""
}

// Subscribe registers an observer and returns a function that removes it.
func (r *Reconciler) Subscribe(o Observer) func() {
	r.mu.Lock()
	id := r.nextObserver
	r.nextObserver++
	r.observers[id] = o
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

func (r *Reconciler) viewLocked() []model.Message {
	return versions.ActivePath(r.records, r.selected)
}

func (r *Reconciler) observersLocked() []Observer {
	out := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		out = append(out, o)
	}
	return out
}

// mutate applies fn to the record set under the lock and publishes the new
// view.
func (r *Reconciler) mutate(fn func()) {
	r.mu.Lock()
	fn()
	view := r.viewLocked()
	observers := r.observersLocked()
	r.mu.Unlock()

	for _, o := range observers {
		o.OnListChanged(view)
	}
}

func (r *Reconciler) publishProgress(messageID, content string) {
	r.mu.Lock()
	observers := r.observersLocked()
	r.mu.Unlock()
	for _, o := range observers {
		o.OnStreamProgress(messageID, content)
	}
}

// begin marks an operation in flight; reloads are suppressed until the
// returned function runs.
func (r *Reconciler) begin() func() {
	r.mu.Lock()
	r.inFlight++
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}
}

// Open navigates to a conversation and loads its latest page. Placeholders
// of any other conversation are dropped.
func (r *Reconciler) Open(ctx context.Context, conversationID string) error {
	page, err := r.store.GetMessages(ctx, conversationID, r.cfg.PageSize, "")
	if err != nil {
		return fmt.Errorf("could not load conversation %s: %w", conversationID, err)
	}

	r.mutate(func() {
		if r.conversationID != conversationID {
			r.selected = make(map[string]int)
		}
		r.conversationID = conversationID
		r.records = Merge(r.records, page.Messages, conversationID, r.cfg.DuplicateTolerance)
		r.nextCursor = page.NextCursor
	})
	r.logFindings(page.Messages)
	return nil
}

// Reload re-fetches the latest page of the open conversation and merges it.
// It returns false without touching local state while a submission, edit or
// version switch is in flight, including one that started during the fetch.
func (r *Reconciler) Reload(ctx context.Context) (bool, error) {
	r.mu.Lock()
	conversationID := r.conversationID
	busy := r.inFlight > 0
	r.mu.Unlock()

	if conversationID == "" {
		return false, nil
	}
	if busy {
		r.logger.Debug("Reload suppressed, operation in flight", "conversation_id", conversationID)
		return false, nil
	}

	page, err := r.store.GetMessages(ctx, conversationID, r.cfg.PageSize, "")
	if err != nil {
		return false, fmt.Errorf("could not reload conversation %s: %w", conversationID, err)
	}

	r.mu.Lock()
	if r.inFlight > 0 || r.conversationID != conversationID {
		r.mu.Unlock()
		r.logger.Debug("Discarding reload result, state changed during fetch", "conversation_id", conversationID)
		return false, nil
	}
	r.records = Merge(r.records, page.Messages, conversationID, r.cfg.DuplicateTolerance)
	if r.nextCursor == "" {
		r.nextCursor = page.NextCursor
	}
	view := r.viewLocked()
	observers := r.observersLocked()
	r.mu.Unlock()

	for _, o := range observers {
		o.OnListChanged(view)
	}
	r.logFindings(page.Messages)
	return true, nil
}

// LoadOlder fetches the page before the oldest one loaded. Records already
// held are left untouched.
func (r *Reconciler) LoadOlder(ctx context.Context) error {
	r.mu.Lock()
	conversationID, cursor := r.conversationID, r.nextCursor
	r.mu.Unlock()

	if conversationID == "" || cursor == "" {
		return nil
	}
	page, err := r.store.GetMessages(ctx, conversationID, r.cfg.PageSize, cursor)
	if err != nil {
		return fmt.Errorf("could not load older messages: %w", err)
	}

	r.mutate(func() {
		if r.conversationID != conversationID {
			return
		}
		r.records = upsert(r.records, page.Messages...)
		r.nextCursor = page.NextCursor
	})
	return nil
}

// logFindings reports version groups whose members share a version number.
func (r *Reconciler) logFindings(messages []model.Message) {
	for _, c := range versions.FindCollisions(messages) {
		r.logger.Warn("Version number collision", "root_id", c.RootID, "version_number", c.VersionNumber, "message_ids", c.MessageIDs)
	}
}

// upsert replaces records with matching ids and appends the rest, keeping
// the set ordered by CreatedAt.
func upsert(records []model.Message, msgs ...model.Message) []model.Message {
	out := slices.Clone(records)
	index := make(map[string]int, len(out))
	for i, m := range out {
		index[m.ID] = i
	}
	for _, m := range msgs {
		if i, ok := index[m.ID]; ok {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b model.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// remove drops the records with the given ids.
func remove(records []model.Message, ids ...string) []model.Message {
	return slices.DeleteFunc(slices.Clone(records), func(m model.Message) bool {
		return slices.Contains(ids, m.ID)
	})
}

// update applies fn to the record with the given id, if still held.
func (r *Reconciler) updateLocked(id string, fn func(*model.Message)) bool {
	for i := range r.records {
		if r.records[i].ID == id {
			fn(&r.records[i])
			return true
		}
	}
	return false
}
