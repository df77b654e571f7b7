package reconciler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/interfaces/mocks"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/reconciler"
	"flow-ai/chatsync/internal/upload"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []reconciler.Notice
}

func (n *recordingNotifier) Notify(notice reconciler.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) all() []reconciler.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]reconciler.Notice(nil), n.notices...)
}

type recordingObserver struct {
	mu       sync.Mutex
	lists    [][]model.Message
	progress []string
}

func (o *recordingObserver) OnListChanged(messages []model.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lists = append(o.lists, messages)
}

func (o *recordingObserver) OnStreamProgress(_ string, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, content)
}

type Mocks struct {
	store    *mocks.MockConversationStore
	uploads  *mocks.MockUploadAPI
	indexing *mocks.MockIndexingAPI
	detector *mocks.MockSurfaceDetector
	surfaces *reconciler.SurfaceCache
	notifier *recordingNotifier
}

func setupReconciler(t *testing.T, withDetector bool) (*reconciler.Reconciler, Mocks) {
	cache, err := reconciler.NewSurfaceCache(16)
	require.NoError(t, err)

	m := Mocks{
		store:    mocks.NewMockConversationStore(t),
		uploads:  mocks.NewMockUploadAPI(t),
		indexing: mocks.NewMockIndexingAPI(t),
		surfaces: cache,
		notifier: &recordingNotifier{},
	}
	coordinator := upload.NewCoordinator(m.store, m.uploads, m.indexing, upload.Config{
		ChunkSize:     1024,
		IndexMinBytes: 16,
		PollInterval:  time.Millisecond,
		IndexTimeout:  time.Second,
	}, nil)

	deps := reconciler.Deps{Store: m.store, Uploader: coordinator, Surfaces: cache, Notifier: m.notifier}
	if withDetector {
		m.detector = mocks.NewMockSurfaceDetector(t)
		deps.Detector = m.detector
	}
	r, err := reconciler.New(deps, reconciler.Config{})
	require.NoError(t, err)
	return r, m
}

func reply(conv, userID, assistantID, body string) *model.ChatResponse {
	return &model.ChatResponse{
		Stream:             io.NopCloser(strings.NewReader(body)),
		ConversationID:     conv,
		UserMessageID:      userID,
		AssistantMessageID: assistantID,
	}
}

func patchContent(want string) any {
	return mock.MatchedBy(func(p *model.MessagePatch) bool {
		return p != nil && p.Content != nil && *p.Content == want
	})
}

// brokenReader returns data once, then fails.
type brokenReader struct {
	data string
	sent bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, b.data), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestReconciler_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Placeholders are swapped and content preserved", func(t *testing.T) {
		// ARRANGE
		r, m := setupReconciler(t, false)
		obs := &recordingObserver{}
		defer r.Subscribe(obs)()

		m.store.On("SendChatRequest", mock.Anything, mock.MatchedBy(func(req *model.ChatRequest) bool {
			return req.Content == "Hello?" && req.ConversationID == ""
		})).Run(func(mock.Arguments) {
			// Placeholders are visible before the store answers.
			view := r.Messages()
			require.Len(t, view, 2)
			assert.True(t, view[0].IsOptimistic())
			assert.True(t, view[1].IsOptimistic())
			assert.Equal(t, model.RoleUser, view[0].Role)
		}).Return(reply("c1", "u1", "a1", "Hello \nworld"), nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a1", patchContent("Hello \nworld")).Return(nil).Once()

		// ACT
		err := r.Submit(ctx, reconciler.SubmitRequest{Text: "Hello?"})

		// ASSERT
		require.NoError(t, err)
		view := r.Messages()
		require.Len(t, view, 2)
		for _, msg := range r.Records() {
			assert.False(t, msg.IsOptimistic(), "temporary id %s left behind", msg.ID)
		}
		assert.Equal(t, "u1", view[0].ID)
		assert.Equal(t, "a1", view[1].ID)
		assert.Equal(t, "Hello \nworld", view[1].Content)
		assert.Equal(t, "c1", r.ConversationID())
		require.NotNil(t, view[1].ReasoningMetadata)
		assert.Equal(t, "complete", view[1].ReasoningMetadata.StatusPills[0].Status)
		assert.NotEmpty(t, obs.progress)
	})

	t.Run("Failure - Declined request rolls back both placeholders", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).Return(nil, nil).Once()

		err := r.Submit(ctx, reconciler.SubmitRequest{Text: "Hello?"})

		assert.Error(t, err)
		assert.Empty(t, r.Messages())
		assert.Empty(t, r.Records())
	})

	t.Run("Failure - Insufficient credits notifies without retry", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).
			Return(nil, app_errors.ErrInsufficientCredits).Once()

		err := r.Submit(ctx, reconciler.SubmitRequest{Text: "Hello?"})

		assert.ErrorIs(t, err, app_errors.ErrInsufficientCredits)
		assert.Empty(t, r.Records())
		notices := m.notifier.all()
		require.Len(t, notices, 1)
		assert.Equal(t, reconciler.NoticeToast, notices[0].Kind)
		assert.ErrorIs(t, notices[0].Err, app_errors.ErrInsufficientCredits)
		m.store.AssertNumberOfCalls(t, "SendChatRequest", 1)
	})

	t.Run("Failure - Interrupted stream keeps and persists partial output", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		resp := &model.ChatResponse{
			Stream:             io.NopCloser(&brokenReader{data: "Half an ans"}),
			ConversationID:     "c1",
			UserMessageID:      "u1",
			AssistantMessageID: "a1",
		}
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).Return(resp, nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a1", patchContent("Half an ans")).Return(nil).Once()

		err := r.Submit(ctx, reconciler.SubmitRequest{Text: "Explain"})

		assert.ErrorIs(t, err, app_errors.ErrTransport)
		view := r.Messages()
		require.Len(t, view, 2)
		assert.Equal(t, "u1", view[0].ID)
		assert.Equal(t, "Half an ans", view[1].Content)
		require.NotEmpty(t, m.notifier.all())
	})

	t.Run("Success - Reload is suppressed while the submission is in flight", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: []model.Message{}}, nil).Once()
		require.NoError(t, r.Open(ctx, "c1"))

		var reloaded bool
		var reloadErr error
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			reloaded, reloadErr = r.Reload(ctx)
		}).Return(reply("c1", "u1", "a1", "ok"), nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a1", mock.Anything).Return(nil).Once()

		require.NoError(t, r.Submit(ctx, reconciler.SubmitRequest{Text: "hi"}))

		assert.False(t, reloaded)
		assert.NoError(t, reloadErr)
		m.store.AssertNumberOfCalls(t, "GetMessages", 1)
	})

	t.Run("Success - Eager conversation retro-tags placeholders", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		doc := bytes.Repeat([]byte("a"), 64)
		m.store.On("CreateConversation", mock.Anything, "").Return("conv-new", nil).Once()
		m.uploads.On("UploadFile", mock.Anything, "notes.md", "text/markdown", mock.Anything).
			Return("https://files/notes.md", nil).Once()
		m.indexing.On("EnqueueIndexing", mock.Anything, "conv-new", mock.Anything, mock.Anything).Return("job-1", nil).Once()
		m.indexing.On("GetIndexingJob", mock.Anything, "job-1").
			Return(&model.IndexingStatus{JobID: "job-1", Status: model.StatusCompleted}, nil).Once()

		m.store.On("SendChatRequest", mock.Anything, mock.MatchedBy(func(req *model.ChatRequest) bool {
			return req.ConversationID == "conv-new" && len(req.Attachments) == 1
		})).Run(func(mock.Arguments) {
			for _, msg := range r.Records() {
				assert.Equal(t, "conv-new", msg.ConversationID)
			}
			assert.Equal(t, "https://files/notes.md", r.Messages()[0].Attachments[0].URL)
		}).Return(reply("conv-new", "u1", "a1", "Summary"), nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a1", patchContent("Summary")).Return(nil).Once()

		err := r.Submit(ctx, reconciler.SubmitRequest{
			Text:  "Summarize",
			Files: []upload.File{{Name: "notes.md", Type: "text/markdown", Size: int64(len(doc)), Content: bytes.NewReader(doc)}},
		})

		require.NoError(t, err)
		assert.Equal(t, "conv-new", r.ConversationID())
	})

	t.Run("Failure - Rollback forgets the eagerly created conversation", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		doc := bytes.Repeat([]byte("a"), 64)
		m.store.On("CreateConversation", mock.Anything, "").Return("conv-new", nil).Once()
		m.uploads.On("UploadFile", mock.Anything, "notes.md", "text/markdown", mock.Anything).
			Return("https://files/notes.md", nil).Once()
		m.indexing.On("EnqueueIndexing", mock.Anything, "conv-new", mock.Anything, mock.Anything).Return("job-1", nil).Once()
		m.indexing.On("GetIndexingJob", mock.Anything, "job-1").
			Return(&model.IndexingStatus{JobID: "job-1", Status: model.StatusCompleted}, nil).Once()
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).Return(nil, app_errors.ErrPermission).Once()

		err := r.Submit(ctx, reconciler.SubmitRequest{
			Text:  "Summarize",
			Files: []upload.File{{Name: "notes.md", Type: "text/markdown", Size: int64(len(doc)), Content: bytes.NewReader(doc)}},
		})

		assert.ErrorIs(t, err, app_errors.ErrPermission)
		assert.Empty(t, r.Records())
		assert.Equal(t, "", r.ConversationID())
	})

	t.Run("Success - Detected surfaces are attached to the reply", func(t *testing.T) {
		r, m := setupReconciler(t, true)
		m.detector.On("Detect", mock.Anything, "Quiz me on Go").Return([]string{"quiz"}, nil).Once()
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			assert.Eventually(t, func() bool { return m.surfaces.Len() == 1 }, time.Second, time.Millisecond)
		}).Return(reply("c1", "u1", "a1", "Question 1"), nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a1", mock.MatchedBy(func(p *model.MessagePatch) bool {
			return p.ReasoningMetadata != nil && len(p.ReasoningMetadata.DetectedSurfaces) == 1 &&
				p.ReasoningMetadata.DetectedSurfaces[0] == "quiz"
		})).Return(nil).Once()

		require.NoError(t, r.Submit(ctx, reconciler.SubmitRequest{Text: "Quiz me on Go"}))
	})
}

func TestReconciler_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Merges and keeps streamed content", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		first := []model.Message{
			message("u1", "c1", model.RoleUser, "hi", 0),
			message("a1", "c1", model.RoleAssistant, "full reply", time.Second),
		}
		stale := []model.Message{
			message("u1", "c1", model.RoleUser, "hi", 0),
			message("a1", "c1", model.RoleAssistant, "", time.Second),
		}
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: first, NextCursor: "cur-1"}, nil).Once()
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: stale}, nil).Once()
		require.NoError(t, r.Open(ctx, "c1"))

		ok, err := r.Reload(ctx)

		require.NoError(t, err)
		assert.True(t, ok)
		view := r.Messages()
		require.Len(t, view, 2)
		assert.Equal(t, "full reply", view[1].Content)
		assert.True(t, r.HasOlder())
	})

	t.Run("Success - LoadOlder prepends the previous page", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: []model.Message{message("u2", "c1", model.RoleUser, "later", time.Hour)}, NextCursor: "cur-1"}, nil).Once()
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "cur-1").
			Return(&model.MessagePage{Messages: []model.Message{message("u1", "c1", model.RoleUser, "earlier", 0)}}, nil).Once()
		require.NoError(t, r.Open(ctx, "c1"))

		require.NoError(t, r.LoadOlder(ctx))

		assert.Equal(t, []string{"u1", "u2"}, idsOf(r.Messages()))
		assert.False(t, r.HasOlder())
	})

	t.Run("Failure - Store error", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(nil, app_errors.ErrNotFound).Once()

		err := r.Open(ctx, "c1")

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
}

func TestReconciler_Versions(t *testing.T) {
	ctx := context.Background()
	branch := "u1v2"
	root := "u1"

	u1 := message("u1", "c1", model.RoleUser, "original", 0)
	a1 := message("a1", "c1", model.RoleAssistant, "original answer", time.Second)
	u1v2 := message("u1v2", "c1", model.RoleUser, "edited", time.Minute)
	u1v2.VersionOf = &root
	u1v2.VersionNumber = 2
	u1v2.BranchID = &branch

	t.Run("Success - Edit creates a version and a reply on its branch", func(t *testing.T) {
		// ARRANGE
		r, m := setupReconciler(t, false)
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: []model.Message{u1, a1}}, nil).Once()
		require.NoError(t, r.Open(ctx, "c1"))

		m.store.On("EditMessage", mock.Anything, "u1", mock.MatchedBy(func(req *model.EditRequest) bool {
			return req.Content == "edited"
		})).Return(&model.EditResult{NewMessage: u1v2, ConversationPath: []model.Message{u1v2}}, nil).Once()
		m.store.On("SendChatRequest", mock.Anything, mock.MatchedBy(func(req *model.ChatRequest) bool {
			return req.UserMessageID == "u1v2" && req.BranchID == branch && req.ConversationID == "c1"
		})).Return(reply("c1", "u1v2", "a2", "edited answer"), nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a2", patchContent("edited answer")).Return(nil).Once()

		// ACT
		err := r.EditAndResubmit(ctx, "u1", "edited", nil)

		// ASSERT
		require.NoError(t, err)
		assert.Equal(t, []string{"u1v2", "a2"}, idsOf(r.Messages()))
	})

	t.Run("Success - Switching versions changes the view only", func(t *testing.T) {
		// ARRANGE
		r, m := setupReconciler(t, false)
		a2 := message("a2", "c1", model.RoleAssistant, "edited answer", 2*time.Minute)
		a2.BranchID = &branch
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: []model.Message{u1, a1, u1v2, a2}}, nil).Once()
		m.store.On("GetMessageVersions", mock.Anything, "u1").
			Return([]model.Message{u1v2, u1}, nil).Twice()
		require.NoError(t, r.Open(ctx, "c1"))
		require.Equal(t, []string{"u1v2", "a2"}, idsOf(r.Messages()))

		// ACT
		require.NoError(t, r.SwitchVersion(ctx, "u1", 1))

		// ASSERT
		view := r.Messages()
		assert.Equal(t, []string{"u1", "a1"}, idsOf(view))
		assert.Equal(t, "original", view[0].Content)
		selected, ok := r.Selected("u1")
		assert.True(t, ok)
		assert.Equal(t, 1, selected)

		require.NoError(t, r.SwitchVersion(ctx, "u1", 2))
		assert.Equal(t, []string{"u1v2", "a2"}, idsOf(r.Messages()))
		_, ok = r.Selected("u1")
		assert.False(t, ok)
	})

	t.Run("Success - Switching after a submit keeps turn order", func(t *testing.T) {
		// ARRANGE
		r, m := setupReconciler(t, false)
		stored := time.Now().UTC().Add(50 * time.Millisecond)
		resp := reply("c1", "u1", "a1", "Hi")
		resp.UserCreatedAt = stored
		resp.AssistantCreatedAt = stored.Add(time.Microsecond)
		m.store.On("SendChatRequest", mock.Anything, mock.Anything).Return(resp, nil).Once()
		m.store.On("UpdateMessage", mock.Anything, "a1", patchContent("Hi")).Return(nil).Once()
		require.NoError(t, r.Submit(ctx, reconciler.SubmitRequest{Text: "Hello?"}))

		storedUser := message("u1", "c1", model.RoleUser, "Hello?", 0)
		storedUser.CreatedAt = stored
		m.store.On("GetMessageVersions", mock.Anything, "u1").Return([]model.Message{storedUser}, nil).Once()

		// ACT
		require.NoError(t, r.SwitchVersion(ctx, "u1", 1))

		// ASSERT
		view := r.Messages()
		assert.Equal(t, []string{"u1", "a1"}, idsOf(view))
		assert.True(t, view[1].CreatedAt.Equal(stored.Add(time.Microsecond)))
	})

	t.Run("Failure - Unknown version", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("GetMessageVersions", mock.Anything, "u1").Return([]model.Message{u1}, nil).Once()

		err := r.SwitchVersion(ctx, "u1", 7)

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Success - Delete removes the message", func(t *testing.T) {
		r, m := setupReconciler(t, false)
		m.store.On("GetMessages", mock.Anything, "c1", reconciler.DefaultPageSize, "").
			Return(&model.MessagePage{Messages: []model.Message{u1, a1}}, nil).Once()
		m.store.On("DeleteMessage", mock.Anything, "a1").Return(nil).Once()
		require.NoError(t, r.Open(ctx, "c1"))

		require.NoError(t, r.Delete(ctx, "a1"))

		assert.Equal(t, []string{"u1"}, idsOf(r.Messages()))
	})
}
