package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flow-ai/chatsync/internal/api"
	"flow-ai/chatsync/internal/blobstore"
	"flow-ai/chatsync/internal/client"
	"flow-ai/chatsync/internal/database"
	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/llm"
	mock_llm "flow-ai/chatsync/internal/llm/mocks"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/reconciler"
	"flow-ai/chatsync/internal/repository"
	"flow-ai/chatsync/internal/service"
	"flow-ai/chatsync/internal/upload"
)

type testServer struct {
	server *httptest.Server
	client *client.Client
	llm    *mock_llm.MockProvider
}

// setupServer runs the full router over temp SQLite and Pebble stores with a
// mocked model.
func setupServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := database.InitDB(filepath.Join(dir, "chatsync.db"))
	require.NoError(t, err)
	blobs, err := blobstore.Open(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	provider := mock_llm.NewMockProvider(t)
	jobs := repository.NewMemoryJobRegistry()
	chatService := service.NewChatService(repository.NewSQLiteRepository(db), jobs, provider,
		service.ChatConfig{MainModel: "main", SupportModel: "support", SystemPrompt: "Be brief."}, nil)
	indexing := service.NewIndexingService(jobs, blobs, 2, nil)
	indexing.Start(context.Background())

	router := api.NewRouter(
		api.NewChatHandler(chatService, 50),
		api.NewUploadHandler(service.NewUploadService(blobs, nil), indexing),
		api.NewSurfaceHandler(service.NewSurfaceService()),
	)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		indexing.Stop()
		chatService.Wait()
		_ = blobs.Close()
		_ = db.Close()
	})
	return &testServer{server: server, client: client.New(server.URL+"/api/v1", nil), llm: provider}
}

func (ts *testServer) replies(chunks ...string) {
	ts.llm.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		for _, c := range chunks {
			ch <- llm.StreamResponse{Content: c}
		}
		ch <- llm.StreamResponse{Done: true}
		close(ch)
	}).Return(nil).Once()
	ts.llm.On("Generate", mock.Anything, mock.Anything).Return(&llm.GenerateResponse{Response: "Title"}, nil).Maybe()
}

func TestChatEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Headers carry the turn ids", func(t *testing.T) {
		ts := setupServer(t)
		ts.replies("Hi ", "there")

		resp, err := ts.client.SendChatRequest(ctx, &model.ChatRequest{Content: "Hello"})
		require.NoError(t, err)
		require.NotNil(t, resp)
		body, err := io.ReadAll(resp.Stream)
		require.NoError(t, err)
		require.NoError(t, resp.Stream.Close())

		assert.NotEmpty(t, resp.ConversationID)
		assert.NotEmpty(t, resp.UserMessageID)
		assert.NotEmpty(t, resp.AssistantMessageID)
		assert.Contains(t, string(body), `{"type":"status","status":"analyzing"`)
		assert.True(t, strings.HasSuffix(string(body), "Hi there"))

		page, err := ts.client.GetMessages(ctx, resp.ConversationID, 10, "")
		require.NoError(t, err)
		require.Len(t, page.Messages, 2)
		assert.Equal(t, "Hi there", page.Messages[1].Content)
		assert.True(t, page.Messages[0].CreatedAt.Equal(resp.UserCreatedAt))
		assert.True(t, page.Messages[1].CreatedAt.Equal(resp.AssistantCreatedAt))
	})

	t.Run("Failure - Empty message", func(t *testing.T) {
		ts := setupServer(t)

		_, err := ts.client.SendChatRequest(ctx, &model.ChatRequest{})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Failure - Unknown conversation", func(t *testing.T) {
		ts := setupServer(t)

		_, err := ts.client.SendChatRequest(ctx, &model.ChatRequest{Content: "hi", ConversationID: "missing"})

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
}

func TestMessageEndpoints(t *testing.T) {
	ctx := context.Background()
	ts := setupServer(t)
	ts.replies("First reply")

	resp, err := ts.client.SendChatRequest(ctx, &model.ChatRequest{Content: "Original question"})
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Stream)
	require.NoError(t, resp.Stream.Close())

	t.Run("Success - Edit and list versions", func(t *testing.T) {
		result, err := ts.client.EditMessage(ctx, resp.UserMessageID, &model.EditRequest{Content: "Better question"})
		require.NoError(t, err)
		assert.Equal(t, 2, result.NewMessage.VersionNumber)
		require.NotEmpty(t, result.ConversationPath)

		members, err := ts.client.GetMessageVersions(ctx, resp.UserMessageID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "Original question", members[0].Content)
	})

	t.Run("Success - Patch and delete", func(t *testing.T) {
		content := "patched"
		require.NoError(t, ts.client.UpdateMessage(ctx, resp.AssistantMessageID, &model.MessagePatch{Content: &content}))
		require.NoError(t, ts.client.DeleteMessage(ctx, resp.AssistantMessageID))

		err := ts.client.DeleteMessage(ctx, resp.AssistantMessageID)
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})

	t.Run("Failure - Editing with empty content", func(t *testing.T) {
		_, err := ts.client.EditMessage(ctx, resp.UserMessageID, &model.EditRequest{})
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Failure - Bad page size", func(t *testing.T) {
		res, err := http.Get(ts.server.URL + "/api/v1/conversations/" + resp.ConversationID + "/messages?limit=0")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Failure - Unknown versions", func(t *testing.T) {
		_, err := ts.client.GetMessageVersions(ctx, "missing")
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
}

func TestUploadEndpoints(t *testing.T) {
	ctx := context.Background()
	ts := setupServer(t)

	t.Run("Success - Direct upload is downloadable", func(t *testing.T) {
		url, err := ts.client.UploadFile(ctx, "hello.txt", "text/plain", strings.NewReader("hello world"))
		require.NoError(t, err)

		res, err := http.Get(ts.server.URL + url)
		require.NoError(t, err)
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "hello world", string(body))
		assert.Equal(t, "text/plain", res.Header.Get("Content-Type"))
	})

	t.Run("Success - Multipart upload", func(t *testing.T) {
		mpu, err := ts.client.InitiateMultipartUpload(ctx, "big.bin", "application/octet-stream")
		require.NoError(t, err)
		p1, err := ts.client.UploadPart(ctx, mpu.Key, mpu.UploadID, 1, strings.NewReader("abc"))
		require.NoError(t, err)
		p2, err := ts.client.UploadPart(ctx, mpu.Key, mpu.UploadID, 2, strings.NewReader("def"))
		require.NoError(t, err)

		url, err := ts.client.CompleteMultipartUpload(ctx, mpu.Key, mpu.UploadID, []model.PartDescriptor{*p1, *p2})
		require.NoError(t, err)

		res, err := http.Get(ts.server.URL + url)
		require.NoError(t, err)
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		assert.Equal(t, "abcdef", string(body))
	})

	t.Run("Failure - Completion with a gap", func(t *testing.T) {
		mpu, err := ts.client.InitiateMultipartUpload(ctx, "gap.bin", "")
		require.NoError(t, err)
		p2, err := ts.client.UploadPart(ctx, mpu.Key, mpu.UploadID, 2, strings.NewReader("x"))
		require.NoError(t, err)

		_, err = ts.client.CompleteMultipartUpload(ctx, mpu.Key, mpu.UploadID, []model.PartDescriptor{*p2})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Failure - Unknown file", func(t *testing.T) {
		res, err := http.Get(ts.server.URL + "/api/v1/files/nope/missing.txt")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("Success - Indexing runs to completion", func(t *testing.T) {
		convID, err := ts.client.CreateConversation(ctx, "")
		require.NoError(t, err)

		jobID, err := ts.client.EnqueueIndexing(ctx, convID, model.FileMeta{Name: "notes.txt", Type: "text/plain"}, strings.NewReader("Launch is on Monday."))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			status, err := ts.client.GetIndexingJob(ctx, jobID)
			return err == nil && status.Status == model.StatusCompleted
		}, 5*time.Second, 20*time.Millisecond)
	})

	t.Run("Failure - Indexing without a conversation", func(t *testing.T) {
		_, err := ts.client.EnqueueIndexing(ctx, "", model.FileMeta{Name: "notes.txt", Type: "text/plain"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}

func TestSurfaceEndpoint(t *testing.T) {
	ts := setupServer(t)

	surfaces, err := ts.client.Detect(context.Background(), "Make me flashcards for this chapter")

	require.NoError(t, err)
	assert.Equal(t, []string{"flashcards"}, surfaces)
}

// TestReconcilerAgainstServer drives the client engine end to end against
// the real HTTP surface.
func TestReconcilerAgainstServer(t *testing.T) {
	ctx := context.Background()
	ts := setupServer(t)

	coordinator := upload.NewCoordinator(ts.client, ts.client, ts.client, upload.Config{
		ChunkSize:     8,
		IndexMinBytes: 1,
		PollInterval:  20 * time.Millisecond,
		IndexTimeout:  5 * time.Second,
	}, nil)
	rec, err := reconciler.New(reconciler.Deps{Store: ts.client, Uploader: coordinator, Detector: ts.client}, reconciler.Config{})
	require.NoError(t, err)

	doc := "The launch moved to Monday."
	ts.llm.On("GenerateStream", mock.Anything, mock.MatchedBy(func(r *llm.GenerateRequest) bool {
		return strings.Contains(r.Messages[0].Content, doc)
	}), mock.Anything).Run(func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		ch <- llm.StreamResponse{Content: "It is on Monday."}
		close(ch)
	}).Return(nil).Once()

	err = rec.Submit(ctx, reconciler.SubmitRequest{
		Text:  "When is the launch?",
		Files: []upload.File{{Name: "plan.txt", Type: "text/plain", Size: int64(len(doc)), Content: strings.NewReader(doc)}},
	})
	require.NoError(t, err)

	view := rec.Messages()
	require.Len(t, view, 2)
	assert.False(t, view[0].IsOptimistic())
	require.Len(t, view[0].Attachments, 1)
	assert.Equal(t, "plan.txt", view[0].Attachments[0].Name)
	assert.Equal(t, "It is on Monday.", view[1].Content)
	require.NotNil(t, view[1].ReasoningMetadata)
	assert.Equal(t, "plan.txt", view[1].ReasoningMetadata.ContextCards[0].Title)

	ts.llm.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		ch <- llm.StreamResponse{Content: "Edited reply"}
		close(ch)
	}).Return(nil).Once()

	rootID := view[0].ID
	require.NoError(t, rec.EditAndResubmit(ctx, rootID, "Which day exactly?", nil))

	view = rec.Messages()
	require.Len(t, view, 2)
	assert.Equal(t, "Which day exactly?", view[0].Content)
	assert.Equal(t, "Edited reply", view[1].Content)

	require.NoError(t, rec.SwitchVersion(ctx, rootID, 1))
	view = rec.Messages()
	require.Len(t, view, 2)
	assert.Equal(t, "When is the launch?", view[0].Content)
	assert.Equal(t, "It is on Monday.", view[1].Content)

	// A fresh reconciler sees the same history from the store.
	fresh, err := reconciler.New(reconciler.Deps{Store: ts.client, Uploader: coordinator}, reconciler.Config{})
	require.NoError(t, err)
	require.NoError(t, fresh.Open(ctx, rec.ConversationID()))
	view = fresh.Messages()
	require.Len(t, view, 2)
	assert.Equal(t, "Which day exactly?", view[0].Content)
	assert.Equal(t, "Edited reply", view[1].Content)
}
