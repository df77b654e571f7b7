package service_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flow-ai/chatsync/internal/database"
	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/llm"
	mock_llm "flow-ai/chatsync/internal/llm/mocks"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/repository"
	"flow-ai/chatsync/internal/service"
	"flow-ai/chatsync/internal/stream"
)

type Mocks struct {
	repo repository.ConversationRepository
	jobs repository.JobRegistry
	llm  *mock_llm.MockProvider
}

func setupChatService(t *testing.T) (*service.ChatService, Mocks) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "chatsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mocks := Mocks{
		repo: repository.NewSQLiteRepository(db),
		jobs: repository.NewMemoryJobRegistry(),
		llm:  mock_llm.NewMockProvider(t),
	}
	cfg := service.ChatConfig{MainModel: "main", SupportModel: "support", SystemPrompt: "You are helpful."}
	return service.NewChatService(mocks.repo, mocks.jobs, mocks.llm, cfg, nil), mocks
}

// streams makes the provider mock emit chunks and close the channel.
func streams(chunks ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		for _, c := range chunks {
			ch <- llm.StreamResponse{Content: c}
		}
		ch <- llm.StreamResponse{Done: true}
		close(ch)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestChatService_StartChat(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - New conversation", func(t *testing.T) {
		chatService, mocks := setupChatService(t)

		turn, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "Hello there"})

		require.NoError(t, err)
		assert.NotEmpty(t, turn.ConversationID)
		assert.Equal(t, model.RoleUser, turn.UserMessage.Role)
		assert.Equal(t, model.RoleAssistant, turn.AssistantMessage.Role)
		assert.True(t, turn.AssistantMessage.CreatedAt.After(turn.UserMessage.CreatedAt))

		all, err := mocks.repo.ListMessages(ctx, turn.ConversationID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Hello there", all[0].Content)
		assert.Empty(t, all[1].Content)
	})

	t.Run("Success - Reuses a persisted user message and its branch", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		first, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "Original"})
		require.NoError(t, err)
		edit, err := chatService.EditMessage(ctx, first.UserMessage.ID, &model.EditRequest{Content: "Rewritten"})
		require.NoError(t, err)

		turn, err := chatService.StartChat(ctx, &model.ChatRequest{
			ConversationID: first.ConversationID,
			UserMessageID:  edit.NewMessage.ID,
		})

		require.NoError(t, err)
		assert.Equal(t, edit.NewMessage.ID, turn.UserMessage.ID)
		require.NotNil(t, turn.AssistantMessage.BranchID)
		assert.Equal(t, edit.NewMessage.ID, *turn.AssistantMessage.BranchID)
	})

	t.Run("Success - Follow-up turns stay on the current branch", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		first, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "Original"})
		require.NoError(t, err)
		edit, err := chatService.EditMessage(ctx, first.UserMessage.ID, &model.EditRequest{Content: "Rewritten"})
		require.NoError(t, err)
		_, err = chatService.StartChat(ctx, &model.ChatRequest{ConversationID: first.ConversationID, UserMessageID: edit.NewMessage.ID})
		require.NoError(t, err)

		next, err := chatService.StartChat(ctx, &model.ChatRequest{ConversationID: first.ConversationID, Content: "And then?"})

		require.NoError(t, err)
		require.NotNil(t, next.UserMessage.BranchID)
		assert.Equal(t, edit.NewMessage.ID, *next.UserMessage.BranchID)
	})

	t.Run("Failure - Empty content", func(t *testing.T) {
		chatService, _ := setupChatService(t)

		_, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "  "})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Failure - Unknown conversation", func(t *testing.T) {
		chatService, _ := setupChatService(t)

		_, err := chatService.StartChat(ctx, &model.ChatRequest{ConversationID: "nope", Content: "hi"})

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})

	t.Run("Failure - Reused message is not a user message", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		first, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "hi"})
		require.NoError(t, err)

		_, err = chatService.StartChat(ctx, &model.ChatRequest{
			ConversationID: first.ConversationID,
			UserMessageID:  first.AssistantMessage.ID,
		})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}

func TestChatService_StreamReply(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Streams, persists and titles", func(t *testing.T) {
		chatService, mocks := setupChatService(t)
		turn, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "Summarize my notes"})
		require.NoError(t, err)

		require.NoError(t, mocks.jobs.CreateJob(ctx, &model.IndexingJob{
			ID: "job1", ConversationID: turn.ConversationID, FileName: "notes.txt", Status: model.StatusQueued,
		}))
		require.NoError(t, mocks.jobs.SaveText(ctx, "job1", "Meeting moved to Friday."))
		require.NoError(t, mocks.jobs.UpdateJob(ctx, "job1", model.StatusCompleted, 100, ""))

		mocks.llm.On("GenerateStream", mock.Anything, mock.MatchedBy(func(r *llm.GenerateRequest) bool {
			return r.Model == "main" &&
				strings.Contains(r.Messages[0].Content, "Meeting moved to Friday.") &&
				r.Messages[len(r.Messages)-1].Content == "Summarize my notes"
		}), mock.Anything).Run(streams("The meeting ", "is on Friday.")).Return(nil).Once()
		mocks.llm.On("Generate", mock.Anything, mock.MatchedBy(func(r *llm.GenerateRequest) bool {
			return r.Model == "support"
		})).Return(&llm.GenerateResponse{Response: `"Meeting Notes"`}, nil).Once()

		var buf bytes.Buffer
		err = chatService.StreamReply(ctx, turn, stream.NewWriter(&buf, nil))
		chatService.Wait()

		require.NoError(t, err)
		session := stream.NewSession(turn.AssistantMessage.ID)
		content, err := stream.Demultiplex(ctx, stream.NewReaderSource(&buf, 16), session.Handlers(nil))
		require.NoError(t, err)
		assert.Equal(t, "The meeting is on Friday.", content)
		meta := session.Fold()
		require.NotNil(t, meta)
		require.Len(t, meta.ContextCards, 1)
		assert.Equal(t, "notes.txt", meta.ContextCards[0].Title)
		require.Len(t, meta.StatusPills, 3)
		assert.Equal(t, "analyzing", meta.StatusPills[0].Status)
		assert.Equal(t, "generating", meta.StatusPills[1].Status)
		assert.Equal(t, "complete", meta.StatusPills[2].Status)

		saved, err := mocks.repo.GetMessage(ctx, turn.AssistantMessage.ID)
		require.NoError(t, err)
		assert.Equal(t, "The meeting is on Friday.", saved.Content)
		require.NotNil(t, saved.ReasoningMetadata)
		assert.Equal(t, "notes.txt", saved.ReasoningMetadata.ContextCards[0].Title)

		conv, err := mocks.repo.GetConversation(ctx, turn.ConversationID)
		require.NoError(t, err)
		assert.Equal(t, "Meeting Notes", conv.Title)
	})

	t.Run("Success - Existing conversations are not retitled", func(t *testing.T) {
		chatService, mocks := setupChatService(t)
		conv, err := chatService.CreateConversation(ctx, "p1")
		require.NoError(t, err)
		turn, err := chatService.StartChat(ctx, &model.ChatRequest{ConversationID: conv.ID, Content: "hi"})
		require.NoError(t, err)
		mocks.llm.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(streams("hello")).Return(nil).Once()

		err = chatService.StreamReply(ctx, turn, stream.NewWriter(&bytes.Buffer{}, nil))
		chatService.Wait()

		require.NoError(t, err)
		mocks.llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Reader went away", func(t *testing.T) {
		chatService, mocks := setupChatService(t)
		conv, err := chatService.CreateConversation(ctx, "")
		require.NoError(t, err)
		turn, err := chatService.StartChat(ctx, &model.ChatRequest{ConversationID: conv.ID, Content: "hi"})
		require.NoError(t, err)
		mocks.llm.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(streams("ignored")).Return(nil).Maybe()

		err = chatService.StreamReply(ctx, turn, stream.NewWriter(brokenWriter{}, nil))

		require.Error(t, err)
		assert.NotErrorIs(t, err, app_errors.ErrInternal)
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("Failure - Generation fails", func(t *testing.T) {
		chatService, mocks := setupChatService(t)
		conv, err := chatService.CreateConversation(ctx, "")
		require.NoError(t, err)
		turn, err := chatService.StartChat(ctx, &model.ChatRequest{ConversationID: conv.ID, Content: "hi"})
		require.NoError(t, err)
		mocks.llm.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			close(args.Get(2).(chan<- llm.StreamResponse))
		}).Return(errors.New("model not loaded")).Once()

		err = chatService.StreamReply(ctx, turn, stream.NewWriter(&bytes.Buffer{}, nil))

		assert.ErrorIs(t, err, app_errors.ErrInternal)
		assert.ErrorContains(t, err, "model not loaded")
	})
}

func TestChatService_EditMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - New version on its own branch", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		turn, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "Original"})
		require.NoError(t, err)

		result, err := chatService.EditMessage(ctx, turn.UserMessage.ID, &model.EditRequest{Content: "Rewritten"})

		require.NoError(t, err)
		assert.Equal(t, 2, result.NewMessage.VersionNumber)
		assert.Equal(t, turn.UserMessage.ID, result.NewMessage.RootID())
		require.NotNil(t, result.NewMessage.BranchID)
		assert.Equal(t, result.NewMessage.ID, *result.NewMessage.BranchID)
		require.Len(t, result.ConversationPath, 1)
		assert.Equal(t, result.NewMessage.ID, result.ConversationPath[0].ID)

		members, err := chatService.GetVersions(ctx, turn.UserMessage.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("Failure - Assistant messages cannot be edited", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		turn, err := chatService.StartChat(ctx, &model.ChatRequest{Content: "Original"})
		require.NoError(t, err)

		_, err = chatService.EditMessage(ctx, turn.AssistantMessage.ID, &model.EditRequest{Content: "No"})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Failure - Unknown message", func(t *testing.T) {
		chatService, _ := setupChatService(t)

		_, err := chatService.EditMessage(ctx, "missing", &model.EditRequest{Content: "x"})

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
}

func TestChatService_Messages(t *testing.T) {
	ctx := context.Background()
	chatService, _ := setupChatService(t)
	conv, err := chatService.CreateConversation(ctx, "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := chatService.StartChat(ctx, &model.ChatRequest{ConversationID: conv.ID, Content: "turn"})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	t.Run("Success - Pages newest first", func(t *testing.T) {
		page, err := chatService.GetMessages(ctx, conv.ID, 4, "")
		require.NoError(t, err)
		assert.Len(t, page.Messages, 4)
		require.NotEmpty(t, page.NextCursor)

		older, err := chatService.GetMessages(ctx, conv.ID, 4, page.NextCursor)
		require.NoError(t, err)
		assert.Len(t, older.Messages, 2)
		assert.Empty(t, older.NextCursor)
	})

	t.Run("Failure - Invalid cursor", func(t *testing.T) {
		_, err := chatService.GetMessages(ctx, conv.ID, 4, "garbage")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Failure - Unknown conversation", func(t *testing.T) {
		_, err := chatService.GetMessages(ctx, "missing", 4, "")
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})

	t.Run("Success - Update and delete", func(t *testing.T) {
		page, err := chatService.GetMessages(ctx, conv.ID, 1, "")
		require.NoError(t, err)
		id := page.Messages[0].ID
		content := "patched"

		require.NoError(t, chatService.UpdateMessage(ctx, id, &model.MessagePatch{Content: &content}))
		require.NoError(t, chatService.DeleteMessage(ctx, id))

		assert.ErrorIs(t, chatService.DeleteMessage(ctx, id), app_errors.ErrNotFound)
	})
}
