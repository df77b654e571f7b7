package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/llm"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/repository"
	"flow-ai/chatsync/internal/stream"
	"flow-ai/chatsync/internal/versions"
)

const (
	defaultTitle       = "New Chat"
	maxDocumentContext = 4000
	cardSummaryLength  = 200
	titleTimeout       = 30 * time.Second
)

// ChatConfig selects the models and the base system prompt.
type ChatConfig struct {
	MainModel    string
	SupportModel string
	SystemPrompt string
}

type ChatService struct {
	repo   repository.ConversationRepository
	jobs   repository.JobRegistry
	llm    llm.Provider
	cfg    ChatConfig
	logger *slog.Logger

	background conc.WaitGroup
}

func NewChatService(repo repository.ConversationRepository, jobs repository.JobRegistry, provider llm.Provider, cfg ChatConfig, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{repo: repo, jobs: jobs, llm: provider, cfg: cfg, logger: logger}
}

// Wait blocks until background work such as title generation has finished.
func (s *ChatService) Wait() {
	s.background.Wait()
}

// ChatTurn is a persisted user turn whose reply is about to be generated.
type ChatTurn struct {
	ConversationID   string
	UserMessage      model.Message
	AssistantMessage model.Message

	newConversation bool
	history         []model.Message
}

// StartChat persists the user turn (or reuses an already persisted one) and an
// empty assistant message. Nothing is generated yet, so failures here can
// still be reported with a proper status code.
func (s *ChatService) StartChat(ctx context.Context, req *model.ChatRequest) (*ChatTurn, error) {
	if req.UserMessageID == "" && strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		return nil, fmt.Errorf("%w: message content cannot be empty", app_errors.ErrValidation)
	}

	turn := &ChatTurn{ConversationID: req.ConversationID}
	if turn.ConversationID == "" {
		conv, err := s.CreateConversation(ctx, "")
		if err != nil {
			return nil, err
		}
		turn.ConversationID = conv.ID
		turn.newConversation = true
	} else if _, err := s.repo.GetConversation(ctx, turn.ConversationID); err != nil {
		return nil, translate(err, "conversation "+turn.ConversationID)
	}

	all, err := s.repo.ListMessages(ctx, turn.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("could not load conversation: %w", err)
	}

	branch := req.BranchID
	if req.UserMessageID != "" {
		user, ok := find(all, req.UserMessageID)
		if !ok {
			return nil, fmt.Errorf("%w: message %s is not part of conversation %s", app_errors.ErrNotFound, req.UserMessageID, turn.ConversationID)
		}
		if user.Role != model.RoleUser {
			return nil, fmt.Errorf("%w: message %s is not a user message", app_errors.ErrValidation, user.ID)
		}
		if branch == "" && user.BranchID != nil {
			branch = *user.BranchID
		}
		turn.UserMessage = user
	} else {
		if branch == "" {
			branch = versions.CurrentBranch(versions.ActivePath(all, nil))
		}
		turn.UserMessage = model.Message{
			ID:                      uuid.NewString(),
			ConversationID:          turn.ConversationID,
			Role:                    model.RoleUser,
			Content:                 req.Content,
			Attachments:             req.Attachments,
			VersionNumber:           1,
			BranchID:                optional(branch),
			ReferencedConversations: req.ReferencedConversations,
			ReferencedFolders:       req.ReferencedFolders,
			CreatedAt:               time.Now().UTC(),
		}
		if err := s.repo.AddMessage(ctx, &turn.UserMessage); err != nil {
			return nil, fmt.Errorf("could not save user message: %w", err)
		}
		all = append(all, turn.UserMessage)
	}

	if req.AssistantMessageID != "" {
		assistant, ok := find(all, req.AssistantMessageID)
		if !ok || assistant.Role != model.RoleAssistant {
			return nil, fmt.Errorf("%w: assistant message %s is not part of conversation %s", app_errors.ErrNotFound, req.AssistantMessageID, turn.ConversationID)
		}
		turn.AssistantMessage = assistant
		turn.history = versions.PathTo(all, turn.UserMessage.ID)
		return turn, nil
	}

	createdAt := time.Now().UTC()
	if !createdAt.After(turn.UserMessage.CreatedAt) {
		createdAt = turn.UserMessage.CreatedAt.Add(time.Millisecond)
	}
	turn.AssistantMessage = model.Message{
		ID:             uuid.NewString(),
		ConversationID: turn.ConversationID,
		Role:           model.RoleAssistant,
		VersionNumber:  1,
		BranchID:       optional(branch),
		CreatedAt:      createdAt,
	}
	if err := s.repo.AddMessage(ctx, &turn.AssistantMessage); err != nil {
		return nil, fmt.Errorf("could not save assistant message: %w", err)
	}

	turn.history = versions.PathTo(all, turn.UserMessage.ID)
	s.logger.Info("Chat turn started",
		"conversation_id", turn.ConversationID,
		"user_message_id", turn.UserMessage.ID,
		"assistant_message_id", turn.AssistantMessage.ID,
		"branch_id", branch,
		"history", len(turn.history))
	return turn, nil
}

// StreamReply generates the reply of turn and writes it to sw in the hybrid
// format: status and context events first, then the model's output verbatim.
// Whatever was generated is persisted, even if the reader went away.
func (s *ChatService) StreamReply(ctx context.Context, turn *ChatTurn, sw *stream.Writer) error {
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	write := func(err error) {
		if err != nil && writeErr == nil {
			writeErr = err
			cancel()
		}
	}

	write(sw.Status("analyzing", "Reviewing the conversation"))
	cards, documents := s.documentContext(ctx, turn.ConversationID)
	if len(cards) > 0 {
		write(sw.ContextCards(cards))
	}
	write(sw.Status("generating", "Writing a reply"))

	req := &llm.GenerateRequest{Model: s.cfg.MainModel, Messages: s.prompt(turn.history, documents)}
	ch := make(chan llm.StreamResponse)
	genErr := make(chan error, 1)
	go func() { genErr <- s.llm.GenerateStream(genCtx, req, ch) }()

	var full strings.Builder
	var modelErr error
	for chunk := range ch {
		if chunk.Error != "" {
			if modelErr == nil {
				modelErr = errors.New(chunk.Error)
			}
			continue
		}
		if writeErr != nil {
			continue
		}
		full.WriteString(chunk.Content)
		write(sw.Content(chunk.Content))
	}
	err := <-genErr
	if writeErr != nil {
		// The reader is gone; the cancellation we caused is not a model failure.
		err = nil
	}

	content := full.String()
	patch := &model.MessagePatch{Content: &content}
	if len(cards) > 0 {
		patch.ReasoningMetadata = &model.ReasoningMetadata{ContextCards: cards}
	}
	if perr := s.repo.UpdateMessage(context.WithoutCancel(ctx), turn.AssistantMessage.ID, patch); perr != nil {
		s.logger.Error("Failed to save assistant reply", "message_id", turn.AssistantMessage.ID, "error", perr)
	}

	if turn.newConversation && content != "" {
		user := turn.UserMessage.Content
		s.background.Go(func() {
			tctx, tcancel := context.WithTimeout(context.WithoutCancel(ctx), titleTimeout)
			defer tcancel()
			s.generateTitle(tctx, turn.ConversationID, user, content)
		})
	}

	switch {
	case err != nil:
		return fmt.Errorf("%w: generation failed: %w", app_errors.ErrInternal, err)
	case modelErr != nil:
		return fmt.Errorf("%w: model reported: %w", app_errors.ErrInternal, modelErr)
	case writeErr != nil:
		s.logger.Warn("Client went away during streaming", "message_id", turn.AssistantMessage.ID, "received", len(content), "error", writeErr)
		return writeErr
	}
	s.logger.Info("Reply streamed", "message_id", turn.AssistantMessage.ID, "length", len(content))
	return nil
}

// documentContext returns a card and the extracted text of every document
// indexed for the conversation.
func (s *ChatService) documentContext(ctx context.Context, conversationID string) ([]model.ContextCard, []string) {
	if s.jobs == nil {
		return nil, nil
	}
	jobs, err := s.jobs.ListJobs(ctx, conversationID)
	if err != nil {
		s.logger.Warn("Could not list indexed documents", "conversation_id", conversationID, "error", err)
		return nil, nil
	}

	var cards []model.ContextCard
	var documents []string
	for _, job := range jobs {
		if job.Status != model.StatusCompleted {
			continue
		}
		text, err := s.jobs.GetText(ctx, job.ID)
		if err != nil {
			s.logger.Debug("Indexed document has no text", "job_id", job.ID, "error", err)
			continue
		}
		cards = append(cards, model.ContextCard{
			ID:      job.ID,
			Type:    "document",
			Title:   job.FileName,
			Summary: truncate(strings.TrimSpace(text), cardSummaryLength),
		})
		documents = append(documents, fmt.Sprintf("### %s\n%s", job.FileName, truncate(text, maxDocumentContext)))
	}
	return cards, documents
}

func (s *ChatService) prompt(history []model.Message, documents []string) []llm.Message {
	system := s.cfg.SystemPrompt
	if len(documents) > 0 {
		system += "\n\nThe user shared these documents:\n\n" + strings.Join(documents, "\n\n")
	}
	messages := []llm.Message{{Role: string(model.RoleSystem), Content: system}}
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return messages
}

// generateTitle names a new conversation from its first exchange.
func (s *ChatService) generateTitle(ctx context.Context, conversationID, userQuery, assistantResponse string) {
	req := &llm.GenerateRequest{
		Model: s.cfg.SupportModel,
		Messages: []llm.Message{
			{
				Role:    "system",
				Content: "You are an expert at creating short, concise titles for conversations. Respond with only the title, and nothing else.",
			},
			{
				Role: "user",
				Content: fmt.Sprintf("Based on the following conversation, what would be a good title?\n\n---\nUser: %s\n\nAssistant: %s\n---",
					truncate(userQuery, 150),
					truncate(assistantResponse, 200),
				),
			},
		},
	}
	resp, err := s.llm.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("Failed to generate title", "conversation_id", conversationID, "error", err)
		return
	}

	title := strings.Trim(strings.TrimSpace(resp.Response), `"'`)
	if title == "" {
		s.logger.Debug("Generated title was empty", "conversation_id", conversationID)
		return
	}
	if err := s.repo.UpdateConversationTitle(ctx, conversationID, title); err != nil {
		s.logger.Warn("Failed to save title", "conversation_id", conversationID, "error", err)
		return
	}
	s.logger.Info("Conversation titled", "conversation_id", conversationID, "title", title)
}

func (s *ChatService) CreateConversation(ctx context.Context, projectID string) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv := &model.Conversation{ID: uuid.NewString(), ProjectID: projectID, Title: defaultTitle, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("could not create conversation: %w", err)
	}
	return conv, nil
}

func (s *ChatService) GetMessages(ctx context.Context, conversationID string, limit int, cursor string) (*model.MessagePage, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, translate(err, "conversation "+conversationID)
	}
	messages, next, err := s.repo.PageMessages(ctx, conversationID, limit, cursor)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, fmt.Errorf("%w: %w", app_errors.ErrValidation, err)
		}
		return nil, fmt.Errorf("could not load messages: %w", err)
	}
	return &model.MessagePage{Messages: messages, NextCursor: next}, nil
}

func (s *ChatService) GetVersions(ctx context.Context, rootID string) ([]model.Message, error) {
	members, err := s.repo.GetVersions(ctx, rootID)
	if err != nil {
		return nil, translate(err, "message "+rootID)
	}
	return members, nil
}

// EditMessage stores newContent as the next version of a user message and
// returns it with the path that now leads to it.
func (s *ChatService) EditMessage(ctx context.Context, messageID string, req *model.EditRequest) (*model.EditResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: edited content cannot be empty", app_errors.ErrValidation)
	}
	source, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, translate(err, "message "+messageID)
	}
	if source.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: only user messages can be edited", app_errors.ErrValidation)
	}

	edited, err := s.repo.AddVersion(ctx, messageID, req)
	if err != nil {
		return nil, translate(err, "message "+messageID)
	}
	all, err := s.repo.ListMessages(ctx, edited.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("could not load conversation: %w", err)
	}
	s.logger.Info("Message edited", "message_id", messageID, "new_message_id", edited.ID, "version", edited.VersionNumber)
	return &model.EditResult{NewMessage: *edited, ConversationPath: versions.PathTo(all, edited.ID)}, nil
}

func (s *ChatService) UpdateMessage(ctx context.Context, messageID string, patch *model.MessagePatch) error {
	return translate(s.repo.UpdateMessage(ctx, messageID, patch), "message "+messageID)
}

func (s *ChatService) DeleteMessage(ctx context.Context, messageID string) error {
	return translate(s.repo.DeleteMessage(ctx, messageID), "message "+messageID)
}

// translate maps repository errors to app errors.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", app_errors.ErrNotFound, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func find(messages []model.Message, id string) (model.Message, bool) {
	for _, m := range messages {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// truncate shortens a string to a specified number of runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
