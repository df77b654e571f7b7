package repository

import (
	"context"

	"flow-ai/chatsync/internal/model"
)

// ConversationRepository persists conversations and their versioned messages.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *model.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	UpdateConversationTitle(ctx context.Context, conversationID, title string) error

	AddMessage(ctx context.Context, message *model.Message) error
	GetMessage(ctx context.Context, messageID string) (*model.Message, error)
	// ListMessages returns every live message of a conversation, oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	// PageMessages returns up to limit messages older than cursor, oldest
	// first, and the cursor of the next (older) page or "" at the beginning.
	PageMessages(ctx context.Context, conversationID string, limit int, cursor string) ([]model.Message, string, error)
	GetVersions(ctx context.Context, rootID string) ([]model.Message, error)
	// AddVersion stores edit as the next version of messageID's group.
	AddVersion(ctx context.Context, messageID string, edit *model.EditRequest) (*model.Message, error)
	UpdateMessage(ctx context.Context, messageID string, patch *model.MessagePatch) error
	DeleteMessage(ctx context.Context, messageID string) error
}

// JobRegistry tracks background indexing jobs and the text they extracted.
type JobRegistry interface {
	CreateJob(ctx context.Context, job *model.IndexingJob) error
	GetJob(ctx context.Context, jobID string) (*model.IndexingJob, error)
	UpdateJob(ctx context.Context, jobID string, status model.JobStatus, progress int, errMsg string) error
	ListJobs(ctx context.Context, conversationID string) ([]model.IndexingJob, error)
	SaveText(ctx context.Context, jobID, text string) error
	GetText(ctx context.Context, jobID string) (string, error)
}
