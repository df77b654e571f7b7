package interfaces

import (
	"context"
	"io"

	"flow-ai/chatsync/internal/model"
)

// This file defines the collaborator contracts the synchronization engine
// consumes. The engine depends only on these interfaces; internal/client
// implements them over HTTP against the backend in internal/api, and the
// mocks in ./mocks stand in for them in tests.

// ConversationStore is the durable store of conversations and messages. It is
// the sole source of persisted identifiers and version numbers.
type ConversationStore interface {
	CreateConversation(ctx context.Context, projectID string) (string, error)
	// SendChatRequest persists the user turn and starts generating a reply.
	// A nil response with a nil error means the store declined the request.
	SendChatRequest(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
	GetMessages(ctx context.Context, conversationID string, limit int, cursor string) (*model.MessagePage, error)
	GetMessageVersions(ctx context.Context, rootID string) ([]model.Message, error)
	EditMessage(ctx context.Context, messageID string, req *model.EditRequest) (*model.EditResult, error)
	DeleteMessage(ctx context.Context, messageID string) error
	UpdateMessage(ctx context.Context, messageID string, patch *model.MessagePatch) error
}

// UploadAPI moves file contents to durable storage. All methods return the
// public URL or the descriptor needed for the next phase.
type UploadAPI interface {
	UploadFile(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	InitiateMultipartUpload(ctx context.Context, filename, contentType string) (*model.MultipartUpload, error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, body io.Reader) (*model.PartDescriptor, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []model.PartDescriptor) (string, error)
}

// IndexingAPI enqueues background document indexing and reports job status.
type IndexingAPI interface {
	EnqueueIndexing(ctx context.Context, conversationID string, file model.FileMeta, body io.Reader) (string, error)
	GetIndexingJob(ctx context.Context, jobID string) (*model.IndexingStatus, error)
}

// SurfaceDetector classifies a user message into follow-up surfaces
// (course, guide, quiz...). It is only ever called fire-and-forget.
type SurfaceDetector interface {
	Detect(ctx context.Context, content string) ([]string, error)
}
