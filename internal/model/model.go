package model

import (
	"io"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TempIDPrefix marks identifiers synthesized locally for optimistic entities.
// The store never issues identifiers with this prefix.
const TempIDPrefix = "temp-"

// Conversation stores metadata about a conversation.
type Conversation struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a file that has been moved to durable storage.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Message stores a single turn in a conversation.
//
// Edits never mutate a message: they create a new member of the same version
// group (VersionOf points at the group's root) with a higher VersionNumber.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`

	VersionOf     *string `json:"version_of,omitempty"`
	VersionNumber int     `json:"version_number"`
	BranchID      *string `json:"branch_id,omitempty"`

	ReferencedConversations []string `json:"referenced_conversations,omitempty"`
	ReferencedFolders       []string `json:"referenced_folders,omitempty"`

	CreatedAt         time.Time          `json:"created_at"`
	ReasoningMetadata *ReasoningMetadata `json:"reasoning_metadata,omitempty"`
}

// RootID returns the id of the version group this message belongs to.
func (m Message) RootID() string {
	if m.VersionOf != nil && *m.VersionOf != "" {
		return *m.VersionOf
	}
	return m.ID
}

// IsOptimistic reports whether the message is a local placeholder that the
// store has not confirmed yet.
func (m Message) IsOptimistic() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// StatusEvent is a progress pill narrating what the generator is doing.
type StatusEvent struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SearchSource is one hit inside a search results snapshot.
type SearchSource struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResults is the latest snapshot of a web/document search performed
// while generating a reply.
type SearchResults struct {
	Query        string         `json:"query"`
	Sources      []SearchSource `json:"sources"`
	Strategy     string         `json:"strategy"`
	TotalResults int            `json:"totalResults"`
}

// ContextCard describes a piece of context the generator pulled in.
type ContextCard struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type,omitempty"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ReasoningMetadata holds the control-plane events captured while a reply
// streamed. It is attached to the assistant message after streaming ends.
type ReasoningMetadata struct {
	StatusPills      []StatusEvent  `json:"status_pills,omitempty"`
	SearchResults    *SearchResults `json:"search_results,omitempty"`
	ContextCards     []ContextCard  `json:"context_cards,omitempty"`
	DetectedSurfaces []string       `json:"detected_surfaces,omitempty"`
}

// ChatRequest asks the store to persist a user turn and start generating a reply.
// UserMessageID and AssistantMessageID are set when the caller wants the store
// to reuse already persisted records (e.g. after an edit).
type ChatRequest struct {
	Content                 string       `json:"content"`
	Attachments             []Attachment `json:"attachments,omitempty"`
	ReferencedConversations []string     `json:"referenced_conversations,omitempty"`
	ReferencedFolders       []string     `json:"referenced_folders,omitempty"`
	ConversationID          string       `json:"conversation_id,omitempty"`
	UserMessageID           string       `json:"user_message_id,omitempty"`
	AssistantMessageID      string       `json:"assistant_message_id,omitempty"`
	// BranchID is the fork the new turns are written on. Empty means the
	// store derives it from the conversation's latest message.
	BranchID string `json:"branch_id,omitempty"`
}

// ChatResponse is returned once the store accepted the write. Stream carries
// the hybrid content/control byte stream of the reply and must be closed.
type ChatResponse struct {
	Stream             io.ReadCloser `json:"-"`
	ConversationID     string        `json:"conversation_id"`
	UserMessageID      string        `json:"user_message_id"`
	AssistantMessageID string        `json:"assistant_message_id"`
	// Store timestamps of both messages. Zero when the store did not report
	// them.
	UserCreatedAt      time.Time `json:"user_created_at"`
	AssistantCreatedAt time.Time `json:"assistant_created_at"`
}

// MessagePage is one page of a conversation, oldest first.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// EditRequest carries the replacement content of an edited message.
type EditRequest struct {
	Content                 string       `json:"content"`
	Attachments             []Attachment `json:"attachments,omitempty"`
	ReferencedConversations []string     `json:"referenced_conversations,omitempty"`
	ReferencedFolders       []string     `json:"referenced_folders,omitempty"`
}

// EditResult returns the new version and the conversation path that leads to it.
type EditResult struct {
	NewMessage       Message   `json:"new_message"`
	ConversationPath []Message `json:"conversation_path"`
}

// MessagePatch is a partial update; nil fields are left untouched.
type MessagePatch struct {
	Content           *string            `json:"content,omitempty"`
	ReasoningMetadata *ReasoningMetadata `json:"reasoning_metadata,omitempty"`
}

// FileMeta describes a file selected by the user.
type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// MultipartUpload identifies an initiated multipart transfer.
type MultipartUpload struct {
	UploadID string `json:"upload_id"`
	Key      string `json:"key"`
}

// PartDescriptor is returned for every uploaded part and replayed, in order,
// when the multipart upload is completed.
type PartDescriptor struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// JobStatus is the lifecycle state shared by upload jobs and indexing jobs.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusUploading  JobStatus = "uploading"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UploadJob tracks one file's transfer and optional indexing within a single
// submission. Jobs are never reused across submissions.
type UploadJob struct {
	ID             string      `json:"id"`
	File           FileMeta    `json:"file"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Status         JobStatus   `json:"status"`
	Progress       int         `json:"progress"`
	Error          string      `json:"error,omitempty"`
	IndexJobID     string      `json:"index_job_id,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

// IndexingStatus is what the indexing status endpoint reports for a job.
type IndexingStatus struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// IndexingJob is the registry record of a background document indexing task.
type IndexingJob struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	FileName       string    `json:"file_name"`
	FileType       string    `json:"file_type"`
	ObjectKey      string    `json:"object_key"`
	Status         JobStatus `json:"status"`
	Progress       int       `json:"progress"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Response headers of the chat endpoint carrying the authoritative ids and
// timestamps (RFC 3339, nanosecond precision) of the turn whose reply is being
// streamed in the body.
const (
	HeaderConversationID            = "X-Conversation-Id"
	HeaderUserMessageID             = "X-User-Message-Id"
	HeaderAssistantMessageID        = "X-Assistant-Message-Id"
	HeaderUserMessageCreatedAt      = "X-User-Message-Created-At"
	HeaderAssistantMessageCreatedAt = "X-Assistant-Message-Created-At"
)
