package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

// This file contains shared DTOs (Data Transfer Objects) for API requests and
// responses and helper functions for sending consistent HTTP responses.

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse defines a generic success response for operations that
// don't need to return a full resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// CreateConversationRequest is the DTO for starting an empty conversation.
type CreateConversationRequest struct {
	ProjectID string `json:"project_id" validate:"omitempty,max=128" example:"proj-42"`
}

// CreateConversationResponse returns the id issued by the store.
type CreateConversationResponse struct {
	ID string `json:"id"`
}

// ChatRequest is the DTO for the streaming chat endpoint.
type ChatRequest struct {
	Content                 string             `json:"content" validate:"max=100000"`
	Attachments             []model.Attachment `json:"attachments,omitempty" validate:"max=20"`
	ReferencedConversations []string           `json:"referenced_conversations,omitempty" validate:"max=20"`
	ReferencedFolders       []string           `json:"referenced_folders,omitempty" validate:"max=20"`
	ConversationID          string             `json:"conversation_id,omitempty" validate:"omitempty,max=64"`
	UserMessageID           string             `json:"user_message_id,omitempty" validate:"omitempty,max=64"`
	AssistantMessageID      string             `json:"assistant_message_id,omitempty" validate:"omitempty,max=64"`
	BranchID                string             `json:"branch_id,omitempty" validate:"omitempty,max=64"`
}

func (r *ChatRequest) toModel() *model.ChatRequest {
	return &model.ChatRequest{
		Content:                 r.Content,
		Attachments:             r.Attachments,
		ReferencedConversations: r.ReferencedConversations,
		ReferencedFolders:       r.ReferencedFolders,
		ConversationID:          r.ConversationID,
		UserMessageID:           r.UserMessageID,
		AssistantMessageID:      r.AssistantMessageID,
		BranchID:                r.BranchID,
	}
}

// EditMessageRequest is the DTO for editing a user message.
type EditMessageRequest struct {
	Content                 string             `json:"content" validate:"required,min=1,max=100000" example:"What about Go generics?"`
	Attachments             []model.Attachment `json:"attachments,omitempty" validate:"max=20"`
	ReferencedConversations []string           `json:"referenced_conversations,omitempty"`
	ReferencedFolders       []string           `json:"referenced_folders,omitempty"`
}

// VersionsResponse lists the members of a version group.
type VersionsResponse struct {
	Versions []model.Message `json:"versions"`
}

// InitiateMultipartRequest opens a multipart upload.
type InitiateMultipartRequest struct {
	Filename    string `json:"filename" validate:"required,min=1,max=255" example:"lecture.mp4"`
	ContentType string `json:"content_type" validate:"max=255" example:"video/mp4"`
}

// CompletedPart is one entry of a multipart completion request.
type CompletedPart struct {
	PartNumber int    `json:"part_number" validate:"min=1"`
	ETag       string `json:"etag" validate:"required"`
}

// CompleteMultipartRequest lists the uploaded parts in order.
type CompleteMultipartRequest struct {
	Key   string          `json:"key" validate:"required"`
	Parts []CompletedPart `json:"parts" validate:"required,min=1,dive"`
}

// URLResponse returns the public URL of a stored file.
type URLResponse struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// EnqueueIndexingResponse returns the id of the queued job.
type EnqueueIndexingResponse struct {
	JobID  string          `json:"job_id"`
	Status model.JobStatus `json:"status"`
}

// DetectSurfacesRequest carries the message to classify.
type DetectSurfacesRequest struct {
	Content string `json:"content" validate:"required"`
}

// DetectSurfacesResponse lists the detected follow-up surfaces.
type DetectSurfacesResponse struct {
	Surfaces []string `json:"surfaces"`
}

// respondWithError is the centralized error handling function for the API layer.
// It maps business-layer errors to HTTP status codes and formats a standard
// JSON error response.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		// Validation messages from the service layer are already user-friendly.
		message = err.Error()
	case errors.Is(err, app_errors.ErrConflict):
		statusCode = http.StatusConflict
		message = "A conflict occurred with the current state of the resource."
	case errors.Is(err, app_errors.ErrPermission):
		statusCode = http.StatusForbidden
		message = "You do not have permission to perform this action."
	case errors.Is(err, app_errors.ErrInsufficientCredits):
		statusCode = http.StatusPaymentRequired
		message = "Insufficient credits."
	default:
		// Anything else is an internal error; details stay in the log.
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON is a low-level helper for marshaling a payload to JSON
// and writing it to the http.ResponseWriter with a given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// decodeAndValidate reads a JSON body into payload and checks its tags.
func decodeAndValidate(r *http.Request, payload interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		return validationError("invalid request payload: " + err.Error())
	}
	return validateRequest(payload)
}
