package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/service"
	"flow-ai/chatsync/internal/stream"
)

// ChatHandler serves conversations, messages and the streaming chat endpoint.
type ChatHandler struct {
	service  *service.ChatService
	pageSize int
}

func NewChatHandler(svc *service.ChatService, pageSize int) *ChatHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ChatHandler{service: svc, pageSize: pageSize}
}

// CreateConversation godoc
// @Summary      Create a conversation
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        request  body      CreateConversationRequest  true  "Project"
// @Success      201      {object}  CreateConversationResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/conversations [post]
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	conv, err := h.service.CreateConversation(r.Context(), req.ProjectID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, CreateConversationResponse{ID: conv.ID})
}

// GetMessages godoc
// @Summary      Page through a conversation
// @Description  Returns the newest page first; each page is ordered oldest to newest.
// @Tags         Conversations
// @Produce      json
// @Param        conversationID  path      string  true   "Conversation ID"
// @Param        limit           query     int     false  "Page size"
// @Param        cursor          query     string  false  "Cursor of the next older page"
// @Success      200             {object}  model.MessagePage
// @Failure      400             {object}  ErrorResponse
// @Failure      404             {object}  ErrorResponse
// @Router       /v1/conversations/{conversationID}/messages [get]
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	limit := h.pageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondWithError(w, validationError("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	page, err := h.service.GetMessages(r.Context(), conversationID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// GetVersions godoc
// @Summary      List the versions of a message
// @Tags         Messages
// @Produce      json
// @Param        messageID  path      string  true  "Root message ID"
// @Success      200        {object}  VersionsResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/messages/{messageID}/versions [get]
func (h *ChatHandler) GetVersions(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.GetVersions(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, VersionsResponse{Versions: members})
}

// EditMessage godoc
// @Summary      Edit a user message
// @Description  Stores the edit as a new version on its own branch.
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        messageID  path      string              true  "Message ID"
// @Param        request    body      EditMessageRequest  true  "New content"
// @Success      200        {object}  model.EditResult
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/messages/{messageID}/edit [post]
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var req EditMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	result, err := h.service.EditMessage(r.Context(), chi.URLParam(r, "messageID"), &model.EditRequest{
		Content:                 req.Content,
		Attachments:             req.Attachments,
		ReferencedConversations: req.ReferencedConversations,
		ReferencedFolders:       req.ReferencedFolders,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// UpdateMessage godoc
// @Summary      Patch a message
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        messageID  path      string              true  "Message ID"
// @Param        request    body      model.MessagePatch  true  "Fields to change"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/messages/{messageID} [patch]
func (h *ChatHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	var patch model.MessagePatch
	if err := decodeAndValidate(r, &patch); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.service.UpdateMessage(r.Context(), chi.URLParam(r, "messageID"), &patch); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// DeleteMessage godoc
// @Summary      Delete a message
// @Tags         Messages
// @Produce      json
// @Param        messageID  path      string  true  "Message ID"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/messages/{messageID} [delete]
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMessage(r.Context(), chi.URLParam(r, "messageID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleChat godoc
// @Summary      Send a message and stream the reply
// @Description  Persists the user turn, then streams the reply as plain text with
// @Description  JSON control lines. The ids and timestamps of the turn are in the X- response headers.
// @Tags         Chat
// @Accept       json
// @Produce      plain
// @Param        request  body      ChatRequest  true  "Chat turn"
// @Success      200      {string}  string       "Hybrid content stream"
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/chat [post]
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	turn, err := h.service.StartChat(r.Context(), req.toModel())
	if err != nil {
		respondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(model.HeaderConversationID, turn.ConversationID)
	w.Header().Set(model.HeaderUserMessageID, turn.UserMessage.ID)
	w.Header().Set(model.HeaderAssistantMessageID, turn.AssistantMessage.ID)
	w.Header().Set(model.HeaderUserMessageCreatedAt, turn.UserMessage.CreatedAt.UTC().Format(time.RFC3339Nano))
	w.Header().Set(model.HeaderAssistantMessageCreatedAt, turn.AssistantMessage.CreatedAt.UTC().Format(time.RFC3339Nano))
	w.WriteHeader(http.StatusOK)

	var flush func()
	if flusher, ok := w.(http.Flusher); ok {
		flush = flusher.Flush
	}
	sw := stream.NewWriter(w, flush)

	if err := h.service.StreamReply(r.Context(), turn, sw); err != nil {
		if r.Context().Err() != nil {
			slog.Info("Client disconnected during chat stream", "conversation_id", turn.ConversationID)
			return
		}
		slog.Error("Chat stream ended with an error", "conversation_id", turn.ConversationID, "error", err)
		_ = sw.Status("error", "The reply could not be completed.")
	}
}
