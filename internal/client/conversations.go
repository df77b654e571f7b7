package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

func (c *Client) CreateConversation(ctx context.Context, projectID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	in := map[string]string{"project_id": projectID}
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", nil, in, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: conversation created without an id", app_errors.ErrTransport)
	}
	return out.ID, nil
}

// SendChatRequest posts the turn and hands back the reply body unread. The
// caller owns resp.Stream. A 204 means the store declined the request.
func (c *Client) SendChatRequest(ctx context.Context, chatReq *model.ChatRequest) (*model.ChatResponse, error) {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat", nil), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		return nil, nil
	}

	out := &model.ChatResponse{
		Stream:             resp.Body,
		ConversationID:     resp.Header.Get(model.HeaderConversationID),
		UserMessageID:      resp.Header.Get(model.HeaderUserMessageID),
		AssistantMessageID: resp.Header.Get(model.HeaderAssistantMessageID),
		UserCreatedAt:      headerTime(resp.Header, model.HeaderUserMessageCreatedAt),
		AssistantCreatedAt: headerTime(resp.Header, model.HeaderAssistantMessageCreatedAt),
	}
	if out.ConversationID == "" || out.AssistantMessageID == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: chat response is missing message identifiers", app_errors.ErrTransport)
	}
	return out, nil
}

// headerTime parses an RFC 3339 timestamp header. A missing or malformed
// value yields the zero time.
func headerTime(h http.Header, key string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, h.Get(key))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Client) GetMessages(ctx context.Context, conversationID string, limit int, cursor string) (*model.MessagePage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page model.MessagePage
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetMessageVersions(ctx context.Context, rootID string) ([]model.Message, error) {
	var out struct {
		Versions []model.Message `json:"versions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/messages/"+url.PathEscape(rootID)+"/versions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID string, req *model.EditRequest) (*model.EditResult, error) {
	var out model.EditResult
	if err := c.doJSON(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/edit", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil, nil, nil)
}

func (c *Client) UpdateMessage(ctx context.Context, messageID string, patch *model.MessagePatch) error {
	return c.doJSON(ctx, http.MethodPatch, "/messages/"+url.PathEscape(messageID), nil, patch, nil)
}

// Detect asks the backend to classify content into follow-up surfaces.
func (c *Client) Detect(ctx context.Context, content string) ([]string, error) {
	var out struct {
		Surfaces []string `json:"surfaces"`
	}
	in := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/surfaces/detect", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Surfaces, nil
}
