package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/stream"
	"flow-ai/chatsync/internal/upload"
	"flow-ai/chatsync/internal/versions"
)

const streamBufferSize = 4096

// SubmitRequest is one user turn.
type SubmitRequest struct {
	Text                    string
	Files                   []upload.File
	ReferencedConversations []string
	ReferencedFolders       []string
}

// turn tracks the placeholders and request of one generation.
type turn struct {
	userTemp string
	asstTemp string
	req      *model.ChatRequest

	// prevConversation is the conversation open when the turn started and
	// adopted the one created for it mid-flight, if any.
	prevConversation string
	adopted          string
}

func tempID(role model.Role) string {
	return model.TempIDPrefix + string(role) + "-" + uuid.NewString()
}

// Submit sends a new user turn and streams the reply into the view.
//
// Both placeholders appear before any network call. A failure before the
// reply stream is obtained removes them again; a failure while streaming
// keeps, and persists, whatever was received.
func (r *Reconciler) Submit(ctx context.Context, req SubmitRequest) error {
	done := r.begin()
	defer done()

	now := time.Now().UTC()
	t := turn{userTemp: tempID(model.RoleUser), asstTemp: tempID(model.RoleAssistant)}

	var conversationID, branch string
	r.mutate(func() {
		conversationID = r.conversationID
		t.prevConversation = conversationID
		branch = versions.CurrentBranch(r.viewLocked())
		r.records = append(r.records,
			placeholder(t.userTemp, conversationID, model.RoleUser, req.Text, branch, now),
			placeholder(t.asstTemp, conversationID, model.RoleAssistant, "", branch, now.Add(time.Millisecond)),
		)
	})

	r.detectSurfaces(ctx, req.Text)

	var attachments []model.Attachment
	if len(req.Files) > 0 {
		res, err := r.uploader.Upload(ctx, req.Files, conversationID, upload.Callbacks{
			OnConversationCreated: func(id string) { r.adoptConversation(id, &t) },
		})
		if err != nil {
			r.rollback(t)
			r.notifier.Notify(Notice{Kind: NoticeToast, Message: "Attachments could not be prepared.", Err: err})
			return fmt.Errorf("upload attachments: %w", err)
		}
		for _, job := range res.Jobs {
			if job.Status == model.StatusFailed {
				r.notifier.Notify(jobNotice(job))
			}
		}
		attachments = res.Attachments
		if res.ConversationID != "" {
			conversationID = res.ConversationID
		}
		r.mutate(func() {
			r.updateLocked(t.userTemp, func(m *model.Message) { m.Attachments = attachments })
		})
	}

	t.req = &model.ChatRequest{
		Content:                 req.Text,
		Attachments:             attachments,
		ReferencedConversations: req.ReferencedConversations,
		ReferencedFolders:       req.ReferencedFolders,
		ConversationID:          conversationID,
		BranchID:                branch,
	}
	return r.generate(ctx, t)
}

// EditAndResubmit creates a new version of a user message and generates a
// fresh reply on the branch that version starts.
func (r *Reconciler) EditAndResubmit(ctx context.Context, messageID, newText string, attachments []model.Attachment) error {
	done := r.begin()
	defer done()

	res, err := r.store.EditMessage(ctx, messageID, &model.EditRequest{Content: newText, Attachments: attachments})
	if err != nil {
		r.notifier.Notify(Notice{Kind: NoticeToast, Message: "Your edit could not be saved.", Err: err})
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}

	edited := res.NewMessage
	branch := edited.ID
	if edited.BranchID != nil && *edited.BranchID != "" {
		branch = *edited.BranchID
	}
	t := turn{asstTemp: tempID(model.RoleAssistant)}

	r.mutate(func() {
		r.records = upsert(r.records, res.ConversationPath...)
		r.records = upsert(r.records, edited)
		delete(r.selected, edited.RootID())
		r.records = append(r.records,
			placeholder(t.asstTemp, edited.ConversationID, model.RoleAssistant, "", branch, time.Now().UTC()))
	})

	t.req = &model.ChatRequest{
		Content:                 edited.Content,
		Attachments:             edited.Attachments,
		ReferencedConversations: edited.ReferencedConversations,
		ReferencedFolders:       edited.ReferencedFolders,
		ConversationID:          edited.ConversationID,
		UserMessageID:           edited.ID,
		BranchID:                branch,
	}
	return r.generate(ctx, t)
}

func placeholder(id, conversationID string, role model.Role, content, branch string, at time.Time) model.Message {
	m := model.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		VersionNumber:  1,
		CreatedAt:      at,
	}
	if branch != "" {
		b := branch
		m.BranchID = &b
	}
	return m
}

// adoptConversation retro-tags the placeholders of t with a conversation
// created mid-flight.
func (r *Reconciler) adoptConversation(conversationID string, t *turn) {
	r.mutate(func() {
		if r.conversationID == "" {
			r.conversationID = conversationID
			t.adopted = conversationID
		}
		for _, id := range []string{t.userTemp, t.asstTemp} {
			r.updateLocked(id, func(m *model.Message) { m.ConversationID = conversationID })
		}
	})
}

// rollback removes the placeholders of t and forgets a conversation adopted
// for it. The conversation itself stays in the store, empty.
func (r *Reconciler) rollback(t turn) {
	r.mutate(func() {
		r.records = remove(r.records, t.userTemp, t.asstTemp)
		if t.adopted != "" && r.conversationID == t.adopted {
			r.conversationID = t.prevConversation
		}
	})
}

// generate issues the chat request of t, swaps placeholder identities for
// authoritative ones and streams the reply.
func (r *Reconciler) generate(ctx context.Context, t turn) error {
	resp, err := r.store.SendChatRequest(ctx, t.req)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: store declined the chat request", app_errors.ErrConflict)
	}
	if err != nil {
		r.rollback(t)
		r.notifier.Notify(sendFailureNotice(err))
		return fmt.Errorf("send chat request: %w", err)
	}
	defer func() {
		if cerr := resp.Stream.Close(); cerr != nil {
			r.logger.Debug("Failed to close reply stream", "error", cerr)
		}
	}()

	r.mutate(func() {
		if r.conversationID == "" || r.conversationID == t.req.ConversationID {
			r.conversationID = resp.ConversationID
		}
		// Placeholders carry client clock times; adopting the store's keeps
		// the turn ordered against records loaded later.
		if t.userTemp != "" {
			r.updateLocked(t.userTemp, func(m *model.Message) {
				m.ID = resp.UserMessageID
				m.ConversationID = resp.ConversationID
				if !resp.UserCreatedAt.IsZero() {
					m.CreatedAt = resp.UserCreatedAt
				}
			})
		}
		r.updateLocked(t.asstTemp, func(m *model.Message) {
			m.ID = resp.AssistantMessageID
			m.ConversationID = resp.ConversationID
			if !resp.AssistantCreatedAt.IsZero() {
				m.CreatedAt = resp.AssistantCreatedAt
			}
		})
	})

	assistantID := resp.AssistantMessageID
	session := stream.NewSession(assistantID)
	handlers := session.Handlers(func(id, content string) {
		r.mu.Lock()
		r.updateLocked(id, func(m *model.Message) { m.Content = content })
		r.mu.Unlock()
		r.publishProgress(id, content)
	})

	content, streamErr := stream.Demultiplex(ctx, stream.NewReaderSource(resp.Stream, streamBufferSize), handlers)

	meta := session.Fold()
	if surfaces, ok := r.surfaces.Get(t.req.Content); ok && len(surfaces) > 0 {
		if meta == nil {
			meta = &model.ReasoningMetadata{}
		}
		meta.DetectedSurfaces = surfaces
	}

	r.mutate(func() {
		r.updateLocked(assistantID, func(m *model.Message) {
			m.Content = content
			m.ReasoningMetadata = meta
		})
	})

	// The reply is persisted even when the caller's context is gone.
	persistCtx := context.WithoutCancel(ctx)
	if err := r.store.UpdateMessage(persistCtx, assistantID, &model.MessagePatch{Content: &content, ReasoningMetadata: meta}); err != nil {
		r.logger.Error("Failed to persist assistant reply", "message_id", assistantID, "error", err)
		r.notifier.Notify(Notice{Kind: NoticeToast, Message: "The reply could not be saved.", Err: err})
		if streamErr == nil {
			return fmt.Errorf("persist reply %s: %w", assistantID, err)
		}
	}

	if streamErr != nil {
		r.logger.Warn("Reply stream interrupted, partial content kept", "message_id", assistantID, "received", len(content), "error", streamErr)
		r.notifier.Notify(Notice{Kind: NoticeToast, Message: "The reply was interrupted.", Err: streamErr})
		return streamErr
	}
	return nil
}

// detectSurfaces classifies the user's text in the background, bounded by
// DetectionTimeout. The result only lands in the cache.
func (r *Reconciler) detectSurfaces(ctx context.Context, content string) {
	if r.detector == nil || content == "" {
		return
	}
	if _, ok := r.surfaces.Get(content); ok {
		return
	}
	go func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.DetectionTimeout)
		defer cancel()
		surfaces, err := r.detector.Detect(dctx, content)
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				r.logger.Debug("Surface detection failed", "error", err)
			}
			return
		}
		r.surfaces.Add(content, surfaces)
	}()
}
