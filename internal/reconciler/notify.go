package reconciler

import (
	"errors"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

// Observer is told about changes to the renderable conversation.
type Observer interface {
	// OnListChanged receives the new renderable list after any mutation.
	OnListChanged(messages []model.Message)
	// OnStreamProgress receives the full content of a reply while it streams.
	OnStreamProgress(messageID, content string)
}

// NoticeKind tells the UI where a notice belongs.
type NoticeKind string

const (
	// NoticeToast is a transient, global notice (transport, quota, permission).
	NoticeToast NoticeKind = "toast"
	// NoticeInline is shown next to the affected attachment (indexing).
	NoticeInline NoticeKind = "inline"
)

// Notice is a user-facing report of a failure. Notices never imply an
// automatic retry.
type Notice struct {
	Kind    NoticeKind
	Message string
	// File names the attachment an inline notice refers to.
	File string
	Err  error
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(Notice)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// sendFailureNotice describes a failure to obtain a reply stream.
func sendFailureNotice(err error) Notice {
	switch {
	case errors.Is(err, app_errors.ErrInsufficientCredits):
		return Notice{Kind: NoticeToast, Message: "You are out of credits. Top up to keep chatting.", Err: err}
	case errors.Is(err, app_errors.ErrPermission):
		return Notice{Kind: NoticeToast, Message: "You are not allowed to post in this conversation.", Err: err}
	default:
		return Notice{Kind: NoticeToast, Message: "Your message could not be sent.", Err: err}
	}
}

// jobNotice describes a failed upload job.
func jobNotice(job model.UploadJob) Notice {
	switch {
	case job.IndexJobID != "" && job.Attachment != nil:
		return Notice{Kind: NoticeInline, File: job.File.Name, Message: "Document indexing did not finish: " + job.Error}
	case job.Attachment == nil:
		return Notice{Kind: NoticeToast, File: job.File.Name, Message: "Upload failed: " + job.Error}
	default:
		return Notice{Kind: NoticeInline, File: job.File.Name, Message: job.Error}
	}
}
