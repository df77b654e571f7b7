package reconciler

import (
	"context"
	"fmt"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/versions"
)

// Versions fetches every member of a version group, ordered by version.
func (r *Reconciler) Versions(ctx context.Context, rootID string) ([]model.Message, error) {
	members, err := r.store.GetMessageVersions(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("could not load versions of %s: %w", rootID, err)
	}
	return versions.Group(members, rootID), nil
}

// SwitchVersion shows versionNumber for the group rooted at rootID. No
// message is modified: the group is re-fetched and the selection only
// changes which member the view resolves to. Selecting the latest version
// clears the selection.
func (r *Reconciler) SwitchVersion(ctx context.Context, rootID string, versionNumber int) error {
	done := r.begin()
	defer done()

	members, err := r.Versions(ctx, rootID)
	if err != nil {
		return err
	}

	latest, found := 0, false
	for _, m := range members {
		latest = max(latest, m.VersionNumber)
		if m.VersionNumber == versionNumber {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: message %s has no version %d", app_errors.ErrValidation, rootID, versionNumber)
	}

	r.mutate(func() {
		r.records = upsert(r.records, members...)
		if versionNumber == latest {
			delete(r.selected, rootID)
		} else {
			r.selected[rootID] = versionNumber
		}
	})
	r.logger.Debug("Switched version", "root_id", rootID, "version_number", versionNumber)
	return nil
}

// Selected returns the explicitly selected version of a group, if any.
func (r *Reconciler) Selected(rootID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.selected[rootID]
	return v, ok
}

// Delete removes a message from the store and from the view.
func (r *Reconciler) Delete(ctx context.Context, messageID string) error {
	done := r.begin()
	defer done()

	if err := r.store.DeleteMessage(ctx, messageID); err != nil {
		r.notifier.Notify(Notice{Kind: NoticeToast, Message: "The message could not be deleted.", Err: err})
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	r.mutate(func() {
		r.records = remove(r.records, messageID)
	})
	return nil
}
