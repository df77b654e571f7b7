package reconciler

import (
	"sort"
	"strings"
	"time"

	"flow-ai/chatsync/internal/model"
)

// DefaultDuplicateTolerance is how far apart a placeholder and its
// authoritative copy may be stamped and still be considered the same turn.
const DefaultDuplicateTolerance = 10 * time.Second

// Merge combines the locally held records with a freshly loaded
// authoritative page of conversationID and returns the new record set,
// ordered by CreatedAt. The renderable view is derived from it with
// versions.ActivePath.
//
// Rules, applied per message:
//   - an authoritative assistant message with empty content keeps the local
//     content when the local copy has some (the store has not caught up yet);
//   - a placeholder is dropped when it belongs to another conversation, or
//     when an authoritative message with the same role (and, for user
//     messages, the same trimmed content) is stamped within tolerance of it;
//   - a local authoritative record missing from the page is kept only if it
//     predates the page (it was loaded from an earlier page).
//
// Merge is idempotent: merging the same authoritative page into its own
// result yields that result again.
func Merge(local, authoritative []model.Message, conversationID string, tolerance time.Duration) []model.Message {
	localByID := make(map[string]model.Message, len(local))
	for _, m := range local {
		localByID[m.ID] = m
	}

	out := make([]model.Message, 0, len(local)+len(authoritative))
	fetched := make(map[string]bool, len(authoritative))
	var earliest time.Time
	for i, a := range authoritative {
		fetched[a.ID] = true
		if i == 0 || a.CreatedAt.Before(earliest) {
			earliest = a.CreatedAt
		}
		if l, ok := localByID[a.ID]; ok {
			a = guardStaleWrite(l, a)
		}
		out = append(out, a)
	}

	for _, l := range local {
		switch {
		case fetched[l.ID]:
		case l.IsOptimistic():
			if l.ConversationID != conversationID || confirmed(l, authoritative, tolerance) {
				continue
			}
			out = append(out, l)
		case l.ConversationID == conversationID && len(authoritative) > 0 && l.CreatedAt.Before(earliest):
			out = append(out, l)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// guardStaleWrite keeps local assistant output the store has not seen yet.
func guardStaleWrite(local, remote model.Message) model.Message {
	if remote.Role != model.RoleAssistant {
		return remote
	}
	if strings.TrimSpace(remote.Content) != "" || local.Content == "" {
		return remote
	}
	remote.Content = local.Content
	if remote.ReasoningMetadata == nil {
		remote.ReasoningMetadata = local.ReasoningMetadata
	}
	return remote
}

// confirmed reports whether the store already holds the write a placeholder
// stands for.
func confirmed(placeholder model.Message, authoritative []model.Message, tolerance time.Duration) bool {
	for _, a := range authoritative {
		if a.Role != placeholder.Role {
			continue
		}
		if placeholder.Role == model.RoleUser &&
			strings.TrimSpace(a.Content) != strings.TrimSpace(placeholder.Content) {
			continue
		}
		if absDuration(a.CreatedAt.Sub(placeholder.CreatedAt)) <= tolerance {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
