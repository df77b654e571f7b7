package versions

import (
	"time"

	"flow-ai/chatsync/internal/model"
)

// branchOf returns the fork a message was written in. The empty string is the
// conversation's original line.
func branchOf(m model.Message) string {
	if m.BranchID == nil {
		return ""
	}
	return *m.BranchID
}

// ActivePath derives the messages visible to the reader: one member per
// version group (the selected version if any, otherwise the highest), and only
// the turns written on the branches that lead to those members.
//
// Editing a message creates a new group member whose BranchID is its own id;
// turns generated after it carry that BranchID. When a member is not the one
// shown, its branch is hidden from that member's timestamp onward. A branch
// whose originating message is itself hidden disappears entirely.
func ActivePath(messages []model.Message, selected map[string]int) []model.Message {
	if len(messages) == 0 {
		return []model.Message{}
	}

	candidates := FilterSelected(messages, selected)
	chosen := make(map[string]model.Message)
	for _, m := range ResolveActiveVersions(candidates) {
		chosen[m.RootID()] = m
	}

	hiddenFrom := make(map[string]time.Time)
	hide := func(branch string, from time.Time) bool {
		if cur, ok := hiddenFrom[branch]; ok && !from.Before(cur) {
			return false
		}
		hiddenFrom[branch] = from
		return true
	}

	for _, m := range messages {
		c, ok := chosen[m.RootID()]
		if !ok || c.ID == m.ID {
			continue
		}
		if branchOf(m) == branchOf(c) {
			continue
		}
		hide(branchOf(m), m.CreatedAt)
	}

	first := make(map[string]model.Message)
	for _, m := range messages {
		if f, ok := first[m.RootID()]; !ok || m.CreatedAt.Before(f.CreatedAt) {
			first[m.RootID()] = m
		}
	}

	// A group is hidden when its first member was written on a branch that is
	// already hidden at that point. Members of the group itself only hide a
	// branch from their own timestamp on, so they never hide the group.
	hiddenGroup := make(map[string]bool)
	visible := func(m model.Message) bool {
		c, ok := chosen[m.RootID()]
		if !ok || c.ID != m.ID || hiddenGroup[m.RootID()] {
			return false
		}
		from, ok := hiddenFrom[branchOf(m)]
		return !ok || m.CreatedAt.Before(from)
	}

	// Forks that originate at a hidden message are hidden as a whole, which
	// may in turn hide further groups.
	for changed := true; changed; {
		changed = false
		for root, f := range first {
			if hiddenGroup[root] {
				continue
			}
			if from, ok := hiddenFrom[branchOf(f)]; ok && from.Before(f.CreatedAt) {
				hiddenGroup[root] = true
				changed = true
			}
		}
		for _, m := range messages {
			b := branchOf(m)
			if b == "" || b != m.ID || visible(m) {
				continue
			}
			if hide(b, time.Time{}) {
				changed = true
			}
		}
	}

	out := make([]model.Message, 0, len(chosen))
	for _, m := range ResolveActiveVersions(candidates) {
		if visible(m) {
			out = append(out, m)
		}
	}
	return out
}

// CurrentBranch returns the branch new turns should be written on given the
// visible path: the branch of its last message.
func CurrentBranch(path []model.Message) string {
	if len(path) == 0 {
		return ""
	}
	return branchOf(path[len(path)-1])
}

// PathTo returns the path that ends at the message targetID: every version
// group on the way is pinned to the member that leads to the target, so the
// result is what a reader sees after selecting that message. Messages after
// the target are not included.
func PathTo(messages []model.Message, targetID string) []model.Message {
	byID := make(map[string]model.Message, len(messages))
	first := make(map[string]model.Message)
	for _, m := range messages {
		byID[m.ID] = m
		if f, ok := first[m.RootID()]; !ok || m.CreatedAt.Before(f.CreatedAt) {
			first[m.RootID()] = m
		}
	}
	target, ok := byID[targetID]
	if !ok {
		return []model.Message{}
	}

	selected := make(map[string]int)
	pin := func(branch string, until time.Time, inclusive bool) {
		for _, m := range messages {
			if branchOf(m) != branch || m.CreatedAt.After(until) || (!inclusive && m.CreatedAt.Equal(until)) {
				continue
			}
			if _, done := selected[m.RootID()]; !done {
				selected[m.RootID()] = m.VersionNumber
			}
		}
	}

	// Walk from the target's branch back to the original line. A branch
	// continues the branch its originating group was first written on, up to
	// that group's first member.
	branch, until, inclusive := branchOf(target), target.CreatedAt, true
	for range messages {
		pin(branch, until, inclusive)
		if branch == "" {
			break
		}
		origin, ok := byID[branch]
		if !ok {
			break
		}
		f := first[origin.RootID()]
		branch, until, inclusive = branchOf(f), f.CreatedAt, false
	}
	selected[target.RootID()] = target.VersionNumber

	path := ActivePath(messages, selected)
	for i, m := range path {
		if m.ID == targetID {
			return path[:i+1]
		}
	}
	return path
}
