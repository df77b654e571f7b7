// Package versions derives the renderable view of a conversation from the flat
// set of message records the store returns.
//
// Versions are not modeled as a graph. Every record carries a pointer to its
// group root (VersionOf) and a VersionNumber; membership and the active member
// are computed at read time by grouping.
package versions

import (
	"slices"
	"sort"

	"flow-ai/chatsync/internal/model"
)

// ResolveActiveVersions returns one message per version group: the member with
// the highest VersionNumber. The result is ordered by CreatedAt ascending so a
// conversation renders in turn order whichever version is active. Groups with
// equal timestamps keep the order in which they first appeared in the input.
//
// The input is never modified.
func ResolveActiveVersions(messages []model.Message) []model.Message {
	if len(messages) == 0 {
		return []model.Message{}
	}

	type slot struct {
		msg   model.Message
		order int
	}
	active := make(map[string]*slot, len(messages))
	roots := make([]string, 0, len(messages))

	for _, m := range messages {
		root := m.RootID()
		cur, ok := active[root]
		if !ok {
			active[root] = &slot{msg: m, order: len(roots)}
			roots = append(roots, root)
			continue
		}
		if supersedes(m, cur.msg) {
			cur.msg = m
		}
	}

	slots := make([]*slot, 0, len(roots))
	for _, root := range roots {
		slots = append(slots, active[root])
	}
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.msg.CreatedAt.Before(b.msg.CreatedAt)
		}
		return a.order < b.order
	})

	out := make([]model.Message, len(slots))
	for i, s := range slots {
		out[i] = s.msg
	}
	return out
}

// supersedes reports whether candidate should replace current as the active
// member of a group. Equal version numbers are a store-side invariant breach
// (see FindCollisions); they are broken deterministically by the later
// CreatedAt, then the larger id, so every caller derives the same view.
func supersedes(candidate, current model.Message) bool {
	if candidate.VersionNumber != current.VersionNumber {
		return candidate.VersionNumber > current.VersionNumber
	}
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.ID > current.ID
}

// Group returns every member of the version group rooted at rootID, ordered
// by VersionNumber ascending.
func Group(messages []model.Message, rootID string) []model.Message {
	var members []model.Message
	for _, m := range messages {
		if m.RootID() == rootID {
			members = append(members, m)
		}
	}
	slices.SortStableFunc(members, func(a, b model.Message) int {
		return a.VersionNumber - b.VersionNumber
	})
	return members
}

// Collision describes a version group in which two or more members share a
// VersionNumber.
type Collision struct {
	RootID        string
	VersionNumber int
	MessageIDs    []string
}

// FindCollisions reports every version group whose members do not carry
// unique version numbers. The resolver still produces a deterministic view in
// that case; callers are expected to log the collision.
func FindCollisions(messages []model.Message) []Collision {
	type key struct {
		root    string
		version int
	}
	seen := make(map[key][]string)
	var order []key
	for _, m := range messages {
		k := key{root: m.RootID(), version: m.VersionNumber}
		if _, ok := seen[k]; !ok {
			order = append(order, k)
		}
		seen[k] = append(seen[k], m.ID)
	}

	var out []Collision
	for _, k := range order {
		ids := seen[k]
		if len(ids) < 2 {
			continue
		}
		out = append(out, Collision{RootID: k.root, VersionNumber: k.version, MessageIDs: ids})
	}
	return out
}

// FilterSelected hides members of the given groups whose VersionNumber is
// above the selected one, so that ResolveActiveVersions picks the selected
// member. Groups without a selection are passed through untouched.
func FilterSelected(messages []model.Message, selected map[string]int) []model.Message {
	if len(selected) == 0 {
		return messages
	}
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if v, ok := selected[m.RootID()]; ok && m.VersionNumber > v {
			continue
		}
		out = append(out, m)
	}
	return out
}
