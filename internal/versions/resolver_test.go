package versions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/versions"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, versionOf string, version int, offset time.Duration) model.Message {
	m := model.Message{ID: id, VersionNumber: version, CreatedAt: base.Add(offset), Role: model.RoleUser}
	if versionOf != "" {
		m.VersionOf = &versionOf
	}
	return m
}

func ptr(s string) *string { return &s }

func ids(messages []model.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestResolveActiveVersions(t *testing.T) {
	t.Run("Edited message replaces its root", func(t *testing.T) {
		a := msg("A", "", 1, 0)
		a2 := msg("A2", "A", 2, time.Minute)

		got := versions.ResolveActiveVersions([]model.Message{a, a2})

		require.Len(t, got, 1)
		assert.Equal(t, "A2", got[0].ID)
	})

	t.Run("One message per group with the highest version", func(t *testing.T) {
		input := []model.Message{
			msg("A", "", 1, 0),
			msg("B", "", 1, time.Second),
			msg("A3", "A", 3, 3*time.Minute),
			msg("A2", "A", 2, 2*time.Minute),
			msg("C", "", 1, 2*time.Second),
			msg("B2", "B", 2, 4*time.Minute),
		}

		got := versions.ResolveActiveVersions(input)

		require.Len(t, got, 3)
		maxByRoot := map[string]int{}
		for _, m := range input {
			if m.VersionNumber > maxByRoot[m.RootID()] {
				maxByRoot[m.RootID()] = m.VersionNumber
			}
		}
		seen := map[string]bool{}
		for _, m := range got {
			assert.False(t, seen[m.RootID()], "root %s returned twice", m.RootID())
			seen[m.RootID()] = true
			assert.Equal(t, maxByRoot[m.RootID()], m.VersionNumber)
		}
	})

	t.Run("Sorted by timestamp, not by version", func(t *testing.T) {
		input := []model.Message{
			msg("B", "", 1, 10*time.Second),
			msg("A", "", 1, 0),
			msg("A2", "A", 2, time.Hour),
		}

		got := versions.ResolveActiveVersions(input)

		assert.Equal(t, []string{"B", "A2"}, ids(got))
	})

	t.Run("Equal timestamps keep input order", func(t *testing.T) {
		input := []model.Message{msg("X", "", 1, 0), msg("Y", "", 1, 0), msg("Z", "", 1, 0)}

		got := versions.ResolveActiveVersions(input)

		assert.Equal(t, []string{"X", "Y", "Z"}, ids(got))
	})

	t.Run("Input is not mutated and repeated calls agree", func(t *testing.T) {
		input := []model.Message{msg("B", "", 1, time.Second), msg("A", "", 1, 0)}
		snapshot := append([]model.Message(nil), input...)

		first := versions.ResolveActiveVersions(input)
		second := versions.ResolveActiveVersions(input)

		assert.Equal(t, snapshot, input)
		assert.Equal(t, first, second)
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, versions.ResolveActiveVersions(nil))
	})

	t.Run("Version collision is resolved deterministically", func(t *testing.T) {
		early := msg("A2a", "A", 2, time.Minute)
		late := msg("A2b", "A", 2, 2*time.Minute)

		forward := versions.ResolveActiveVersions([]model.Message{msg("A", "", 1, 0), early, late})
		backward := versions.ResolveActiveVersions([]model.Message{late, early, msg("A", "", 1, 0)})

		assert.Equal(t, "A2b", forward[0].ID)
		assert.Equal(t, "A2b", backward[0].ID)
	})
}

func TestFindCollisions(t *testing.T) {
	input := []model.Message{
		msg("A", "", 1, 0),
		msg("A2a", "A", 2, time.Minute),
		msg("A2b", "A", 2, 2*time.Minute),
		msg("B", "", 1, time.Second),
	}

	got := versions.FindCollisions(input)

	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].RootID)
	assert.Equal(t, 2, got[0].VersionNumber)
	assert.ElementsMatch(t, []string{"A2a", "A2b"}, got[0].MessageIDs)
	assert.Empty(t, versions.FindCollisions(input[:2]))
}

func TestGroup(t *testing.T) {
	input := []model.Message{
		msg("A3", "A", 3, 3*time.Minute),
		msg("B", "", 1, time.Second),
		msg("A", "", 1, 0),
		msg("A2", "A", 2, 2*time.Minute),
	}

	assert.Equal(t, []string{"A", "A2", "A3"}, ids(versions.Group(input, "A")))
	assert.Equal(t, []string{"B"}, ids(versions.Group(input, "B")))
	assert.Empty(t, versions.Group(input, "missing"))
}

func TestFilterSelected(t *testing.T) {
	input := []model.Message{
		msg("A", "", 1, 0),
		msg("A2", "A", 2, time.Minute),
		msg("A3", "A", 3, 2*time.Minute),
		msg("B", "", 1, time.Second),
		msg("B2", "B", 2, 3*time.Minute),
	}

	got := versions.FilterSelected(input, map[string]int{"A": 2})

	assert.Equal(t, []string{"A", "A2", "B", "B2"}, ids(got))
	assert.Equal(t, []string{"A2", "B2"}, ids(versions.ResolveActiveVersions(got)))
	assert.Equal(t, input, versions.FilterSelected(input, nil))
}

func TestActivePath(t *testing.T) {
	// U1 -> A1 on the original line; U1 edited into U1v2 which got reply A2.
	u1 := msg("U1", "", 1, 0)
	a1 := msg("A1", "", 1, time.Second)
	a1.Role = model.RoleAssistant
	u1v2 := msg("U1v2", "U1", 2, time.Minute)
	u1v2.BranchID = ptr("U1v2")
	a2 := msg("A2", "", 1, time.Minute+time.Second)
	a2.Role = model.RoleAssistant
	a2.BranchID = ptr("U1v2")
	all := []model.Message{u1, a1, u1v2, a2}

	t.Run("Latest version shows its own branch", func(t *testing.T) {
		got := versions.ActivePath(all, nil)
		assert.Equal(t, []string{"U1v2", "A2"}, ids(got))
		assert.Equal(t, "U1v2", versions.CurrentBranch(got))
	})

	t.Run("Selecting the original shows the original reply", func(t *testing.T) {
		got := versions.ActivePath(all, map[string]int{"U1": 1})
		assert.Equal(t, []string{"U1", "A1"}, ids(got))
		assert.Equal(t, "", versions.CurrentBranch(got))
	})

	t.Run("Turns before the fork stay visible", func(t *testing.T) {
		intro := msg("S", "", 1, -time.Minute)
		got := versions.ActivePath(append([]model.Message{intro}, all...), nil)
		assert.Equal(t, []string{"S", "U1v2", "A2"}, ids(got))
	})

	t.Run("Nested fork under a hidden branch disappears", func(t *testing.T) {
		// A2 edited into A2v2 on the U1v2 branch, then U1 selected back to v1.
		a2v2 := msg("A2v2", "A2", 2, 2*time.Minute)
		a2v2.Role = model.RoleAssistant
		a2v2.BranchID = ptr("A2v2")
		u3 := msg("U3", "", 1, 3*time.Minute)
		u3.BranchID = ptr("A2v2")
		nested := append(append([]model.Message(nil), all...), a2v2, u3)

		assert.Equal(t, []string{"U1v2", "A2v2", "U3"}, ids(versions.ActivePath(nested, nil)))
		assert.Equal(t, []string{"U1", "A1"}, ids(versions.ActivePath(nested, map[string]int{"U1": 1})))
		assert.Equal(t, []string{"U1v2", "A2"}, ids(versions.ActivePath(nested, map[string]int{"A2": 1})))
	})
}

func TestPathTo(t *testing.T) {
	s := msg("S", "", 1, -time.Minute)
	u1 := msg("U1", "", 1, 0)
	a1 := msg("A1", "", 1, time.Second)
	u1v2 := msg("U1v2", "U1", 2, time.Minute)
	u1v2.BranchID = ptr("U1v2")
	a2 := msg("A2", "", 1, time.Minute+time.Second)
	a2.BranchID = ptr("U1v2")
	u1v3 := msg("U1v3", "U1", 3, 2*time.Minute)
	u1v3.BranchID = ptr("U1v3")
	a3 := msg("A3", "", 1, 2*time.Minute+time.Second)
	a3.BranchID = ptr("U1v3")
	all := []model.Message{s, u1, a1, u1v2, a2, u1v3, a3}

	assert.Equal(t, []string{"S", "U1", "A1"}, ids(versions.PathTo(all, "A1")))
	assert.Equal(t, []string{"S", "U1v2", "A2"}, ids(versions.PathTo(all, "A2")))
	assert.Equal(t, []string{"S", "U1v3"}, ids(versions.PathTo(all, "U1v3")))
	assert.Equal(t, []string{"S"}, ids(versions.PathTo(all, "S")))
	assert.Empty(t, versions.PathTo(all, "missing"))

	t.Run("Nested fork keeps both pins", func(t *testing.T) {
		a2v2 := msg("A2v2", "A2", 2, 3*time.Minute)
		a2v2.BranchID = ptr("A2v2")
		u4 := msg("U4", "", 1, 4*time.Minute)
		u4.BranchID = ptr("A2v2")
		nested := append(append([]model.Message(nil), all...), a2v2, u4)

		assert.Equal(t, []string{"S", "U1v2", "A2v2", "U4"}, ids(versions.PathTo(nested, "U4")))
	})
}
