package reconciler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/reconciler"
)

var t0 = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func message(id, conv string, role model.Role, content string, at time.Duration) model.Message {
	return model.Message{ID: id, ConversationID: conv, Role: role, Content: content, VersionNumber: 1, CreatedAt: t0.Add(at)}
}

func TestMerge(t *testing.T) {
	tolerance := 10 * time.Second

	t.Run("Stale-write guard keeps local assistant content", func(t *testing.T) {
		local := []model.Message{message("a1", "c1", model.RoleAssistant, "streamed reply", time.Second)}
		remote := []model.Message{message("a1", "c1", model.RoleAssistant, "", time.Second)}

		got := reconciler.Merge(local, remote, "c1", tolerance)

		require.Len(t, got, 1)
		assert.Equal(t, "streamed reply", got[0].Content)
	})

	t.Run("Authoritative content wins when present", func(t *testing.T) {
		local := []model.Message{message("a1", "c1", model.RoleAssistant, "partial", time.Second)}
		remote := []model.Message{message("a1", "c1", model.RoleAssistant, "final", time.Second)}

		got := reconciler.Merge(local, remote, "c1", tolerance)

		assert.Equal(t, "final", got[0].Content)
	})

	t.Run("Confirmed placeholders are suppressed", func(t *testing.T) {
		local := []model.Message{
			message(model.TempIDPrefix+"user-1", "c1", model.RoleUser, "  hi there ", 0),
			message(model.TempIDPrefix+"assistant-1", "c1", model.RoleAssistant, "", time.Millisecond),
		}
		remote := []model.Message{
			message("u1", "c1", model.RoleUser, "hi there", 2*time.Second),
			message("a1", "c1", model.RoleAssistant, "hello", 3*time.Second),
		}

		got := reconciler.Merge(local, remote, "c1", tolerance)

		assert.Equal(t, []string{"u1", "a1"}, idsOf(got))
	})

	t.Run("Unconfirmed placeholders stay", func(t *testing.T) {
		local := []model.Message{
			message(model.TempIDPrefix+"user-1", "c1", model.RoleUser, "different text", 0),
			message(model.TempIDPrefix+"user-2", "c1", model.RoleUser, "hi there", time.Minute),
		}
		remote := []model.Message{message("u1", "c1", model.RoleUser, "hi there", 0)}

		got := reconciler.Merge(local, remote, "c1", tolerance)

		assert.Equal(t, []string{"u1", model.TempIDPrefix + "user-1", model.TempIDPrefix + "user-2"}, idsOf(got))
	})

	t.Run("Placeholders of another conversation are dropped", func(t *testing.T) {
		local := []model.Message{message(model.TempIDPrefix+"user-1", "other", model.RoleUser, "x", 0)}

		got := reconciler.Merge(local, []model.Message{message("u1", "c1", model.RoleUser, "y", 0)}, "c1", tolerance)

		assert.Equal(t, []string{"u1"}, idsOf(got))
	})

	t.Run("Records from earlier pages survive a reload", func(t *testing.T) {
		local := []model.Message{
			message("old", "c1", model.RoleUser, "old", -time.Hour),
			message("gone", "c1", model.RoleUser, "deleted elsewhere", time.Minute),
		}
		remote := []model.Message{message("u1", "c1", model.RoleUser, "y", 0)}

		got := reconciler.Merge(local, remote, "c1", tolerance)

		assert.Equal(t, []string{"old", "u1"}, idsOf(got))
	})

	t.Run("Merging twice is idempotent", func(t *testing.T) {
		local := []model.Message{
			message("old", "c1", model.RoleUser, "old", -time.Hour),
			message("a1", "c1", model.RoleAssistant, "streamed", time.Second),
			message(model.TempIDPrefix+"user-1", "c1", model.RoleUser, "pending", 5*time.Minute),
			message(model.TempIDPrefix+"user-2", "c2", model.RoleUser, "foreign", 5*time.Minute),
			message(model.TempIDPrefix+"user-3", "c1", model.RoleUser, "hi", 0),
		}
		remote := []model.Message{
			message("u1", "c1", model.RoleUser, "hi", 0),
			message("a1", "c1", model.RoleAssistant, "", time.Second),
		}

		once := reconciler.Merge(local, remote, "c1", tolerance)
		twice := reconciler.Merge(once, remote, "c1", tolerance)

		assert.Equal(t, once, twice)
		assert.Equal(t, []string{"old", "u1", "a1", model.TempIDPrefix + "user-1"}, idsOf(once))
	})
}

func TestSurfaceCache(t *testing.T) {
	cache, err := reconciler.NewSurfaceCache(2)
	require.NoError(t, err)

	cache.Add("make me a quiz about go", []string{"quiz"})
	cache.Add("write a guide", []string{"guide"})
	cache.Add("teach me a course", []string{"course"})

	_, ok := cache.Get("make me a quiz about go")
	assert.False(t, ok, "least recently used entry is evicted")
	got, ok := cache.Get("  write a guide ")
	assert.True(t, ok)
	assert.Equal(t, []string{"guide"}, got)
	assert.Equal(t, 2, cache.Len())
}

func idsOf(messages []model.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}
