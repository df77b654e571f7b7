package cli

import (
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/reconciler"
)

// renderer prints streamed replies as they grow and reports notices on the
// error stream.
type renderer struct {
	out, errOut io.Writer

	mu      sync.Mutex
	printed map[string]int
	last    string
}

func newRenderer(out, errOut io.Writer) *renderer {
	return &renderer{out: out, errOut: errOut, printed: make(map[string]int)}
}

func (r *renderer) OnListChanged([]model.Message) {}

func (r *renderer) OnStreamProgress(messageID, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.printed[messageID]
	if len(content) <= n {
		return
	}
	writef(r.out, "%s", content[n:])
	r.printed[messageID] = len(content)
	r.last = content
}

// endStream terminates the streamed line, if any.
func (r *renderer) endStream() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != "" && !strings.HasSuffix(r.last, "\n") {
		writef(r.out, "\n")
	}
	r.last = ""
}

func (r *renderer) Notify(n reconciler.Notice) {
	if n.File != "" {
		writef(r.errOut, "! %s: %s\n", n.File, n.Message)
		return
	}
	writef(r.errOut, "! %s\n", n.Message)
}

func printMessages(w io.Writer, messages []model.Message) {
	for _, m := range messages {
		printMessage(w, m)
	}
}

func printMessage(w io.Writer, m model.Message) {
	writef(w, "[%s] %s  v%d  %s\n", m.Role, m.ID, m.VersionNumber, humanize.Time(m.CreatedAt))
	for _, line := range strings.Split(strings.TrimRight(m.Content, "\n"), "\n") {
		writef(w, "    %s\n", line)
	}
	for _, a := range m.Attachments {
		writef(w, "    attachment: %s (%s)\n", a.Name, humanize.Bytes(uint64(a.Size)))
	}
	if meta := m.ReasoningMetadata; meta != nil {
		for _, c := range meta.ContextCards {
			writef(w, "    context: %s\n", c.Title)
		}
		if len(meta.DetectedSurfaces) > 0 {
			writef(w, "    follow up: %s\n", strings.Join(meta.DetectedSurfaces, ", "))
		}
	}
}
