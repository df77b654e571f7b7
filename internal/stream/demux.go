// Package stream separates a live assistant reply into generated text and the
// control events interleaved with it.
//
// The wire format is newline-delimited UTF-8. A line that is a JSON object
// with a recognized "type" (status, search_results, context_cards) is a
// control event; every other line, malformed JSON included, is content.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

// Control event discriminators.
const (
	TypeStatus        = "status"
	TypeSearchResults = "search_results"
	TypeContextCards  = "context_cards"

	// StatusComplete is the terminal status synthesized at end of stream.
	StatusComplete = "complete"
)

// maxHeldBytes bounds how much of an unterminated "{"-prefixed segment is
// carried over to the next chunk before it is given up on and treated as content.
const maxHeldBytes = 64 * 1024

// ChunkSource is a pull-based producer of stream chunks. Next returns io.EOF
// once the stream has ended normally.
type ChunkSource interface {
	Next() ([]byte, error)
}

// ReaderSource adapts an io.Reader (typically an HTTP response body) to a
// ChunkSource. Each successful Read becomes one chunk.
type ReaderSource struct {
	r       io.Reader
	buf     []byte
	pending error
}

// NewReaderSource returns a ChunkSource reading at most bufSize bytes per chunk.
func NewReaderSource(r io.Reader, bufSize int) *ReaderSource {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &ReaderSource{r: r, buf: make([]byte, bufSize)}
}

// Next implements ChunkSource. Data returned together with an error by the
// underlying reader is delivered first; the error follows on the next call.
func (s *ReaderSource) Next() ([]byte, error) {
	if s.pending != nil {
		return nil, s.pending
	}
	for {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			s.pending = err
			return bytes.Clone(s.buf[:n]), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Handlers receive the demultiplexed stream. Nil handlers are skipped.
type Handlers struct {
	// OnContent receives the combined content delta of one chunk.
	OnContent       func(delta string)
	OnStatus        func(model.StatusEvent)
	OnSearchResults func(model.SearchResults)
	OnContextCards  func([]model.ContextCard)
}

type envelope struct {
	Type string `json:"type"`
}

type contextCardsLine struct {
	Cards []model.ContextCard `json:"cards"`
}

// Demultiplex consumes src until it ends and returns the accumulated content.
//
// Lines are classified strictly in arrival order. Control events are
// dispatched as soon as they are classified; content is appended to the
// running buffer and delivered to OnContent once per chunk. At end of stream
// a terminal "complete" status is emitted.
//
// On a read error (or context cancellation) the content accumulated so far is
// returned together with an error wrapping ErrTransport.
func Demultiplex(ctx context.Context, src ChunkSource, h Handlers) (string, error) {
	d := &demuxer{h: h}

	for {
		if err := ctx.Err(); err != nil {
			d.flushHeld()
			return d.content.String(), fmt.Errorf("%w: %w", app_errors.ErrTransport, err)
		}

		chunk, err := src.Next()
		if len(chunk) > 0 {
			d.feed(string(chunk))
		}
		if err == nil {
			continue
		}

		d.flushHeld()
		if errors.Is(err, io.EOF) {
			d.status(model.StatusEvent{Status: StatusComplete, Timestamp: time.Now().UnixMilli()})
			return d.content.String(), nil
		}
		return d.content.String(), fmt.Errorf("%w: stream read failed: %w", app_errors.ErrTransport, err)
	}
}

type demuxer struct {
	h       Handlers
	content strings.Builder
	held    string
}

// feed classifies every line of one chunk. The chunk's final segment has no
// newline yet; when it looks like the start of a control line it is held
// back and prefixed to the next chunk.
func (d *demuxer) feed(chunk string) {
	data := d.held + chunk
	d.held = ""

	var delta strings.Builder
	segments := strings.Split(data, "\n")
	last := len(segments) - 1
	for i, seg := range segments {
		if i == last {
			if strings.HasPrefix(strings.TrimSpace(seg), "{") && len(seg) < maxHeldBytes {
				d.held = seg
				break
			}
			d.classify(seg, false, &delta)
			break
		}
		d.classify(seg, true, &delta)
	}

	d.emit(&delta)
}

// flushHeld classifies a held segment once no more data will arrive.
func (d *demuxer) flushHeld() {
	if d.held == "" {
		return
	}
	var delta strings.Builder
	d.classify(d.held, false, &delta)
	d.held = ""
	d.emit(&delta)
}

func (d *demuxer) emit(delta *strings.Builder) {
	if delta.Len() == 0 {
		return
	}
	d.content.WriteString(delta.String())
	if d.h.OnContent != nil {
		d.h.OnContent(delta.String())
	}
}

func (d *demuxer) classify(line string, newline bool, delta *strings.Builder) {
	if d.control(line) {
		return
	}
	delta.WriteString(line)
	if newline {
		delta.WriteByte('\n')
	}
}

// control dispatches line if it is a recognized control event.
func (d *demuxer) control(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	raw := []byte(trimmed)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}

	switch env.Type {
	case TypeStatus:
		var ev model.StatusEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Debug("Malformed status line treated as content", "error", err)
			return false
		}
		d.status(ev)
	case TypeSearchResults:
		var sr model.SearchResults
		if err := json.Unmarshal(raw, &sr); err != nil {
			slog.Debug("Malformed search_results line treated as content", "error", err)
			return false
		}
		if d.h.OnSearchResults != nil {
			d.h.OnSearchResults(sr)
		}
	case TypeContextCards:
		var cc contextCardsLine
		if err := json.Unmarshal(raw, &cc); err != nil {
			slog.Debug("Malformed context_cards line treated as content", "error", err)
			return false
		}
		if d.h.OnContextCards != nil {
			d.h.OnContextCards(cc.Cards)
		}
	default:
		return false
	}
	return true
}

func (d *demuxer) status(ev model.StatusEvent) {
	if d.h.OnStatus != nil {
		d.h.OnStatus(ev)
	}
}
