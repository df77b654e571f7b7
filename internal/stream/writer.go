package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"flow-ai/chatsync/internal/model"
)

// Writer produces the hybrid wire format read by Demultiplex. Content is
// written verbatim; control events are written as single JSON lines and
// always start on a fresh line.
type Writer struct {
	w      io.Writer
	flush  func()
	inLine bool
}

// NewWriter wraps w. flush, when non-nil, is called after every write so
// events reach the reader as they happen.
func NewWriter(w io.Writer, flush func()) *Writer {
	return &Writer{w: w, flush: flush}
}

func (sw *Writer) Status(status, message string) error {
	return sw.control(struct {
		Type string `json:"type"`
		model.StatusEvent
	}{TypeStatus, model.StatusEvent{Status: status, Message: message, Timestamp: time.Now().UnixMilli()}})
}

func (sw *Writer) SearchResults(results model.SearchResults) error {
	return sw.control(struct {
		Type string `json:"type"`
		model.SearchResults
	}{TypeSearchResults, results})
}

func (sw *Writer) ContextCards(cards []model.ContextCard) error {
	return sw.control(struct {
		Type  string              `json:"type"`
		Cards []model.ContextCard `json:"cards"`
	}{TypeContextCards, cards})
}

// Content writes generated text as is.
func (sw *Writer) Content(text string) error {
	if text == "" {
		return nil
	}
	if _, err := io.WriteString(sw.w, text); err != nil {
		return err
	}
	sw.inLine = text[len(text)-1] != '\n'
	sw.doFlush()
	return nil
}

func (sw *Writer) control(event any) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not encode control event: %w", err)
	}
	if sw.inLine {
		line = append([]byte{'\n'}, line...)
	}
	line = append(line, '\n')
	if _, err := sw.w.Write(line); err != nil {
		return err
	}
	sw.inLine = false
	sw.doFlush()
	return nil
}

func (sw *Writer) doFlush() {
	if sw.flush != nil {
		sw.flush()
	}
}
