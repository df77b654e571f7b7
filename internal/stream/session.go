package stream

import (
	"slices"
	"strings"
	"sync"

	"flow-ai/chatsync/internal/model"
)

// Session accumulates the state of one assistant reply while it streams.
// Content and status pills are append-only; search results and context
// cards keep only the latest snapshot.
//
// A Session is written by the demultiplexer goroutine and may be read
// concurrently by observers.
type Session struct {
	MessageID string

	mu            sync.Mutex
	content       strings.Builder
	statusPills   []model.StatusEvent
	searchResults *model.SearchResults
	contextCards  []model.ContextCard
}

// NewSession starts a session for the given assistant message.
func NewSession(messageID string) *Session {
	return &Session{MessageID: messageID}
}

// Handlers returns the handler set that feeds this session. onProgress, if
// not nil, is called after each content delta with the full content so far.
func (s *Session) Handlers(onProgress func(messageID, content string)) Handlers {
	return Handlers{
		OnContent: func(delta string) {
			s.mu.Lock()
			s.content.WriteString(delta)
			content := s.content.String()
			s.mu.Unlock()
			if onProgress != nil {
				onProgress(s.MessageID, content)
			}
		},
		OnStatus: func(ev model.StatusEvent) {
			s.mu.Lock()
			s.statusPills = append(s.statusPills, ev)
			s.mu.Unlock()
		},
		OnSearchResults: func(sr model.SearchResults) {
			s.mu.Lock()
			s.searchResults = &sr
			s.mu.Unlock()
		},
		OnContextCards: func(cards []model.ContextCard) {
			s.mu.Lock()
			s.contextCards = slices.Clone(cards)
			s.mu.Unlock()
		},
	}
}

// Content returns the text accumulated so far.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String()
}

// StatusPills returns a copy of the status events received so far.
func (s *Session) StatusPills() []model.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.statusPills)
}

// Fold converts the captured control-plane events into the metadata that is
// persisted on the assistant message. It returns nil when nothing was captured.
func (s *Session) Fold() *model.ReasoningMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.statusPills) == 0 && s.searchResults == nil && len(s.contextCards) == 0 {
		return nil
	}
	meta := &model.ReasoningMetadata{
		StatusPills:  slices.Clone(s.statusPills),
		ContextCards: slices.Clone(s.contextCards),
	}
	if s.searchResults != nil {
		sr := *s.searchResults
		meta.SearchResults = &sr
	}
	return meta
}
