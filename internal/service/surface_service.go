package service

import (
	"context"
	"strings"
)

// Surfaces a reply can be followed up with, in display order.
const (
	SurfaceCourse     = "course"
	SurfaceGuide      = "guide"
	SurfaceQuiz       = "quiz"
	SurfaceFlashcards = "flashcards"
)

var surfaceKeywords = []struct {
	surface  string
	keywords []string
}{
	{SurfaceCourse, []string{"course", "curriculum", "syllabus", "teach me", "lesson"}},
	{SurfaceGuide, []string{"guide", "how to", "how do i", "step by step", "step-by-step", "tutorial"}},
	{SurfaceQuiz, []string{"quiz", "test me", "test my", "practice questions"}},
	{SurfaceFlashcards, []string{"flashcard", "flash card", "memorize", "memorise"}},
}

// SurfaceService classifies a user message by keyword.
type SurfaceService struct{}

func NewSurfaceService() *SurfaceService {
	return &SurfaceService{}
}

// Detect returns the surfaces whose keywords appear in content. The result is
// never nil so it encodes as an empty list.
func (s *SurfaceService) Detect(_ context.Context, content string) []string {
	text := strings.ToLower(content)
	surfaces := []string{}
	for _, entry := range surfaceKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				surfaces = append(surfaces, entry.surface)
				break
			}
		}
	}
	return surfaces
}
