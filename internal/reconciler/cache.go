package reconciler

import (
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultSurfaceCacheSize bounds the number of remembered detections.
	DefaultSurfaceCacheSize = 256
	surfaceKeyRunes         = 100
)

// SurfaceCache remembers detected follow-up surfaces by message content
// prefix. It evicts the least recently used entry once full.
type SurfaceCache struct {
	entries *lru.Cache[string, []string]
}

// NewSurfaceCache creates a cache holding at most size entries.
func NewSurfaceCache(size int) (*SurfaceCache, error) {
	if size <= 0 {
		size = DefaultSurfaceCacheSize
	}
	c, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	return &SurfaceCache{entries: c}, nil
}

// Get returns the surfaces detected for content, if known.
func (s *SurfaceCache) Get(content string) ([]string, bool) {
	v, ok := s.entries.Get(surfaceKey(content))
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Add records the surfaces detected for content.
func (s *SurfaceCache) Add(content string, surfaces []string) {
	s.entries.Add(surfaceKey(content), slices.Clone(surfaces))
}

// Len returns the number of cached entries.
func (s *SurfaceCache) Len() int { return s.entries.Len() }

func surfaceKey(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > surfaceKeyRunes {
		runes = runes[:surfaceKeyRunes]
	}
	return string(runes)
}
