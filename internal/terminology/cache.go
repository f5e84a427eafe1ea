package terminology

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"umlreg/internal/errors"
)

// DefaultCacheSize bounds the number of cached lookups per kind.
const DefaultCacheSize = 4096

type conceptResult struct {
	concept *Concept
	err     error
}

// CachingService memoizes another Service. Positive results and CONCEPT_NOT_FOUND are
// cached; transport failures are not, so a later load can retry them.
type CachingService struct {
	next     Service
	concepts *lru.Cache[Key, conceptResult]
	children *lru.Cache[string, []Concept]
}

// NewCachingService wraps next with LRU caches of the given size.
func NewCachingService(next Service, size int) (*CachingService, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	concepts, err := lru.New[Key, conceptResult](size)
	if err != nil {
		return nil, err
	}
	children, err := lru.New[string, []Concept](size)
	if err != nil {
		return nil, err
	}
	return &CachingService{next: next, concepts: concepts, children: children}, nil
}

// FindConcept implements Service.
func (s *CachingService) FindConcept(ctx context.Context, key Key) (*Concept, error) {
	if r, ok := s.concepts.Get(key); ok {
		return r.concept, r.err
	}
	c, err := s.next.FindConcept(ctx, key)
	if err == nil || errors.Is(err, errors.ConceptNotFound) {
		s.concepts.Add(key, conceptResult{concept: c, err: err})
	}
	return c, err
}

// Children implements Service.
func (s *CachingService) Children(ctx context.Context, conceptID string) ([]Concept, error) {
	if c, ok := s.children.Get(conceptID); ok {
		return c, nil
	}
	c, err := s.next.Children(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	s.children.Add(conceptID, c)
	return c, nil
}

// Purge drops every cached entry.
func (s *CachingService) Purge() {
	s.concepts.Purge()
	s.children.Purge()
}
