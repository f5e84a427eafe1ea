package terminology

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"umlreg/internal/errors"
)

// VocabularyFile is the TOML layout of a local vocabulary:
//
//	[[concept]]
//	id = "C17357"
//	namespace = "NCIt"
//	property = "code"
//	value = "C17357"
//	name = "Gender"
//	children = ["C20197", "C16576"]
type VocabularyFile struct {
	Concepts []vocabularyEntry `toml:"concept"`
}

type vocabularyEntry struct {
	ID            string   `toml:"id"`
	Namespace     string   `toml:"namespace"`
	PropertyName  string   `toml:"property"`
	PropertyValue string   `toml:"value"`
	Name          string   `toml:"name"`
	Definition    string   `toml:"definition"`
	Children      []string `toml:"children"`
}

func (e vocabularyEntry) concept() Concept {
	return Concept{
		ID:            e.ID,
		Namespace:     e.Namespace,
		PropertyName:  e.PropertyName,
		PropertyValue: e.PropertyValue,
		Name:          e.Name,
		Definition:    e.Definition,
	}
}

// FileService serves concepts from an in-memory vocabulary loaded from TOML.
type FileService struct {
	concepts map[string]Concept
	byKey    map[Key]string
	children map[string][]string
}

// LoadVocabulary reads a vocabulary file.
func LoadVocabulary(path string) (*FileService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", path, err)
	}
	return ParseVocabulary(string(data))
}

// ParseVocabulary builds a FileService from TOML text.
func ParseVocabulary(data string) (*FileService, error) {
	var vf VocabularyFile
	if _, err := toml.Decode(data, &vf); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}

	s := &FileService{
		concepts: make(map[string]Concept, len(vf.Concepts)),
		byKey:    make(map[Key]string, len(vf.Concepts)),
		children: make(map[string][]string),
	}
	for i, entry := range vf.Concepts {
		if entry.ID == "" {
			return nil, fmt.Errorf("vocabulary concept #%d has no id", i+1)
		}
		if _, dup := s.concepts[entry.ID]; dup {
			return nil, fmt.Errorf("vocabulary concept %q declared twice", entry.ID)
		}
		s.concepts[entry.ID] = entry.concept()
		key := Key{Namespace: entry.Namespace, PropertyName: entry.PropertyName, PropertyValue: entry.PropertyValue}
		if !key.IsZero() {
			s.byKey[key] = entry.ID
		}
		if len(entry.Children) > 0 {
			s.children[entry.ID] = entry.Children
		}
	}
	return s, nil
}

// Len returns the number of concepts in the vocabulary.
func (s *FileService) Len() int {
	return len(s.concepts)
}

// FindConcept implements Service.
func (s *FileService) FindConcept(ctx context.Context, key Key) (*Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.TerminologyUnavailable, "lookup cancelled", err)
	}
	id, ok := s.byKey[key]
	if !ok {
		return nil, NotFound(key)
	}
	c := s.concepts[id]
	return &c, nil
}

// Children implements Service. Child IDs missing from the vocabulary are skipped.
func (s *FileService) Children(ctx context.Context, conceptID string) ([]Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.TerminologyUnavailable, "lookup cancelled", err)
	}
	if _, ok := s.concepts[conceptID]; !ok {
		return nil, errors.Newf(errors.ConceptNotFound, "no concept with id %s", conceptID)
	}
	ids := s.children[conceptID]
	out := make([]Concept, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.concepts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}
