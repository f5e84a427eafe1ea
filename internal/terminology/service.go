// Package terminology looks up external concepts for local value domains.
//
// A concept is addressed by namespace + property name + property value. Lookups are
// blocking calls; business failures are returned as *errors.Error so the integrator
// can turn them into diagnostics instead of aborting the load.
package terminology

import (
	"context"
	"fmt"

	"umlreg/internal/errors"
)

// Concept is one external terminology concept.
type Concept struct {
	ID            string `json:"id" yaml:"id"`
	Namespace     string `json:"namespace" yaml:"namespace"`
	PropertyName  string `json:"property" yaml:"property"`
	PropertyValue string `json:"value" yaml:"value"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	Definition    string `json:"definition,omitempty" yaml:"definition,omitempty"`
}

// Key identifies a concept lookup.
type Key struct {
	Namespace     string `json:"namespace" yaml:"namespace"`
	PropertyName  string `json:"property" yaml:"property"`
	PropertyValue string `json:"value" yaml:"value"`
}

// IsZero reports whether no concept key was declared.
func (k Key) IsZero() bool {
	return k.Namespace == "" && k.PropertyName == "" && k.PropertyValue == ""
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s=%s", k.Namespace, k.PropertyName, k.PropertyValue)
}

// Service is the terminology lookup collaborator.
type Service interface {
	// FindConcept returns the concept matching the key. Absence is reported as an
	// error with code CONCEPT_NOT_FOUND.
	FindConcept(ctx context.Context, key Key) (*Concept, error)
	// Children returns the child concepts (value set) of a concept, possibly empty.
	Children(ctx context.Context, conceptID string) ([]Concept, error)
}

// NotFound builds the CONCEPT_NOT_FOUND error for a key.
func NotFound(key Key) *errors.Error {
	return errors.Newf(errors.ConceptNotFound, "no concept for %s", key)
}

// Disabled is a Service that never finds anything. It is used when no terminology
// backend is configured.
type Disabled struct{}

// FindConcept implements Service.
func (Disabled) FindConcept(_ context.Context, key Key) (*Concept, error) {
	return nil, errors.New(errors.TerminologyUnavailable, fmt.Sprintf("terminology lookups are disabled (%s)", key), nil)
}

// Children implements Service.
func (Disabled) Children(_ context.Context, conceptID string) ([]Concept, error) {
	return nil, errors.New(errors.TerminologyUnavailable, fmt.Sprintf("terminology lookups are disabled (concept %s)", conceptID), nil)
}
