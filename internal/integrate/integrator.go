// Package integrate resolves the cross references of an assembled model.
//
// A single post-order walk visits children before their parent. Each node is
// resolved in isolation: a failure becomes a message and a status on that node,
// and the walk carries on. Relationships are resolved after the walk.
package integrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/slogutil"
	"umlreg/internal/terminology"
	"umlreg/internal/uml"
)

// DefaultSentinelType is the member type name that opts out of resolution.
const DefaultSentinelType = "NONE"

// AllNamespaces activates terminology lookups for every namespace.
const AllNamespaces = "*"

// Options configures an Integrator.
type Options struct {
	// NamingChecks enables the package, class and member naming conventions.
	NamingChecks bool
	// SentinelType is the member type name that skips resolution. Empty means NONE.
	SentinelType string
	// ActiveNamespaces lists the concept namespaces that are looked up.
	ActiveNamespaces []string
}

// Integrator resolves references and statuses of a model.
type Integrator struct {
	opts   Options
	active map[string]bool
	terms  terminology.Service
	logger *slog.Logger
}

// New creates an Integrator. A nil terms disables lookups.
func New(terms terminology.Service, opts Options, logger *slog.Logger) *Integrator {
	if opts.SentinelType == "" {
		opts.SentinelType = DefaultSentinelType
	}
	if terms == nil {
		terms = terminology.Disabled{}
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	active := make(map[string]bool, len(opts.ActiveNamespaces))
	for _, ns := range opts.ActiveNamespaces {
		active[ns] = true
	}
	return &Integrator{opts: opts, active: active, terms: terms, logger: logger}
}

// NamespaceActive reports whether concepts in ns are looked up.
func (in *Integrator) NamespaceActive(ns string) bool {
	if ns == "" {
		return false
	}
	return in.active[AllNamespaces] || in.active[ns]
}

type pass struct {
	*Integrator
	ctx      context.Context
	model    *uml.Model
	finder   *uml.Finder
	byName   map[string][]uml.ElementID
	messages *diag.Messages
	lookups  int
}

// Integrate resolves every attached node and relationship of m and returns the
// messages produced. Nodes already processed by an earlier call are skipped.
func (in *Integrator) Integrate(ctx context.Context, m *uml.Model) *diag.Messages {
	start := time.Now()
	p := &pass{
		Integrator: in,
		ctx:        ctx,
		model:      m,
		finder:     uml.NewFinder(m),
		byName:     make(map[string][]uml.ElementID),
		messages:   diag.New(),
	}
	for _, id := range m.Classes() {
		name := m.Get(id).Name
		p.byName[name] = append(p.byName[name], id)
	}

	m.PostOrder(uml.RootID, func(e *uml.Element) {
		if e.ChildrenProcessed() {
			return
		}
		p.safely(e.XMIID, fmt.Sprintf("%s %s", e.Kind, e.XMIID), func() { e.Mark(uml.Error) }, func() error {
			return p.visit(e)
		})
		e.SetChildrenProcessed()
	})

	for _, r := range m.Relationships() {
		if r.Status != uml.Unset {
			continue
		}
		p.safely(r.XMIID, fmt.Sprintf("%s %s", r.Type, r.XMIID), func() { r.Mark(uml.Error) }, func() error {
			return p.resolveRelationship(r)
		})
	}

	s := p.messages.Summary()
	in.logger.Info("Integrated model",
		"model", m.Name(),
		"errors", s.Errors,
		"warnings", s.Warnings,
		"infos", s.Infos,
		"lookups", p.lookups,
		"duration", time.Since(start),
	)
	return p.messages
}

func (p *pass) visit(e *uml.Element) error {
	switch e.Kind {
	case uml.KindModel:
		e.Mark(uml.Active)
	case uml.KindPackage:
		e.Mark(uml.Active)
		p.checkNaming(e)
	case uml.KindMember:
		p.resolveMember(e)
	case uml.KindClass:
		p.resolveClass(e)
	case uml.KindLocalValueDomain:
		p.resolveClass(e)
		return p.resolveDomain(e)
	default:
		return fmt.Errorf("no resolution for element kind %s", e.Kind)
	}
	return nil
}

// safely runs fn for one node. Business errors become messages as they are;
// unexpected errors and panics become ERROR messages and call fail.
func (p *pass) safely(xmiID, what string, fail func(), fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			var text string
			if err, ok := r.(error); ok && err.Error() != "" {
				text = err.Error()
			} else if s, ok := r.(string); ok && s != "" {
				text = s
			} else {
				text = fmt.Sprintf("unexpected %T while integrating %s", r, what)
			}
			p.messages.AddErr(xmiID, errors.New(errors.InternalError, text, nil).WithElement(xmiID))
			fail()
		}
	}()

	err := fn()
	if err == nil {
		return
	}
	if errors.IsBusiness(err) {
		p.messages.AddErr(xmiID, err)
		return
	}
	text := err.Error()
	if text == "" {
		text = fmt.Sprintf("unexpected %T while integrating %s", err, what)
	}
	p.messages.AddErr(xmiID, errors.New(errors.InternalError, text, nil).WithElement(xmiID))
	fail()
}

// checkNaming records an INFO and downgrades the status when the name breaks convention.
func (p *pass) checkNaming(e *uml.Element) {
	if !p.opts.NamingChecks {
		return
	}
	if v := uml.NamingViolation(e); v != "" {
		p.messages.AddErr(e.XMIID, errors.Newf(errors.NamingConvention,
			"%s %q: %s", e.Kind, p.model.QualifiedName(e.ID), v).WithElement(e.XMIID))
		e.Mark(uml.ActiveWithInfo)
	}
}
