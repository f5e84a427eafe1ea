package integrate

import (
	"fmt"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/uml"
)

// resolveDomain attaches the terminology concept and value set of a local value
// domain. Domains outside the active namespaces are never looked up.
func (p *pass) resolveDomain(e *uml.Element) error {
	key := e.Concept
	if !p.NamespaceActive(key.Namespace) {
		p.logger.Debug("Skipping concept lookup",
			"domain", e.XMIID,
			"namespace", key.Namespace,
		)
		return nil
	}

	p.lookups++
	concept, err := p.terms.FindConcept(p.ctx, key)
	if err != nil {
		return p.lookupFailed(e, "concept lookup", err)
	}
	children, err := p.terms.Children(p.ctx, concept.ID)
	if err != nil {
		return p.lookupFailed(e, "value set lookup", err)
	}

	e.ResolvedConcept = concept
	e.ValueSet = children
	if len(children) == 0 {
		p.messages.AddErr(e.XMIID, errors.Newf(errors.EmptyValueSet,
			"local value domain %s: concept %s has no values", p.model.QualifiedName(e.ID), concept.ID).
			WithElement(e.XMIID))
	}
	return nil
}

// lookupFailed re-wraps a business error with the lookup parameters and reports it
// as an ERROR. Other errors are returned as unexpected failures.
func (p *pass) lookupFailed(e *uml.Element, what string, err error) error {
	be, ok := errors.As(err)
	if !ok {
		return err
	}
	key := e.Concept
	p.messages.AddErr(e.XMIID, errors.New(be.Code,
		fmt.Sprintf("local value domain %s: %s failed (namespace=%s, property=%s, value=%s)",
			p.model.QualifiedName(e.ID), what, key.Namespace, key.PropertyName, key.PropertyValue),
		err).WithSeverity(diag.Error).WithElement(e.XMIID))
	e.Mark(uml.InProgress)
	return nil
}
