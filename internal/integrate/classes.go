package integrate

import (
	"strings"

	"umlreg/internal/errors"
	"umlreg/internal/uml"
)

// resolveMember links a member to the class its type name denotes.
func (p *pass) resolveMember(e *uml.Element) {
	owner := p.model.QualifiedName(e.Parent)
	switch {
	case e.TypeName == p.opts.SentinelType:
		p.messages.AddErr(e.XMIID, errors.Newf(errors.IgnoredReference,
			"member %s.%s has type %s; not resolved", owner, e.Name, e.TypeName).WithElement(e.XMIID))
		e.Mark(uml.InProgress)
		return
	case e.TypeName == "":
		p.messages.AddErr(e.XMIID, errors.Newf(errors.ClassNotFound,
			"member %s.%s declares no type", owner, e.Name).WithElement(e.XMIID))
		e.Mark(uml.InProgress)
		p.checkNaming(e)
		return
	}

	matches := p.classesNamed(e.TypeName)
	switch len(matches) {
	case 0:
		p.messages.AddErr(e.XMIID, errors.Newf(errors.ClassNotFound,
			"member %s.%s: no class named %s", owner, e.Name, e.TypeName).WithElement(e.XMIID))
		e.Mark(uml.InProgress)
	case 1:
		e.ResolvedClass = matches[0]
		e.Mark(uml.Active)
	default:
		names := make([]string, len(matches))
		for i, id := range matches {
			names[i] = p.model.QualifiedName(id)
		}
		p.messages.AddErr(e.XMIID, errors.Newf(errors.AmbiguousName,
			"member %s.%s: type %s matches %d classes (%s)",
			owner, e.Name, e.TypeName, len(matches), strings.Join(names, ", ")).WithElement(e.XMIID))
		e.Mark(uml.InProgress)
	}
	p.checkNaming(e)
}

// classesNamed matches a simple name exactly, or a dotted name against qualified names.
func (p *pass) classesNamed(typeName string) []uml.ElementID {
	if !strings.Contains(typeName, ".") {
		return p.byName[typeName]
	}
	simple := typeName[strings.LastIndex(typeName, ".")+1:]
	var out []uml.ElementID
	for _, id := range p.byName[simple] {
		if p.model.QualifiedName(id) == typeName {
			out = append(out, id)
		}
	}
	return out
}

// resolveClass evaluates the full member list and sets the class status.
func (p *pass) resolveClass(e *uml.Element) {
	members := p.model.AllMembers(e.ID)
	e.Mark(uml.Active)
	p.checkNaming(e)
	p.logger.Debug("Resolved class",
		"class", p.model.QualifiedName(e.ID),
		"members", len(members),
	)
}
