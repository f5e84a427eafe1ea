package integrate

import (
	"strings"

	"umlreg/internal/errors"
	"umlreg/internal/uml"
)

func (p *pass) resolveRelationship(r *uml.Relationship) error {
	switch r.Type {
	case uml.Generalization:
		return p.resolveGeneralization(r)
	default:
		r.Mark(uml.Error)
		return errors.Newf(errors.UnknownRelationshipType,
			"relationship %s has unsupported type %q", r.XMIID, r.Type).WithElement(r.XMIID)
	}
}

// resolveGeneralization sets the source class's super class to the target class.
func (p *pass) resolveGeneralization(r *uml.Relationship) error {
	if r.SourceID == r.TargetID {
		r.Mark(uml.Error)
		return errors.Newf(errors.SelfRelationship,
			"generalization %s: %s cannot generalize itself", r.XMIID, r.SourceID).WithElement(r.XMIID)
	}

	src, srcOK := p.finder.Find(uml.RootID, r.SourceID)
	tgt, tgtOK := p.finder.Find(uml.RootID, r.TargetID)
	if !srcOK || !tgtOK {
		var missing []string
		if !srcOK {
			missing = append(missing, "source "+r.SourceID)
		}
		if !tgtOK {
			missing = append(missing, "target "+r.TargetID)
		}
		r.Mark(uml.InProgress)
		return errors.Newf(errors.EndpointNotFound,
			"generalization %s: missing %s", r.XMIID, strings.Join(missing, " and ")).WithElement(r.XMIID)
	}

	source, target := p.model.Get(src), p.model.Get(tgt)
	for _, end := range []*uml.Element{source, target} {
		if !end.Kind.IsClass() {
			r.Mark(uml.InProgress)
			return errors.Newf(errors.EndpointNotClass,
				"generalization %s: %s is a %s, not a class", r.XMIID, end.XMIID, end.Kind).WithElement(r.XMIID)
		}
	}

	if source.SuperClass != uml.NoElement && source.SuperClass != tgt {
		r.Mark(uml.InProgress)
		return errors.Newf(errors.IgnoredReference,
			"generalization %s: %s already extends %s; %s ignored",
			r.XMIID, source.Name, p.model.Get(source.SuperClass).Name, target.Name).WithElement(r.XMIID)
	}

	source.SuperClass = tgt
	if source.SuperClassName == "" {
		source.SuperClassName = target.Name
	}
	r.Mark(uml.Active)
	return nil
}
