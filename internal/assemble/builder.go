package assemble

import (
	"fmt"

	"umlreg/internal/errors"
	"umlreg/internal/projection"
	"umlreg/internal/terminology"
	"umlreg/internal/uml"
	"umlreg/internal/xmldoc"
)

// Builder creates model elements from projected nodes.
type Builder struct {
	model *uml.Model
	// report receives failures of nested member nodes; the enclosing class is kept.
	report func(xmiID string, err error)
}

// NewBuilder creates a builder over m. report may be nil.
func NewBuilder(m *uml.Model, report func(xmiID string, err error)) *Builder {
	if report == nil {
		report = func(string, error) {}
	}
	return &Builder{model: m, report: report}
}

// Build creates the element described by node, attaches it under parent and, for
// class-shaped nodes, builds its members. Nothing is attached when an error is returned.
func (b *Builder) Build(node *xmldoc.Node, parent uml.ElementID) (uml.ElementID, error) {
	typ := node.Attr(projection.AttrType)
	kind, ok := uml.ParseKind(typ)
	if !ok || kind == uml.KindModel {
		return uml.NoElement, errors.Newf(errors.UnknownElementType,
			"unknown element type %q at line %d", typ, node.Line)
	}
	xmiID := node.Attr(projection.AttrXMIID)
	if xmiID == "" {
		return uml.NoElement, errors.Newf(errors.MalformedNode,
			"%s %q at line %d has no XMI ID", typ, node.Attr(projection.AttrName), node.Line)
	}
	if p := b.model.Get(parent); p != nil && kind == uml.KindMember && !p.Kind.IsClass() {
		return uml.NoElement, errors.Newf(errors.MalformedNode,
			"member %s is not inside a class", xmiID).WithElement(xmiID)
	}

	e := b.model.NewElement(kind, xmiID, node.Attr(projection.AttrName))
	switch kind {
	case uml.KindClass, uml.KindLocalValueDomain:
		if node.Attr(projection.AttrClassType) == projection.ClassTypePrimitive {
			e.ClassType = uml.Primitive
		}
		e.SuperClassName = node.Attr(projection.AttrSuperClass)
		e.Stereotype = node.Attr(projection.AttrStereotype)
		if kind == uml.KindLocalValueDomain {
			e.Concept = terminology.Key{
				Namespace:     node.Attr(projection.AttrNamespace),
				PropertyName:  node.Attr(projection.AttrProperty),
				PropertyValue: node.Attr(projection.AttrValue),
			}
		}
	case uml.KindMember:
		e.TypeName = node.Attr(projection.AttrMemberType)
	case uml.KindPackage, uml.KindModel:
	}

	if err := b.model.Attach(e.ID, parent); err != nil {
		return uml.NoElement, errors.New(errors.MalformedNode,
			fmt.Sprintf("cannot attach %s %s", typ, xmiID), err).WithElement(xmiID)
	}

	if kind.IsClass() {
		for _, child := range node.Elements(projection.ElementTag) {
			if child.Attr(projection.AttrType) != projection.TypeMember {
				b.report(child.Attr(projection.AttrXMIID), errors.Newf(errors.MalformedNode,
					"class %s contains a %q element; only members may be nested",
					xmiID, child.Attr(projection.AttrType)))
				continue
			}
			if _, err := b.Build(child, e.ID); err != nil {
				b.report(child.Attr(projection.AttrXMIID), err)
			}
		}
	}
	return e.ID, nil
}
