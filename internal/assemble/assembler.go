// Package assemble builds a uml.Model from a projected document in three phases:
// packages, then classes with their members, then relationship facts.
package assemble

import (
	"fmt"
	"log/slog"
	"time"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/projection"
	"umlreg/internal/slogutil"
	"umlreg/internal/uml"
	"umlreg/internal/xmldoc"
)

// DefaultModelXMIID is used when the projection carries no model ID.
const DefaultModelXMIID = "umlreg.model"

// Assembler turns projection output into a model tree.
type Assembler struct {
	logger *slog.Logger
}

// New creates an Assembler.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Assembler{logger: logger}
}

type pass struct {
	model    *uml.Model
	finder   *uml.Finder
	builder  *Builder
	messages *diag.Messages
}

// Assemble always returns a best-effort model. Every node that cannot be built
// becomes one message and assembly continues with the next node.
func (a *Assembler) Assemble(doc *xmldoc.Node) (*uml.Model, *diag.Messages) {
	start := time.Now()

	modelID := doc.Attr(projection.AttrModelID)
	if modelID == "" {
		modelID = DefaultModelXMIID
	}
	p := &pass{
		model:    uml.NewModel(doc.Attr(projection.AttrModel), modelID),
		messages: diag.New(),
	}
	p.finder = uml.NewFinder(p.model)
	p.builder = NewBuilder(p.model, p.messages.AddErr)

	var packages, classes, relationships []*xmldoc.Node
	for _, node := range doc.Elements(projection.ElementTag) {
		switch typ := node.Attr(projection.AttrType); {
		case typ == projection.TypePackage:
			packages = append(packages, node)
		case typ == projection.TypeClass || typ == projection.TypeLocalValueDomain:
			classes = append(classes, node)
		case typ == projection.TypeMember:
			p.messages.AddErr(node.Attr(projection.AttrXMIID), errors.Newf(errors.MalformedNode,
				"member %q at line %d is not inside a class", node.Attr(projection.AttrName), node.Line))
		case isRelationship(node):
			relationships = append(relationships, node)
		default:
			p.messages.AddErr(node.Attr(projection.AttrXMIID), errors.Newf(errors.UnknownElementType,
				"unknown element type %q at line %d", typ, node.Line))
		}
	}
	p.warnDuplicates(doc)

	for _, node := range packages {
		p.safely(node, p.addPackage)
	}

	p.model.DefaultPackage()
	for _, node := range classes {
		p.safely(node, p.addClass)
	}

	for _, node := range relationships {
		p.safely(node, p.addRelationship)
	}

	a.logger.Debug("Assembled model",
		"model", p.model.Name(),
		"packages", len(packages),
		"classes", len(classes),
		"relationships", len(relationships),
		"messages", p.messages.Len(),
		"finderVisits", p.finder.Visits(),
		"duration", time.Since(start),
	)
	return p.model, p.messages
}

func isRelationship(node *xmldoc.Node) bool {
	if node.Attr(projection.AttrType) == projection.TypeGeneralization {
		return true
	}
	_, hasSource := node.LookupAttr(projection.AttrSource)
	_, hasTarget := node.LookupAttr(projection.AttrTarget)
	return hasSource && hasTarget
}

// safely runs fn for one node, converting a failure or panic into a message.
func (p *pass) safely(node *xmldoc.Node, fn func(*xmldoc.Node) error) {
	xmiID := node.Attr(projection.AttrXMIID)
	defer func() {
		if r := recover(); r != nil {
			p.messages.AddErr(xmiID, errors.Newf(errors.InternalError,
				"assembling %s %s failed: %v", node.Attr(projection.AttrType), xmiID, r))
		}
	}()
	if err := fn(node); err != nil {
		p.messages.AddErr(xmiID, err)
	}
}

// declaredPackage resolves a parent reference to a package, if there is one.
func (p *pass) declaredPackage(node *xmldoc.Node) (uml.ElementID, bool) {
	ref := node.Attr(projection.AttrParent)
	if ref == "" {
		return uml.NoElement, false
	}
	id, ok := p.finder.Find(uml.RootID, ref)
	if !ok || p.model.Get(id).Kind != uml.KindPackage {
		return uml.NoElement, false
	}
	return id, true
}

func (p *pass) addPackage(node *xmldoc.Node) error {
	parent, ok := p.declaredPackage(node)
	if !ok {
		parent = uml.RootID
	}
	_, err := p.builder.Build(node, parent)
	return err
}

func (p *pass) addClass(node *xmldoc.Node) error {
	parent, ok := p.declaredPackage(node)
	if !ok {
		parent = p.model.DefaultPackage()
	}
	_, err := p.builder.Build(node, parent)
	return err
}

func (p *pass) addRelationship(node *xmldoc.Node) error {
	r := &uml.Relationship{
		XMIID:    node.Attr(projection.AttrXMIID),
		Type:     uml.RelationshipType(node.Attr(projection.AttrType)),
		SourceID: node.Attr(projection.AttrSource),
		TargetID: node.Attr(projection.AttrTarget),
	}
	if r.XMIID == "" {
		return errors.Newf(errors.MalformedNode, "%s at line %d has no XMI ID", r.Type, node.Line)
	}
	if r.SourceID == "" || r.TargetID == "" {
		return errors.Newf(errors.MalformedNode,
			"%s %s must name both a source and a target", r.Type, r.XMIID).WithElement(r.XMIID)
	}
	p.model.AddRelationship(r)
	return nil
}

// warnDuplicates records one warning per XMI ID used by more than one node.
// Resolution keeps the first element found in pre-order.
func (p *pass) warnDuplicates(doc *xmldoc.Node) {
	counts := make(map[string]int)
	var order []string
	for _, node := range doc.Descendants(projection.ElementTag) {
		id := node.Attr(projection.AttrXMIID)
		if id == "" {
			continue
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	for _, id := range order {
		if n := counts[id]; n > 1 {
			p.messages.AddErr(id, errors.New(errors.DuplicateID,
				fmt.Sprintf("XMI ID %s is used by %d elements; the first one found wins", id, n), nil))
		}
	}
}
