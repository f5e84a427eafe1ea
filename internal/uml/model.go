// Package uml holds the in-memory UML model produced by a load.
//
// A Model is an arena of elements addressed by ElementID handles. Handle 0 is
// always the model root. Parent links and child lists are handles, so the tree
// can be walked in both directions without pointer cycles.
package uml

import (
	"fmt"
	"strings"

	"umlreg/internal/terminology"
)

// ElementID is a handle into a Model's element arena.
type ElementID int

// NoElement is the unset handle.
const NoElement ElementID = -1

// RootID is the handle of the model root.
const RootID ElementID = 0

// DefaultPackageName is the name of the package holding classes without a resolvable parent.
const DefaultPackageName = "default"

// DefaultPackageXMIID is the synthesized XMI ID of the default package.
const DefaultPackageXMIID = "umlreg.default"

// Kind discriminates the element variants.
type Kind int

const (
	KindModel Kind = iota
	KindPackage
	KindClass
	KindLocalValueDomain
	KindMember
)

var kindNames = [...]string{
	KindModel:            "Model",
	KindPackage:          "Package",
	KindClass:            "Class",
	KindLocalValueDomain: "LocalValueDomain",
	KindMember:           "Member",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a discriminator value to a Kind.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// IsClass reports whether elements of this kind are class-shaped.
func (k Kind) IsClass() bool {
	return k == KindClass || k == KindLocalValueDomain
}

// Status is the diagnostic state of a node. Higher values are worse.
type Status int

const (
	Unset Status = iota
	Active
	ActiveWithInfo
	InProgress
	Error
)

var statusNames = [...]string{
	Unset:          "UNSET",
	Active:         "ACTIVE",
	ActiveWithInfo: "ACTIVE_WITH_INFO",
	InProgress:     "IN_PROGRESS",
	Error:          "ERROR",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// ClassType tags ordinary and primitive classes.
type ClassType string

const (
	Ordinary  ClassType = "ordinary"
	Primitive ClassType = "primitive"
)

// Element is one node of the model tree. Which fields are meaningful depends on Kind.
type Element struct {
	ID       ElementID   `json:"-"`
	Kind     Kind        `json:"-"`
	XMIID    string      `json:"xmiId"`
	Name     string      `json:"name"`
	Parent   ElementID   `json:"-"`
	Children []ElementID `json:"-"`
	Status   Status      `json:"status"`

	// Class and LocalValueDomain
	ClassType      ClassType `json:"classType,omitempty"`
	Stereotype     string    `json:"stereotype,omitempty"`
	SuperClass     ElementID `json:"-"`
	SuperClassName string    `json:"superClassName,omitempty"`

	// Member
	TypeName      string    `json:"typeName,omitempty"`
	ResolvedClass ElementID `json:"-"`

	// LocalValueDomain
	Concept         terminology.Key       `json:"concept"`
	ResolvedConcept *terminology.Concept  `json:"resolvedConcept,omitempty"`
	ValueSet        []terminology.Concept `json:"valueSet,omitempty"`

	childrenProcessed bool
}

// Mark moves the status to s if s is worse than the current one. It never clears.
func (e *Element) Mark(s Status) {
	if s > e.Status {
		e.Status = s
	}
}

// ChildrenProcessed reports whether the element's sub-tree has been fully resolved.
func (e *Element) ChildrenProcessed() bool {
	return e.childrenProcessed
}

// SetChildrenProcessed records that the element's sub-tree has been fully resolved.
func (e *Element) SetChildrenProcessed() {
	e.childrenProcessed = true
}

// IsPrimitive reports whether the element is a primitive class.
func (e *Element) IsPrimitive() bool {
	return e.ClassType == Primitive
}

// RelationshipType tags relationship facts.
type RelationshipType string

const (
	Generalization RelationshipType = "Generalization"
)

// Relationship is a flat fact between two classes, identified by their XMI IDs.
type Relationship struct {
	XMIID    string           `json:"xmiId"`
	Type     RelationshipType `json:"type"`
	SourceID string           `json:"source"`
	TargetID string           `json:"target"`
	Status   Status           `json:"status"`
}

// Mark moves the status to s if s is worse than the current one.
func (r *Relationship) Mark(s Status) {
	if s > r.Status {
		r.Status = s
	}
}

// Model is the arena holding one loaded model.
type Model struct {
	elements      []*Element
	relationships []*Relationship
	defaultPkg    ElementID
}

// NewModel creates a model with its root element.
func NewModel(name, xmiID string) *Model {
	m := &Model{defaultPkg: NoElement}
	root := m.NewElement(KindModel, xmiID, name)
	root.Parent = NoElement
	return m
}

// Root returns the model root.
func (m *Model) Root() *Element {
	return m.elements[RootID]
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.Root().Name
}

// Len returns the number of elements in the arena, attached or not.
func (m *Model) Len() int {
	return len(m.elements)
}

// Get returns the element for a handle, or nil if the handle is out of range.
func (m *Model) Get(id ElementID) *Element {
	if id < 0 || int(id) >= len(m.elements) {
		return nil
	}
	return m.elements[id]
}

// NewElement allocates an unattached element.
func (m *Model) NewElement(kind Kind, xmiID, name string) *Element {
	e := &Element{
		ID:            ElementID(len(m.elements)),
		Kind:          kind,
		XMIID:         xmiID,
		Name:          name,
		Parent:        NoElement,
		SuperClass:    NoElement,
		ResolvedClass: NoElement,
	}
	if kind.IsClass() {
		e.ClassType = Ordinary
	}
	m.elements = append(m.elements, e)
	return e
}

// Attach sets child's parent and appends it to parent's children. A parent is set
// exactly once; attaching the root, re-attaching, or closing a cycle fails.
func (m *Model) Attach(child, parent ElementID) error {
	c, p := m.Get(child), m.Get(parent)
	if c == nil || p == nil {
		return fmt.Errorf("attach %d to %d: no such element", child, parent)
	}
	if child == RootID {
		return fmt.Errorf("the model root cannot be attached")
	}
	if c.Parent != NoElement {
		return fmt.Errorf("element %s already has a parent", c.XMIID)
	}
	if p.Kind == KindMember {
		return fmt.Errorf("element %s cannot be attached to member %s", c.XMIID, p.XMIID)
	}
	for id := parent; id != NoElement; id = m.elements[id].Parent {
		if id == child {
			return fmt.Errorf("attaching %s to %s would create a cycle", c.XMIID, p.XMIID)
		}
	}
	c.Parent = parent
	p.Children = append(p.Children, child)
	return nil
}

// DefaultPackage returns the default package, creating it under the root on first use.
func (m *Model) DefaultPackage() ElementID {
	if m.defaultPkg != NoElement {
		return m.defaultPkg
	}
	pkg := m.NewElement(KindPackage, DefaultPackageXMIID, DefaultPackageName)
	// Cannot fail: fresh element under the root.
	_ = m.Attach(pkg.ID, RootID)
	m.defaultPkg = pkg.ID
	return pkg.ID
}

// HasDefaultPackage reports whether the default package was synthesized.
func (m *Model) HasDefaultPackage() bool {
	return m.defaultPkg != NoElement
}

// AddRelationship records a relationship fact.
func (m *Model) AddRelationship(r *Relationship) {
	m.relationships = append(m.relationships, r)
}

// Relationships returns the relationship facts in document order.
func (m *Model) Relationships() []*Relationship {
	return m.relationships
}

// Walk visits the tree below from in pre-order. Returning false from fn skips
// the element's children.
func (m *Model) Walk(from ElementID, fn func(*Element) bool) {
	e := m.Get(from)
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		m.Walk(c, fn)
	}
}

// PostOrder visits the tree below from, children before parents.
func (m *Model) PostOrder(from ElementID, fn func(*Element)) {
	e := m.Get(from)
	if e == nil {
		return
	}
	for _, c := range e.Children {
		m.PostOrder(c, fn)
	}
	fn(e)
}

// Classes returns every attached class-shaped element in pre-order.
func (m *Model) Classes() []ElementID {
	var out []ElementID
	m.Walk(RootID, func(e *Element) bool {
		if e.Kind.IsClass() {
			out = append(out, e.ID)
		}
		return e.Kind != KindMember
	})
	return out
}

// Packages returns every attached package in pre-order.
func (m *Model) Packages() []ElementID {
	var out []ElementID
	m.Walk(RootID, func(e *Element) bool {
		if e.Kind == KindPackage {
			out = append(out, e.ID)
		}
		return !e.Kind.IsClass()
	})
	return out
}

// QualifiedName joins the names from the first level below the root down to id.
func (m *Model) QualifiedName(id ElementID) string {
	var parts []string
	for e := m.Get(id); e != nil && e.Kind != KindModel; e = m.Get(e.Parent) {
		parts = append(parts, e.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Members returns the class's own member children.
func (m *Model) Members(classID ElementID) []ElementID {
	e := m.Get(classID)
	if e == nil {
		return nil
	}
	var out []ElementID
	for _, c := range e.Children {
		if m.elements[c].Kind == KindMember {
			out = append(out, c)
		}
	}
	return out
}

// AllMembers returns the class's own members followed by those inherited through
// the super-class chain. A cyclic chain stops at the first repeated class.
func (m *Model) AllMembers(classID ElementID) []ElementID {
	var out []ElementID
	seen := make(map[ElementID]bool)
	for id := classID; id != NoElement && !seen[id]; {
		seen[id] = true
		out = append(out, m.Members(id)...)
		e := m.Get(id)
		if e == nil {
			break
		}
		id = e.SuperClass
	}
	return out
}

// Validate checks the structural invariants of the attached tree: a single model
// root, every child's parent pointing back at its holder, and no element reached twice.
func (m *Model) Validate() error {
	if len(m.elements) == 0 || m.elements[RootID].Kind != KindModel {
		return fmt.Errorf("model has no root")
	}
	if m.elements[RootID].Parent != NoElement {
		return fmt.Errorf("model root has a parent")
	}
	seen := make(map[ElementID]bool)
	var visit func(id ElementID) error
	visit = func(id ElementID) error {
		if seen[id] {
			return fmt.Errorf("element %s reached twice", m.elements[id].XMIID)
		}
		seen[id] = true
		for _, c := range m.elements[id].Children {
			child := m.Get(c)
			if child == nil {
				return fmt.Errorf("element %s has a dangling child %d", m.elements[id].XMIID, c)
			}
			if child.Kind == KindModel {
				return fmt.Errorf("second model root %s", child.XMIID)
			}
			if child.Parent != id {
				return fmt.Errorf("element %s is listed under %s but its parent is %d",
					child.XMIID, m.elements[id].XMIID, child.Parent)
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(RootID)
}
