package projection

import (
	"strings"

	"umlreg/internal/xmldoc"
)

// UML13Namespace is the namespace UML 1.x elements must be in for the xmi11 query.
// Exports using another URI are normalized by the v1 line transformers.
const UML13Namespace = "omg.org/UML1.3"

const xmi11ID = "xmi.id"
const xmi11IDRef = "xmi.idref"

// ProjectXMI11 projects an XMI 1.x document with UML 1.3/1.4 content.
//
// Packages and classes are found by element name. Parents come from the nearest
// enclosing package, the "package" tagged value, or the namespace attribute.
// LocalValueDomain concepts come from the conceptNamespace, conceptProperty and
// conceptValue tagged values.
func ProjectXMI11(doc *xmldoc.Node) (*xmldoc.Node, error) {
	inUML := func(n *xmldoc.Node) bool { return n.Name.Space == UML13Namespace }

	var model *xmldoc.Node
	doc.Walk(func(n *xmldoc.Node) bool {
		if model != nil {
			return false
		}
		if inUML(n) && n.Local() == "Model" {
			model = n
			return false
		}
		return true
	})
	if model == nil {
		return nil, failf("no UML:Model element in namespace %s", UML13Namespace)
	}

	names := make(map[string]string)
	supers := make(map[string]string)
	model.Walk(func(n *xmldoc.Node) bool {
		if id := n.Attr(xmi11ID); id != "" && n.Attr("name") != "" {
			names[id] = n.Attr("name")
		}
		if inUML(n) && n.Local() == "Generalization" {
			sub, super := xmi11GeneralizationEnds(n)
			if _, seen := supers[sub]; sub != "" && super != "" && !seen {
				supers[sub] = super
			}
		}
		return true
	})

	out := newOutput(model.Attr("name"), model.Attr(xmi11ID))
	model.Walk(func(n *xmldoc.Node) bool {
		if n == model || !inUML(n) || n.Attr(xmi11IDRef) != "" {
			return true
		}
		switch n.Local() {
		case "Package":
			out.pkg(n.Attr(xmi11ID), n.Attr("name"), xmi11Parent(n, inUML))
		case "Class", "DataType":
			tags := xmi11TaggedValues(n)
			c := classFacts{
				xmiID:      n.Attr(xmi11ID),
				name:       n.Attr("name"),
				parent:     xmi11Parent(n, inUML),
				primitive:  n.Local() == "DataType" || tags["classType"] == ClassTypePrimitive,
				stereotype: xmi11Stereotype(n, tags),
				namespace:  tags["conceptNamespace"],
				property:   tags["conceptProperty"],
				value:      tags["conceptValue"],
			}
			if super, ok := supers[c.xmiID]; ok {
				c.superClass = nameOr(names, super)
			}
			out.class(c, xmi11Members(n, names))
			return false
		case "Generalization":
			sub, super := xmi11GeneralizationEnds(n)
			out.generalization(n.Attr(xmi11ID), sub, super)
		}
		return true
	})
	return out.root, nil
}

func xmi11Parent(n *xmldoc.Node, inUML func(*xmldoc.Node) bool) string {
	if p := n.Ancestor(func(a *xmldoc.Node) bool { return inUML(a) && a.Local() == "Package" }); p != nil {
		return p.Attr(xmi11ID)
	}
	if pkg := xmi11TaggedValues(n)["package"]; pkg != "" {
		return pkg
	}
	return n.Attr("namespace")
}

// xmi11TaggedValues reads <UML:ModelElement.taggedValue><UML:TaggedValue tag= value=/>.
func xmi11TaggedValues(n *xmldoc.Node) map[string]string {
	tags := make(map[string]string)
	for _, holder := range n.Elements("ModelElement.taggedValue") {
		for _, tv := range holder.Elements("TaggedValue") {
			tag := tv.Attr("tag")
			if tag == "" {
				continue
			}
			value, ok := tv.LookupAttr("value")
			if !ok {
				if dv := tv.First("TaggedValue.dataValue"); dv != nil {
					value = dv.Text
				}
			}
			if _, seen := tags[tag]; !seen {
				tags[tag] = value
			}
		}
	}
	return tags
}

func xmi11Stereotype(n *xmldoc.Node, tags map[string]string) string {
	if s := n.Attr("stereotype"); s != "" {
		return s
	}
	for _, holder := range n.Elements("ModelElement.stereotype") {
		if st := holder.First("Stereotype"); st != nil && st.Attr("name") != "" {
			return st.Attr("name")
		}
	}
	return tags["stereotype"]
}

func xmi11Members(class *xmldoc.Node, names map[string]string) []memberFacts {
	var out []memberFacts
	for _, feature := range class.Elements("Classifier.feature") {
		for _, attr := range feature.Elements("Attribute") {
			m := memberFacts{xmiID: attr.Attr(xmi11ID), name: attr.Attr("name")}
			m.typeName = xmi11TaggedValues(attr)["type"]
			if m.typeName == "" {
				if sf := attr.First("StructuralFeature.type"); sf != nil {
					for _, ref := range sf.Children {
						if id := ref.Attr(xmi11IDRef); id != "" {
							m.typeName = nameOr(names, id)
							break
						}
					}
				}
			}
			out = append(out, m)
		}
	}
	return out
}

// xmi11GeneralizationEnds returns (sub, super) from subtype/supertype attributes
// or the Generalization.child / Generalization.parent references.
func xmi11GeneralizationEnds(n *xmldoc.Node) (string, string) {
	sub, super := n.Attr("subtype"), n.Attr("supertype")
	if sub == "" {
		sub = xmi11Ref(n.First("Generalization.child"))
	}
	if super == "" {
		super = xmi11Ref(n.First("Generalization.parent"))
	}
	return sub, super
}

func xmi11Ref(holder *xmldoc.Node) string {
	if holder == nil {
		return ""
	}
	for _, c := range holder.Children {
		if id := c.Attr(xmi11IDRef); id != "" {
			return id
		}
	}
	return ""
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return strings.TrimSpace(id)
}
