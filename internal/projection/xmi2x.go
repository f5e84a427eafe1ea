package projection

import (
	"strings"

	"umlreg/internal/xmldoc"
)

// Namespaces the xmi2x query binds to. XMI 2.1 exports are rewritten to these by
// the v2 line transformers.
const (
	XMI2Namespace = "http://www.omg.org/spec/XMI/20131001"
	UML2Namespace = "http://www.omg.org/spec/UML/20131001"
)

func inXMI2(space string) bool { return space == XMI2Namespace }

func xmi2Attr(n *xmldoc.Node, local string) string {
	v, _ := n.AttrNS(local, inXMI2)
	return v
}

// ProjectXMI2x projects an XMI 2.x document with UML 2 content.
//
// packagedElement nodes typed uml:Package, uml:Class, uml:PrimitiveType and
// uml:DataType are projected. Stereotype applications are top-level elements
// carrying base_Class; a LocalValueDomain application may carry conceptNamespace,
// conceptProperty and conceptValue.
func ProjectXMI2x(doc *xmldoc.Node) (*xmldoc.Node, error) {
	var model *xmldoc.Node
	doc.Walk(func(n *xmldoc.Node) bool {
		if model != nil {
			return false
		}
		if n.Name.Space == UML2Namespace && n.Local() == "Model" {
			model = n
			return false
		}
		return true
	})
	if model == nil {
		return nil, failf("no uml:Model element in namespace %s", UML2Namespace)
	}

	names := make(map[string]string)
	type application struct {
		stereotype string
		node       *xmldoc.Node
	}
	applied := make(map[string]application)
	doc.Walk(func(n *xmldoc.Node) bool {
		if id := xmi2Attr(n, "id"); id != "" && n.Attr("name") != "" {
			names[id] = n.Attr("name")
		}
		if base := n.Attr("base_Class"); base != "" {
			if _, seen := applied[base]; !seen {
				applied[base] = application{stereotype: n.Local(), node: n}
			}
		}
		return true
	})

	out := newOutput(model.Attr("name"), xmi2Attr(model, "id"))
	model.Walk(func(n *xmldoc.Node) bool {
		if n.Local() != "packagedElement" {
			return true
		}
		switch xmi2Attr(n, "type") {
		case "uml:Package":
			out.pkg(xmi2Attr(n, "id"), n.Attr("name"), xmi2Parent(n))
		case "uml:Class", "uml:PrimitiveType", "uml:DataType":
			id := xmi2Attr(n, "id")
			c := classFacts{
				xmiID:     id,
				name:      n.Attr("name"),
				parent:    xmi2Parent(n),
				primitive: xmi2Attr(n, "type") != "uml:Class",
			}
			if app, ok := applied[id]; ok {
				c.stereotype = app.stereotype
				c.namespace = app.node.Attr("conceptNamespace")
				c.property = app.node.Attr("conceptProperty")
				c.value = app.node.Attr("conceptValue")
			}
			gens := n.Elements("generalization")
			for i, g := range gens {
				target := g.Attr("general")
				if target == "" {
					target = xmi2Ref(g.First("general"))
				}
				if i == 0 && target != "" {
					c.superClass = nameOr(names, target)
				}
				out.generalization(xmi2Attr(g, "id"), id, target)
			}
			out.class(c, xmi2Members(n, names))
		}
		return true
	})
	return out.root, nil
}

func xmi2Parent(n *xmldoc.Node) string {
	p := n.Ancestor(func(a *xmldoc.Node) bool {
		return a.Local() == "packagedElement" && xmi2Attr(a, "type") == "uml:Package"
	})
	if p == nil {
		return ""
	}
	return xmi2Attr(p, "id")
}

func xmi2Members(class *xmldoc.Node, names map[string]string) []memberFacts {
	var out []memberFacts
	for _, attr := range class.Elements("ownedAttribute") {
		m := memberFacts{xmiID: xmi2Attr(attr, "id"), name: attr.Attr("name")}
		if t := attr.Attr("type"); t != "" {
			m.typeName = nameOr(names, t)
		} else if ref := xmi2Ref(attr.First("type")); ref != "" {
			m.typeName = nameOr(names, ref)
		}
		out = append(out, m)
	}
	return out
}

// xmi2Ref reads either xmi:idref="id" or href="uri#Name" from a reference element.
func xmi2Ref(n *xmldoc.Node) string {
	if n == nil {
		return ""
	}
	if id := xmi2Attr(n, "idref"); id != "" {
		return id
	}
	if href := n.Attr("href"); href != "" {
		if i := strings.LastIndex(href, "#"); i >= 0 {
			return href[i+1:]
		}
		return href
	}
	return ""
}
