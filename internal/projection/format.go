package projection

import "umlreg/internal/xmldoc"

// Projection output layout. The root carries the model name and ID; each child is
// one flat <element> whose type attribute discriminates the variant:
//
//	<projection model="Sample" modelId="m1">
//	  <element type="Package" xmiId="p1" name="domain" parent=""/>
//	  <element type="Class" xmiId="c1" name="Person" parent="p1" classType="ordinary" superClass="Party">
//	    <element type="Member" xmiId="a1" name="firstName" memberType="String"/>
//	  </element>
//	  <element type="LocalValueDomain" xmiId="d1" name="Gender" parent="p1"
//	           namespace="NCIt" property="code" value="C17357"/>
//	  <element type="Generalization" xmiId="g1" source="c1" target="c0"/>
//	</projection>
const (
	RootTag    = "projection"
	ElementTag = "element"

	AttrModel      = "model"
	AttrModelID    = "modelId"
	AttrType       = "type"
	AttrXMIID      = "xmiId"
	AttrName       = "name"
	AttrParent     = "parent"
	AttrClassType  = "classType"
	AttrSuperClass = "superClass"
	AttrStereotype = "stereotype"
	AttrNamespace  = "namespace"
	AttrProperty   = "property"
	AttrValue      = "value"
	AttrMemberType = "memberType"
	AttrSource     = "source"
	AttrTarget     = "target"

	TypePackage          = "Package"
	TypeClass            = "Class"
	TypeLocalValueDomain = "LocalValueDomain"
	TypeMember           = "Member"
	TypeGeneralization   = "Generalization"

	ClassTypeOrdinary  = "ordinary"
	ClassTypePrimitive = "primitive"

	// LocalValueDomainStereotype marks a class as a local value domain.
	LocalValueDomainStereotype = "LocalValueDomain"
)

type output struct {
	root *xmldoc.Node
}

func newOutput(modelName, modelID string) *output {
	return &output{root: xmldoc.NewElement(RootTag, AttrModel, modelName, AttrModelID, modelID)}
}

func (o *output) pkg(xmiID, name, parent string) {
	o.root.Append(xmldoc.NewElement(ElementTag,
		AttrType, TypePackage,
		AttrXMIID, xmiID,
		AttrName, name,
		AttrParent, parent,
	))
}

type classFacts struct {
	xmiID      string
	name       string
	parent     string
	primitive  bool
	superClass string
	stereotype string
	namespace  string
	property   string
	value      string
}

type memberFacts struct {
	xmiID    string
	name     string
	typeName string
}

func (o *output) class(c classFacts, members []memberFacts) {
	typ := TypeClass
	if c.stereotype == LocalValueDomainStereotype {
		typ = TypeLocalValueDomain
	}
	classType := ClassTypeOrdinary
	if c.primitive {
		classType = ClassTypePrimitive
	}
	n := o.root.Append(xmldoc.NewElement(ElementTag,
		AttrType, typ,
		AttrXMIID, c.xmiID,
		AttrName, c.name,
		AttrParent, c.parent,
		AttrClassType, classType,
		AttrSuperClass, c.superClass,
		AttrStereotype, c.stereotype,
		AttrNamespace, c.namespace,
		AttrProperty, c.property,
		AttrValue, c.value,
	))
	for _, m := range members {
		n.Append(xmldoc.NewElement(ElementTag,
			AttrType, TypeMember,
			AttrXMIID, m.xmiID,
			AttrName, m.name,
			AttrMemberType, m.typeName,
		))
	}
}

func (o *output) generalization(xmiID, source, target string) {
	if xmiID == "" {
		xmiID = source + "->" + target
	}
	o.root.Append(xmldoc.NewElement(ElementTag,
		AttrType, TypeGeneralization,
		AttrXMIID, xmiID,
		AttrSource, source,
		AttrTarget, target,
	))
}
