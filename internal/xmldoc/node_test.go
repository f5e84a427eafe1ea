package xmldoc

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="windows-1252"?>
<xmi:XMI xmlns:xmi="http://www.omg.org/spec/XMI/20131001" xmlns:uml="http://www.omg.org/spec/UML/20131001">
  <uml:Model xmi:id="m1" name="Sample">
    <packagedElement xmi:type="uml:Package" xmi:id="p1" name="domain">
      <packagedElement xmi:type="uml:Class" xmi:id="c1" name="Person">
        <ownedAttribute xmi:id="a1" name="name" type="t1"/>
      </packagedElement>
    </packagedElement>
    <ownedComment>  some text  </ownedComment>
  </uml:Model>
</xmi:XMI>`

func isXMI(space string) bool { return strings.Contains(space, "XMI") }

func TestParse(t *testing.T) {
	root, err := ParseString(sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, "XMI", root.Local())

	model := root.First("Model")
	require.NotNil(t, model)
	assert.Equal(t, "Sample", model.Attr("name"))
	id, ok := model.AttrNS("id", isXMI)
	assert.True(t, ok)
	assert.Equal(t, "m1", id)

	pkgs := model.Elements("packagedElement")
	require.Len(t, pkgs, 1)
	typ, _ := pkgs[0].AttrNS("type", isXMI)
	assert.Equal(t, "uml:Package", typ)
	_, ok = pkgs[0].LookupAttr("type")
	assert.False(t, ok, "xmi:type is not the plain type attribute")

	all := root.Descendants("packagedElement")
	require.Len(t, all, 2)
	assert.Equal(t, "Person", all[1].Attr("name"))

	attr := all[1].First("ownedAttribute")
	require.NotNil(t, attr)
	assert.Equal(t, "t1", attr.Attr("type"))
	assert.Same(t, pkgs[0], attr.Ancestor(func(n *Node) bool {
		v, _ := n.AttrNS("type", isXMI)
		return v == "uml:Package"
	}))
	assert.Nil(t, attr.Ancestor(func(n *Node) bool { return n.Local() == "nothing" }))

	assert.Equal(t, "some text", model.First("ownedComment").Text)
	assert.Greater(t, attr.Line, 1)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":      "",
		"mismatched": "<a><b></a>",
		"unclosed":   "<a><b></b>",
		"garbage":    "not xml at all <",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseString(doc)
			assert.Error(t, err)
		})
	}
}

func TestBuildAndEncode(t *testing.T) {
	root := NewElement("projection", "model", "Sample")
	pkg := root.Append(NewElement("element", "type", "Package", "xmiId", "p1", "parent", ""))
	pkg.SetAttr("name", "domain")
	pkg.SetAttr("name", "core")

	assert.Equal(t, root, pkg.Parent)
	assert.Equal(t, "core", pkg.Attr("name"))
	_, ok := pkg.LookupAttr("parent")
	assert.False(t, ok, "empty values are skipped")

	var b strings.Builder
	require.NoError(t, root.Encode(&b))

	back, err := ParseString(b.String())
	require.NoError(t, err)
	require.Len(t, back.Elements("element"), 1)
	assert.Equal(t, "p1", back.Elements("element")[0].Attr("xmiId"))
	assert.Contains(t, root.String(), `model="Sample"`)
}

func TestEncode_NamespacedAttributes(t *testing.T) {
	root, err := ParseString(sampleDoc)
	require.NoError(t, err)

	pkg := root.First("Model").Elements("packagedElement")[0]
	out := pkg.String()
	assert.Contains(t, out, `xmi:type="uml:Package"`)
	assert.Contains(t, out, `xmi:id="p1"`)
	assert.NotContains(t, out, "http://")

	back, err := ParseString(root.String())
	require.NoError(t, err)
	id, ok := back.First("Model").AttrNS("id", isXMI)
	require.True(t, ok)
	assert.Equal(t, "m1", id)

	// a URI namespace with no declaration in scope cannot be written back
	detached := NewElement("element", "name", "A")
	detached.Attrs = append(detached.Attrs, xml.Attr{Name: xml.Name{Space: "http://example.org/ns", Local: "id"}, Value: "x"})
	assert.NotContains(t, detached.String(), "id=")
	assert.Contains(t, detached.String(), `name="A"`)
}
