package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/projection"
	"umlreg/internal/uml"
	"umlreg/internal/xmldoc"
)

func parse(t *testing.T, body string) *xmldoc.Node {
	t.Helper()
	doc, err := xmldoc.ParseString(`<projection model="Test" modelId="m">` + body + `</projection>`)
	require.NoError(t, err)
	return doc
}

// dump renders the attached tree, one line per element, for structural comparison.
func dump(m *uml.Model) []string {
	var out []string
	m.Walk(uml.RootID, func(e *uml.Element) bool {
		parent := "-"
		if p := m.Get(e.Parent); p != nil {
			parent = p.XMIID
		}
		out = append(out, fmt.Sprintf("%s %s %q parent=%s type=%s super=%s", e.Kind, e.XMIID, e.Name, parent, e.TypeName, e.SuperClassName))
		return true
	})
	for _, r := range m.Relationships() {
		out = append(out, fmt.Sprintf("rel %s %s %s->%s", r.Type, r.XMIID, r.SourceID, r.TargetID))
	}
	return out
}

func messageSet(msgs *diag.Messages) []string {
	var out []string
	for _, m := range msgs.All() {
		out = append(out, m.String())
	}
	sort.Strings(out)
	return out
}

func findID(t *testing.T, m *uml.Model, xmiID string) *uml.Element {
	t.Helper()
	id, ok := m.Find(xmiID)
	require.True(t, ok, "element %s not found", xmiID)
	return m.Get(id)
}

func TestAssemble_PackageOrdering(t *testing.T) {
	t.Run("parent declared first", func(t *testing.T) {
		m, msgs := New(nil).Assemble(parse(t, `
			<element type="Package" xmiId="P1" name="p1"/>
			<element type="Package" xmiId="P2" name="p2" parent="P1"/>`))
		assert.Equal(t, 0, msgs.Len())
		assert.Equal(t, "P1", m.Get(findID(t, m, "P2").Parent).XMIID)
		require.NoError(t, m.Validate())
	})

	t.Run("parent declared later attaches to the root", func(t *testing.T) {
		m, msgs := New(nil).Assemble(parse(t, `
			<element type="Package" xmiId="P2" name="p2" parent="P1"/>
			<element type="Package" xmiId="P1" name="p1"/>`))
		assert.Equal(t, 0, msgs.Len(), "lenient ordering is not an error")
		assert.Equal(t, uml.RootID, findID(t, m, "P2").Parent)
		assert.Equal(t, uml.RootID, findID(t, m, "P1").Parent)
		require.NoError(t, m.Validate())
	})
}

func TestAssemble_ClassesAndDefaultPackage(t *testing.T) {
	m, msgs := New(nil).Assemble(parse(t, `
		<element type="Package" xmiId="P1" name="p1"/>
		<element type="Class" xmiId="C1" name="Person" parent="P1" superClass="Party">
			<element type="Member" xmiId="M1" name="name" memberType="String"/>
			<element type="Member" xmiId="M2" name="age" memberType="Integer"/>
		</element>
		<element type="Class" xmiId="C2" name="Orphan" parent="NOPE"/>
		<element type="Class" xmiId="C3" name="Loose"/>
		<element type="Class" xmiId="T1" name="String" classType="primitive"/>
		<element type="LocalValueDomain" xmiId="D1" name="Gender" parent="P1"
			namespace="NCIt" property="code" value="C17357"/>`))
	assert.Equal(t, 0, msgs.Len())
	require.NoError(t, m.Validate())

	person := findID(t, m, "C1")
	assert.Equal(t, "P1", m.Get(person.Parent).XMIID)
	assert.Equal(t, "Party", person.SuperClassName)
	assert.Equal(t, uml.NoElement, person.SuperClass)
	require.Len(t, m.Members(person.ID), 2)
	assert.Equal(t, "String", m.Get(m.Members(person.ID)[0]).TypeName)

	def := m.DefaultPackage()
	assert.Equal(t, def, findID(t, m, "C2").Parent)
	assert.Equal(t, def, findID(t, m, "C3").Parent)
	assert.True(t, findID(t, m, "T1").IsPrimitive())

	domain := findID(t, m, "D1")
	assert.Equal(t, uml.KindLocalValueDomain, domain.Kind)
	assert.Equal(t, "NCIt", domain.Concept.Namespace)
	assert.Equal(t, "C17357", domain.Concept.PropertyValue)
}

func TestAssemble_DefaultPackageAlwaysPresent(t *testing.T) {
	m, msgs := New(nil).Assemble(parse(t, `<element type="Package" xmiId="P1" name="p1"/>`))
	assert.Equal(t, 0, msgs.Len())
	assert.True(t, m.HasDefaultPackage())
	_, ok := m.Find(uml.DefaultPackageXMIID)
	assert.True(t, ok)
}

func TestAssemble_ClassParentMustBePackage(t *testing.T) {
	m, _ := New(nil).Assemble(parse(t, `
		<element type="Class" xmiId="C1" name="Outer"/>
		<element type="Class" xmiId="C2" name="Inner" parent="C1"/>`))
	assert.Equal(t, m.DefaultPackage(), findID(t, m, "C2").Parent)
}

func TestAssemble_Relationships(t *testing.T) {
	m, msgs := New(nil).Assemble(parse(t, `
		<element type="Class" xmiId="A" name="A"/>
		<element type="Generalization" xmiId="G1" source="A" target="B"/>
		<element type="Association" xmiId="R1" source="A" target="A"/>
		<element type="Generalization" xmiId="G2" source="A"/>`))
	rels := m.Relationships()
	require.Len(t, rels, 2)
	assert.Equal(t, uml.Generalization, rels[0].Type)
	assert.Equal(t, "B", rels[0].TargetID)
	assert.Equal(t, uml.RelationshipType("Association"), rels[1].Type)

	require.Equal(t, 1, msgs.Len())
	assert.Equal(t, string(errors.MalformedNode), msgs.All()[0].Code)
	assert.Equal(t, "G2", msgs.All()[0].ElementID)
}

func TestAssemble_PerNodeFailures(t *testing.T) {
	m, msgs := New(nil).Assemble(parse(t, `
		<element type="Package" name="nameless"/>
		<element type="Widget" xmiId="W1"/>
		<element type="Member" xmiId="M0" name="stray"/>
		<element type="Class" xmiId="C1" name="Person">
			<element type="Member" name="broken"/>
			<element type="Package" xmiId="P9" name="nested"/>
			<element type="Member" xmiId="M1" name="ok" memberType="String"/>
		</element>
		<element type="Class" xmiId="C2" name="Still"/>`))

	codes := map[string]int{}
	for _, msg := range msgs.All() {
		assert.Equal(t, diag.Error, msg.Severity)
		codes[msg.Code]++
	}
	assert.Equal(t, map[string]int{
		string(errors.MalformedNode):      4,
		string(errors.UnknownElementType): 1,
	}, codes)

	person := findID(t, m, "C1")
	assert.Len(t, m.Members(person.ID), 1, "bad members are skipped, the class is kept")
	findID(t, m, "C2")
	require.NoError(t, m.Validate())
}

func TestAssemble_DuplicateIDs(t *testing.T) {
	m, msgs := New(nil).Assemble(parse(t, `
		<element type="Package" xmiId="P1" name="first"/>
		<element type="Package" xmiId="P1" name="second"/>
		<element type="Class" xmiId="C1" name="Person" parent="P1"/>`))

	warnings := msgs.BySeverity(diag.Warning)
	require.Len(t, warnings, 1)
	assert.Equal(t, string(errors.DuplicateID), warnings[0].Code)
	assert.Equal(t, "first", m.Get(findID(t, m, "C1").Parent).Name, "first match in pre-order wins")
}

func TestAssemble_Idempotent(t *testing.T) {
	body := `
		<element type="Package" xmiId="P2" name="p2" parent="P1"/>
		<element type="Package" xmiId="P1" name="p1"/>
		<element type="Class" xmiId="C1" name="Person" parent="P2">
			<element type="Member" xmiId="M1" name="name" memberType="String"/>
		</element>
		<element type="Class" xmiId="C1" name="Clone"/>
		<element type="Widget" xmiId="W"/>
		<element type="Generalization" xmiId="G" source="C1" target="X"/>`

	m1, msgs1 := New(nil).Assemble(parse(t, body))
	m2, msgs2 := New(nil).Assemble(parse(t, body))
	assert.Equal(t, dump(m1), dump(m2))
	assert.Equal(t, messageSet(msgs1), messageSet(msgs2))
}

func TestAssemble_SampleDocuments(t *testing.T) {
	for _, tc := range []struct{ query, file string }{
		{projection.QueryXMI11, "v1/sample.xmi"},
		{projection.QueryXMI2x, "v2/sample.xmi"},
	} {
		t.Run(tc.file, func(t *testing.T) {
			f, err := os.Open(filepath.Join("..", "..", "testdata", "xmi", tc.file))
			require.NoError(t, err)
			defer f.Close()
			doc, err := projection.NewNative(nil).Project(context.Background(), tc.query, f)
			require.NoError(t, err)

			m, msgs := New(nil).Assemble(doc)
			assert.Equal(t, 0, msgs.Len(), strings.Join(messageSet(msgs), "\n"))
			require.NoError(t, m.Validate())
			assert.Equal(t, "Sample", m.Name())
			assert.Len(t, m.Packages(), 3) // domain, core, default
			assert.Len(t, m.Classes(), 4)
			assert.Len(t, m.Relationships(), 1)
		})
	}
}
