package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"umlreg/internal/diag"
	"umlreg/internal/parser"
	"umlreg/internal/terminology"
	"umlreg/internal/testutil"
	"umlreg/internal/uml"
)

// testModel builds:
//
//	domain
//	  Gender (LocalValueDomain)
//	  core
//	    Person { gender: Gender, legacyCode: NONE }
//	    Employee -> Person { badge: Badge (unresolved) }
func testModel(t *testing.T) *uml.Model {
	t.Helper()
	m := uml.NewModel("Sample", "m1")

	attach := func(e *uml.Element, parent uml.ElementID, s uml.Status) *uml.Element {
		require.NoError(t, m.Attach(e.ID, parent))
		e.Mark(s)
		return e
	}

	domain := attach(m.NewElement(uml.KindPackage, "p1", "domain"), uml.RootID, uml.Active)
	core := attach(m.NewElement(uml.KindPackage, "p2", "core"), domain.ID, uml.Active)

	gender := attach(m.NewElement(uml.KindLocalValueDomain, "d1", "Gender"), domain.ID, uml.Active)
	gender.Stereotype = "LocalValueDomain"
	gender.Concept = terminology.Key{Namespace: "NCIt", PropertyName: "code", PropertyValue: "C17357"}
	gender.ResolvedConcept = &terminology.Concept{ID: "C17357", Name: "Gender"}
	gender.ValueSet = []terminology.Concept{{ID: "C20197", Name: "Male"}, {ID: "C16576", Name: "Female"}}

	person := attach(m.NewElement(uml.KindClass, "c1", "Person"), core.ID, uml.Active)
	g := attach(m.NewElement(uml.KindMember, "a1", "gender"), person.ID, uml.Active)
	g.TypeName = "d1"
	g.ResolvedClass = gender.ID
	legacy := attach(m.NewElement(uml.KindMember, "a2", "legacyCode"), person.ID, uml.Active)
	legacy.TypeName = "NONE"

	employee := attach(m.NewElement(uml.KindClass, "c2", "Employee"), core.ID, uml.InProgress)
	employee.SuperClass = person.ID
	employee.SuperClassName = "Person"
	badge := attach(m.NewElement(uml.KindMember, "a3", "badge"), employee.ID, uml.Error)
	badge.TypeName = "Badge"

	m.AddRelationship(&uml.Relationship{XMIID: "g1", Type: uml.Generalization, SourceID: "c2", TargetID: "c1", Status: uml.Active})
	return m
}

func testMessages() []diag.Message {
	return []diag.Message{
		{Severity: diag.Warning, Text: "reference NONE ignored", Code: "IGNORED_REFERENCE", ElementID: "a2"},
		{Severity: diag.Error, Text: "class Badge not found", Code: "CLASS_NOT_FOUND", ElementID: "a3"},
	}
}

func newTestExporter() *Exporter {
	e := NewExporter(nil)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestExport(t *testing.T) {
	e := newTestExporter()
	out, err := e.Export(testModel(t), testMessages(), Source{Name: "sample.xmi", Version: "v2", Fingerprint: "abc"}, DefaultOptions())
	require.NoError(t, err)

	md := out.Metadata
	assert.Equal(t, "Sample", md.Model)
	assert.Equal(t, "m1", md.XMIID)
	assert.Equal(t, "2026-01-02T03:04:05Z", md.Generated)
	assert.Equal(t, 2, md.PackageCount)
	assert.Equal(t, 3, md.ClassCount)
	assert.Equal(t, diag.Summary{Errors: 1, Warnings: 1}, md.Summary)

	require.Len(t, out.Packages, 2)
	assert.Equal(t, "domain", out.Packages[0].QualifiedName)
	assert.Equal(t, "domain.core", out.Packages[1].QualifiedName)

	gender := out.Packages[0].Classes[0]
	assert.Equal(t, "LocalValueDomain", gender.Kind)
	require.NotNil(t, gender.Concept)
	assert.Equal(t, "C17357", gender.Concept.ID)
	assert.Equal(t, []string{"Male", "Female"}, gender.Concept.ValueSet)

	core := out.Packages[1]
	require.Len(t, core.Classes, 2)
	person := core.Classes[0]
	assert.Nil(t, person.Concept)
	require.Len(t, person.Members, 2)
	assert.Equal(t, "domain.Gender", person.Members[0].ResolvedType)
	assert.Empty(t, person.Members[1].ResolvedType)

	employee := core.Classes[1]
	assert.Equal(t, "domain.core.Person", employee.SuperClass)
	assert.Equal(t, "IN_PROGRESS", employee.Status)

	require.Len(t, out.Relationships, 1)
	assert.Equal(t, "Generalization", out.Relationships[0].Type)
	assert.Len(t, out.Messages, 2)
}

func TestExport_Options(t *testing.T) {
	e := newTestExporter()
	m := testModel(t)

	out, err := e.Export(m, testMessages(), Source{}, ExportOptions{})
	require.NoError(t, err)
	assert.Empty(t, out.Messages)
	for _, pkg := range out.Packages {
		for _, c := range pkg.Classes {
			assert.Empty(t, c.Members, c.Name)
		}
	}

	out, err = e.Export(m, nil, Source{}, ExportOptions{IncludeMembers: true, ProblemsOnly: true})
	require.NoError(t, err)
	require.Len(t, out.Packages, 1)
	require.Len(t, out.Packages[0].Classes, 1)
	assert.Equal(t, "Employee", out.Packages[0].Classes[0].Name)
	// counts still describe the whole model
	assert.Equal(t, 3, out.Metadata.ClassCount)

	_, err = e.Export(nil, nil, Source{}, DefaultOptions())
	assert.Error(t, err)
}

func TestWrite_Formats(t *testing.T) {
	e := newTestExporter()
	out, err := e.Export(testModel(t), testMessages(), Source{Name: "sample.xmi", Version: "v2"}, DefaultOptions())
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, e.Write(&buf, out, ExportOptions{Format: FormatJSON}))
		var back ModelExport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, out.Metadata, back.Metadata)
		assert.Contains(t, buf.String(), `"parserVersion": "v2"`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, e.Write(&buf, out, ExportOptions{Format: "YAML"}))
		var back ModelExport
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, "Sample", back.Metadata.Model)
		assert.Len(t, back.Packages, 2)
		assert.Contains(t, buf.String(), "qualifiedName: domain.core")
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, e.Write(&buf, out, ExportOptions{IncludeMembers: true}))
		text := buf.String()
		assert.True(t, strings.HasPrefix(text, "# Model: Sample (m1)\n"))
		assert.Contains(t, text, "# Messages: 1 errors, 1 warnings, 0 infos")
		assert.Contains(t, text, "## domain.core\n")
		assert.Contains(t, text, "% Gender")
		assert.Contains(t, text, "concept:NCIt:code=C17357 (2 values)")
		assert.Contains(t, text, "$ Employee -> domain.core.Person")
		assert.Contains(t, text, ". gender: d1 -> domain.Gender")
		assert.Contains(t, text, "ERROR: class Badge not found")
		assert.Contains(t, text, "Legend:")
	})

	t.Run("unknown", func(t *testing.T) {
		err := e.Write(&bytes.Buffer{}, out, ExportOptions{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestOrganizer(t *testing.T) {
	e := newTestExporter()
	out, err := e.Export(testModel(t), nil, Source{}, DefaultOptions())
	require.NoError(t, err)

	o := NewOrganizer(out)
	org := o.Organize()

	assert.Equal(t, 3, org.TotalClasses)
	assert.Equal(t, 1, org.TotalProblems)
	require.Len(t, org.PackageMap, 2)
	assert.Equal(t, "domain.core", org.PackageMap[0].QualifiedName)
	assert.Equal(t, []string{"Employee"}, org.PackageMap[0].Problems)
	assert.Equal(t, 3, org.PackageMap[0].MemberCount)

	// Employee -> Person stays inside domain.core
	require.Len(t, org.Bridges, 1)
	assert.Equal(t, PackageBridge{FromPackage: "domain.core", ToPackage: "domain", TypeReferences: 1}, org.Bridges[0])

	text := o.FormatOrganizedText(org)
	assert.Contains(t, text, "## Package Map")
	assert.Contains(t, text, "domain.core -> domain (0 generalizations, 1 type references)")
	assert.Contains(t, text, "Total: 2 packages, 3 classes, 1 with problems")

	assert.Empty(t, NewOrganizer(nil).Organize().PackageMap)
}

func TestPackageOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"domain.core.Person", "domain.core", true},
		{"domain.Gender", "domain", true},
		{"Gender", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := packageOf(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("packageOf(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExport_StableAcrossLoads(t *testing.T) {
	snapshot := func() string {
		p, err := parser.New(parser.V2, parser.Options{})
		require.NoError(t, err)
		res, err := p.Parse(context.Background(), parser.Source{
			Name:   "sample",
			Reader: bytes.NewReader(testutil.ReadXMI(t, "v2", "sample.xmi")),
		})
		require.NoError(t, err)

		src := Source{Name: "sample", Version: string(res.Version), Fingerprint: res.Fingerprint}
		exp, err := NewExporter(nil).Export(res.Model, res.Messages.All(), src, DefaultOptions())
		require.NoError(t, err)
		return string(testutil.MarshalNormalized(t, exp, ""))
	}

	first := snapshot()
	assert.Equal(t, first, snapshot())
	assert.Contains(t, first, `"qualifiedName": "domain.core"`)
	assert.Contains(t, first, `"IGNORED_REFERENCE"`)
	assert.NotContains(t, first, `"generated"`)
}
