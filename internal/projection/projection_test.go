package projection

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/errors"
	"umlreg/internal/xmldoc"
)

func project(t *testing.T, query, file string) *xmldoc.Node {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "testdata", "xmi", file))
	require.NoError(t, err)
	defer f.Close()

	out, err := NewNative(nil).Project(context.Background(), query, f)
	require.NoError(t, err)
	require.Equal(t, RootTag, out.Local())
	return out
}

func byID(root *xmldoc.Node) map[string]*xmldoc.Node {
	out := make(map[string]*xmldoc.Node)
	for _, el := range root.Elements(ElementTag) {
		out[el.Attr(AttrXMIID)] = el
	}
	return out
}

// The two dialects describe the same model; both projections must agree on it.
func TestProject_SampleModels(t *testing.T) {
	tests := []struct {
		query string
		file  string
		ids   map[string]string // logical name -> xmi id
	}{
		{QueryXMI11, "v1/sample.xmi", map[string]string{
			"model": "MX_EAID_1", "domain": "EAPK_1", "core": "EAPK_2", "Person": "EAID_C1",
			"Employee": "EAID_C2", "Gender": "EAID_D1", "String": "EAID_T1", "gen": "EAID_G1",
		}},
		{QueryXMI2x, "v2/sample.xmi", map[string]string{
			"model": "m1", "domain": "p1", "core": "p2", "Person": "c1",
			"Employee": "c2", "Gender": "d1", "String": "t1", "gen": "g1",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			out := project(t, tt.query, tt.file)
			assert.Equal(t, "Sample", out.Attr(AttrModel))
			assert.Equal(t, tt.ids["model"], out.Attr(AttrModelID))

			els := byID(out)
			require.Len(t, els, 7)

			domain := els[tt.ids["domain"]]
			assert.Equal(t, TypePackage, domain.Attr(AttrType))
			assert.Equal(t, "", domain.Attr(AttrParent))
			assert.Equal(t, tt.ids["domain"], els[tt.ids["core"]].Attr(AttrParent))

			person := els[tt.ids["Person"]]
			assert.Equal(t, TypeClass, person.Attr(AttrType))
			assert.Equal(t, tt.ids["core"], person.Attr(AttrParent))
			assert.Equal(t, ClassTypeOrdinary, person.Attr(AttrClassType))
			members := person.Elements(ElementTag)
			require.Len(t, members, 3)
			assert.Equal(t, "firstName", members[0].Attr(AttrName))
			assert.Equal(t, "String", members[0].Attr(AttrMemberType))
			assert.Equal(t, "Gender", members[1].Attr(AttrMemberType))
			assert.Equal(t, "NONE", members[2].Attr(AttrMemberType))

			employee := els[tt.ids["Employee"]]
			assert.Equal(t, "Person", employee.Attr(AttrSuperClass))
			require.Len(t, employee.Elements(ElementTag), 1)
			assert.Equal(t, "String", employee.Elements(ElementTag)[0].Attr(AttrMemberType))

			gender := els[tt.ids["Gender"]]
			assert.Equal(t, TypeLocalValueDomain, gender.Attr(AttrType))
			assert.Equal(t, tt.ids["domain"], gender.Attr(AttrParent))
			assert.Equal(t, "NCIt", gender.Attr(AttrNamespace))
			assert.Equal(t, "code", gender.Attr(AttrProperty))
			assert.Equal(t, "C17357", gender.Attr(AttrValue))

			str := els[tt.ids["String"]]
			assert.Equal(t, ClassTypePrimitive, str.Attr(AttrClassType))
			assert.Equal(t, "", str.Attr(AttrParent))

			gen := els[tt.ids["gen"]]
			assert.Equal(t, TypeGeneralization, gen.Attr(AttrType))
			assert.Equal(t, tt.ids["Employee"], gen.Attr(AttrSource))
			assert.Equal(t, tt.ids["Person"], gen.Attr(AttrTarget))
		})
	}
}

func TestProjectXMI11_ChildParentReferences(t *testing.T) {
	doc := `<XMI xmlns:UML="omg.org/UML1.3"><XMI.content><UML:Model xmi.id="m" name="M">
	  <UML:Class xmi.id="c.1" name="Order"/>
	  <UML:Class xmi.id="c.2" name="RushOrder"/>
	  <UML:Generalization>
	    <UML:Generalization.child><UML:Class xmi.idref="c.2"/></UML:Generalization.child>
	    <UML:Generalization.parent><UML:Class xmi.idref="c.1"/></UML:Generalization.parent>
	  </UML:Generalization>
	</UML:Model></XMI.content></XMI>`
	out, err := NewNative(nil).Project(context.Background(), QueryXMI11, strings.NewReader(doc))
	require.NoError(t, err)

	els := byID(out)
	gen := els["c.2->c.1"]
	require.NotNil(t, gen, "generalization without an id gets a synthesized one")
	assert.Equal(t, "c.2", gen.Attr(AttrSource))
	assert.Equal(t, "Order", els["c.2"].Attr(AttrSuperClass))
	assert.Len(t, els["c.1"].Elements(ElementTag), 0)
}

func TestProject_NamespaceBinding(t *testing.T) {
	p := NewNative(nil)

	f, err := os.Open(filepath.Join("..", "..", "testdata", "xmi", "v1", "argouml.xmi"))
	require.NoError(t, err)
	defer f.Close()
	_, err = p.Project(context.Background(), QueryXMI11, f)
	assert.True(t, errors.Is(err, errors.ProjectionFailed), "unnormalized UML namespace is not projected")

	g, err := os.Open(filepath.Join("..", "..", "testdata", "xmi", "v2", "sample-xmi21.xmi"))
	require.NoError(t, err)
	defer g.Close()
	_, err = p.Project(context.Background(), QueryXMI2x, g)
	assert.True(t, errors.Is(err, errors.ProjectionFailed))
}

func TestProject_Failures(t *testing.T) {
	p := NewNative(nil)

	_, err := p.Project(context.Background(), "xquery", strings.NewReader("<a/>"))
	assert.True(t, errors.Is(err, errors.ProjectionFailed))

	_, err = p.Project(context.Background(), QueryXMI2x, strings.NewReader("<a><b></a>"))
	assert.True(t, errors.Is(err, errors.ProjectionFailed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Project(ctx, QueryXMI2x, strings.NewReader("<a/>"))
	assert.True(t, errors.Is(err, errors.ProjectionFailed))
}

func TestNative_Register(t *testing.T) {
	p := NewNative(nil)
	assert.Equal(t, []string{QueryXMI11, QueryXMI2x}, p.Queries())

	p.Register("identity", func(doc *xmldoc.Node) (*xmldoc.Node, error) { return doc, nil })
	out, err := p.Project(context.Background(), "identity", strings.NewReader("<projection/>"))
	require.NoError(t, err)
	assert.Equal(t, RootTag, out.Local())
}
