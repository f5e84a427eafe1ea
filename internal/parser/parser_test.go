package parser

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/integrate"
	"umlreg/internal/terminology"
	"umlreg/internal/testutil"
	"umlreg/internal/uml"
	"umlreg/internal/xmldoc"
)

func parse(t *testing.T, v Version, opts Options, data []byte) (*Result, error) {
	t.Helper()
	p, err := New(v, opts)
	require.NoError(t, err)
	return p.Parse(context.Background(), Source{Name: "test", Reader: bytes.NewReader(data)})
}

func TestParse_SampleModels(t *testing.T) {
	for _, tc := range []struct {
		version Version
		file    string
	}{
		{V1, "sample.xmi"},
		{V2, "sample.xmi"},
		{V2, "sample-xmi21.xmi"},
	} {
		t.Run(string(tc.version)+"/"+tc.file, func(t *testing.T) {
			res, err := parse(t, tc.version, Options{}, testutil.ReadXMI(t, string(tc.version), tc.file))
			require.NoError(t, err)
			require.NotNil(t, res.Model)

			m := res.Model
			assert.Equal(t, "Sample", m.Name())
			assert.Len(t, m.Classes(), 4)
			assert.NotEmpty(t, res.Fingerprint)
			assert.Equal(t, tc.version, res.Version)

			// legacyCode is typed NONE
			all := res.Messages.All()
			require.Len(t, all, 1)
			assert.Equal(t, diag.Warning, all[0].Severity)
			assert.Equal(t, string(errors.IgnoredReference), all[0].Code)

			employee := m.Get(findClass(t, m, "Employee"))
			assert.Equal(t, "Person", employee.SuperClassName)
			assert.Equal(t, uml.Active, employee.Status)
			for _, r := range m.Relationships() {
				assert.Equal(t, uml.Active, r.Status)
			}
		})
	}
}

func findClass(t *testing.T, m *uml.Model, name string) uml.ElementID {
	t.Helper()
	for _, id := range m.Classes() {
		if m.Get(id).Name == name {
			return id
		}
	}
	t.Fatalf("class %s not found", name)
	return uml.NoElement
}

func TestParse_V1NormalizesArgoNamespace(t *testing.T) {
	res, err := parse(t, V1, Options{}, testutil.ReadXMI(t, "v1", "argouml.xmi"))
	require.NoError(t, err)
	require.NotNil(t, res.Model)
	assert.Len(t, res.Model.Classes(), 3)
	assert.Equal(t, 0, res.Messages.Len())

	rush := res.Model.Get(findClass(t, res.Model, "RushOrder"))
	assert.Equal(t, "Order", rush.SuperClassName)
}

func TestParse_ConceptsFromVocabulary(t *testing.T) {
	vocab, err := terminology.LoadVocabulary(testutil.VocabularyPath(t))
	require.NoError(t, err)

	opts := Options{
		Terminology: vocab,
		Integration: integrate.Options{ActiveNamespaces: []string{"NCIt"}},
	}
	res, err := parse(t, V2, opts, testutil.ReadXMI(t, "v2", "sample.xmi"))
	require.NoError(t, err)

	gender := res.Model.Get(findClass(t, res.Model, "Gender"))
	require.NotNil(t, gender.ResolvedConcept)
	assert.Equal(t, "C17357", gender.ResolvedConcept.ID)
	assert.Len(t, gender.ValueSet, 3)
	assert.Equal(t, uml.Active, gender.Status)
}

func TestParse_Charset(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"windows-1252\"?>\n" +
		`<XMI xmlns:UML="omg.org/UML1.3"><XMI.content><UML:Model name="Caf` + "\xe9" + `" xmi.id="m"/></XMI.content></XMI>`

	res, err := parse(t, V1, Options{}, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Café", res.Model.Name())

	res, err = parse(t, V1, Options{Charset: "utf-8"}, []byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ResourceUnreadable))
	assert.Nil(t, res.Model)
}

func TestParse_CompressedSource(t *testing.T) {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	_, err := w.Write(testutil.ReadXMI(t, "v2", "sample.xmi"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	res, err := parse(t, V2, Options{}, b.Bytes())
	require.NoError(t, err)
	assert.Len(t, res.Model.Classes(), 4)
}

func TestParse_StripInvalidChars(t *testing.T) {
	doc := `<XMI xmlns:UML="omg.org/UML1.3"><XMI.content><UML:Model name="A` + "\v" + `B" xmi.id="m"/></XMI.content></XMI>`

	_, err := parse(t, V1, Options{}, []byte(doc))
	require.Error(t, err)

	res, err := parse(t, V1, Options{StripInvalidChars: true}, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "AB", res.Model.Name())
}

type stubProjector struct {
	doc *xmldoc.Node
}

func (s stubProjector) Project(context.Context, string, io.Reader) (*xmldoc.Node, error) {
	return s.doc, nil
}

func TestParse_FatalFailures(t *testing.T) {
	sample := testutil.ReadXMI(t, "v2", "sample.xmi")
	failing := TransformFunc(func(string) (string, error) {
		return "", assert.AnError
	})

	cases := []struct {
		name    string
		version Version
		opts    Options
		src     Source
		code    errors.ErrorCode
	}{
		{"unreadable", V2, Options{}, Source{Name: "broken", Reader: iotest.ErrReader(assert.AnError)}, errors.ResourceUnreadable},
		{"no reader", V2, Options{}, Source{Name: "nil"}, errors.ResourceUnreadable},
		{"transformer", V2, Options{Transformers: []LineTransformer{failing}}, Source{Reader: bytes.NewReader(sample)}, errors.TransformFailed},
		{"wrong dialect", V1, Options{}, Source{Reader: bytes.NewReader(sample)}, errors.ProjectionFailed},
		{"not xml", V2, Options{}, Source{Reader: strings.NewReader("no markup")}, errors.ProjectionFailed},
		{"nil result", V2, Options{Projector: stubProjector{}}, Source{Reader: bytes.NewReader(sample)}, errors.NoResult},
		{"wrong root", V2, Options{Projector: stubProjector{doc: xmldoc.NewElement("other")}}, Source{Reader: bytes.NewReader(sample)}, errors.NoResult},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.version, tc.opts)
			require.NoError(t, err)
			res, err := p.Parse(context.Background(), tc.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.code), err.Error())
			require.NotNil(t, res)
			assert.Nil(t, res.Model)

			all := res.Messages.All()
			require.Len(t, all, 1)
			assert.Equal(t, diag.Error, all[0].Severity)
			assert.Equal(t, string(tc.code), all[0].Code)
		})
	}
}

func TestNew_UnsupportedVersion(t *testing.T) {
	_, err := New("v3", Options{})
	assert.True(t, errors.Is(err, errors.UnsupportedVersion))

	v, err := ParseVersion(" V1 ")
	require.NoError(t, err)
	assert.Equal(t, V1, v)

	v, err = ParseVersion("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, v)

	_, err = ParseVersion("xmi3")
	assert.True(t, errors.Is(err, errors.UnsupportedVersion))
	assert.Equal(t, []Version{V1, V2}, Versions())
}

func TestApplyTransformers(t *testing.T) {
	out, err := applyTransformers("a-b\nb-a", []LineTransformer{Replace("a", "x"), Replace("b", "y")})
	require.NoError(t, err)
	assert.Equal(t, "x-y\ny-x", out)

	out, err = applyTransformers("keep", Replacements([]Replacement{{Old: "", New: "z"}}))
	require.NoError(t, err)
	assert.Equal(t, "keep", out)

	_, err = applyTransformers("ok\nbad", []LineTransformer{TransformFunc(func(line string) (string, error) {
		if line == "bad" {
			return "", assert.AnError
		}
		return line, nil
	})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("model"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint([]byte("model")))
	assert.NotEqual(t, a, Fingerprint([]byte("model2")))
}
