package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlreg/internal/errors"
	"umlreg/internal/uml"
	"umlreg/internal/xmldoc"
)

func TestBuilder_Build(t *testing.T) {
	tests := []struct {
		name    string
		node    *xmldoc.Node
		parent  uml.ElementID
		code    errors.ErrorCode
		members int
	}{
		{
			name:   "package",
			node:   xmldoc.NewElement("element", "type", "Package", "xmiId", "p", "name", "core"),
			parent: uml.RootID,
		},
		{
			name:   "unknown type",
			node:   xmldoc.NewElement("element", "type", "Interface", "xmiId", "i"),
			parent: uml.RootID,
			code:   errors.UnknownElementType,
		},
		{
			name:   "model type is not buildable",
			node:   xmldoc.NewElement("element", "type", "Model", "xmiId", "m2"),
			parent: uml.RootID,
			code:   errors.UnknownElementType,
		},
		{
			name:   "missing id",
			node:   xmldoc.NewElement("element", "type", "Class", "name", "Person"),
			parent: uml.RootID,
			code:   errors.MalformedNode,
		},
		{
			name:   "member outside class",
			node:   xmldoc.NewElement("element", "type", "Member", "xmiId", "a"),
			parent: uml.RootID,
			code:   errors.MalformedNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := uml.NewModel("m", "m")
			id, err := NewBuilder(m, nil).Build(tt.node, tt.parent)
			if tt.code != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.code), err.Error())
				assert.Equal(t, uml.NoElement, id)
				assert.Empty(t, m.Root().Children, "nothing is attached on failure")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uml.RootID, m.Get(id).Parent)
		})
	}
}

func TestBuilder_ClassWithMembers(t *testing.T) {
	m := uml.NewModel("m", "m")
	class := xmldoc.NewElement("element", "type", "Class", "xmiId", "c", "name", "Person", "classType", "primitive")
	class.Append(xmldoc.NewElement("element", "type", "Member", "xmiId", "a1", "name", "x", "memberType", "String"))
	class.Append(xmldoc.NewElement("element", "type", "Member", "name", "y"))

	var reported []string
	b := NewBuilder(m, func(xmiID string, err error) {
		reported = append(reported, string(errors.CodeOf(err)))
	})
	id, err := b.Build(class, uml.RootID)
	require.NoError(t, err)

	c := m.Get(id)
	assert.Equal(t, uml.KindClass, c.Kind)
	assert.True(t, c.IsPrimitive())
	require.Len(t, m.Members(id), 1)
	assert.Equal(t, "String", m.Get(m.Members(id)[0]).TypeName)
	assert.Equal(t, []string{string(errors.MalformedNode)}, reported)
}
