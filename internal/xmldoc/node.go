// Package xmldoc is a small navigable XML element tree used for projection input
// and output.
package xmldoc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is one XML element.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node
	Text     string
	Parent   *Node
	Line     int
}

// Parse reads a document and returns its root element. The input must already be
// UTF-8; a declared encoding is accepted as-is.
func Parse(r io.Reader) (*Node, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root, cur *Node
	var text []*strings.Builder
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := d.InputPos()
			n := &Node{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...), Parent: cur, Line: line}
			if cur == nil {
				if root != nil {
					return nil, fmt.Errorf("xml: multiple root elements")
				}
				root = n
			} else {
				cur.Children = append(cur.Children, n)
			}
			cur = n
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			if cur == nil {
				return nil, fmt.Errorf("xml: unexpected end element %s", t.Name.Local)
			}
			cur.Text = strings.TrimSpace(text[len(text)-1].String())
			text = text[:len(text)-1]
			cur = cur.Parent
		case xml.CharData:
			if cur != nil {
				text[len(text)-1].Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xml: empty document")
	}
	if cur != nil {
		return nil, fmt.Errorf("xml: unclosed element %s", cur.Name.Local)
	}
	return root, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// NewElement creates a detached element. attrs are key/value pairs; pairs with an
// empty value are skipped.
func NewElement(local string, attrs ...string) *Node {
	n := &Node{Name: xml.Name{Local: local}}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttr(attrs[i], attrs[i+1])
	}
	return n
}

// Local returns the element's local name.
func (n *Node) Local() string {
	return n.Name.Local
}

// Attr returns the value of the un-namespaced attribute with the given name.
func (n *Node) Attr(local string) string {
	v, _ := n.LookupAttr(local)
	return v
}

// LookupAttr is Attr with a presence flag.
func (n *Node) LookupAttr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttrNS returns the value of a namespaced attribute whose namespace satisfies inSpace.
func (n *Node) AttrNS(local string, inSpace func(space string) bool) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space != "" && a.Name.Local == local && inSpace(a.Name.Space) {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an un-namespaced attribute. An empty value is ignored.
func (n *Node) SetAttr(local, value string) {
	if value == "" {
		return
	}
	for i, a := range n.Attrs {
		if a.Name.Space == "" && a.Name.Local == local {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}

// Append adds child as the last child of n.
func (n *Node) Append(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// Elements returns the direct children with the given local name ("" matches all).
func (n *Node) Elements(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if local == "" || c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first direct child with the given local name.
func (n *Node) First(local string) *Node {
	for _, c := range n.Children {
		if c.Name.Local == local {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants in document order. Returning false skips the
// node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Descendants returns every element below n with the given local name, in document order.
func (n *Node) Descendants(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if d.Name.Local == local {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// Ancestor returns the nearest strict ancestor satisfying match.
func (n *Node) Ancestor(match func(*Node) bool) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// Encode writes n and its descendants as indented XML.
func (n *Node) Encode(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := n.encode(enc); err != nil {
		return err
	}
	return enc.Flush()
}

func (n *Node) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name.Local}}
	for _, a := range n.Attrs {
		name := a.Name.Local
		if a.Name.Space != "" {
			prefix, ok := n.prefixFor(a.Name.Space)
			if !ok {
				continue
			}
			name = prefix + ":" + a.Name.Local
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := c.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// prefixFor maps a decoded attribute namespace back to a prefix. The decoder
// replaces declared prefixes by their URI; xmlns declarations on n or its
// ancestors give the prefix back. A space that is not a URI is an undeclared
// prefix kept by the decoder and is used as-is.
func (n *Node) prefixFor(space string) (string, bool) {
	if space == "xmlns" {
		return space, true
	}
	for cur := n; cur != nil; cur = cur.Parent {
		for _, a := range cur.Attrs {
			if a.Name.Space == "xmlns" && a.Value == space {
				return a.Name.Local, true
			}
		}
	}
	if strings.ContainsAny(space, ":/") {
		return "", false
	}
	return space, true
}

// String renders the element as XML, for diagnostics.
func (n *Node) String() string {
	var b strings.Builder
	if err := n.Encode(&b); err != nil {
		return fmt.Sprintf("<%s ...>", n.Name.Local)
	}
	return b.String()
}
