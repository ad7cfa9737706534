// =============================================================================
// Packing List Ingest - Generic XML Tree
// =============================================================================
//
// Both XML dialects are decoded into the same shape before format detection:
//   - element and attribute names lose their namespace prefix
//   - attributes are merged into the element's property map
//   - children are ALWAYS a slice, even when there is a single child
//
// Normalizing cardinality here keeps "single object or array" checks out of
// the dialect parsers. They only ever see Child / ChildrenNamed / Value.
//
// =============================================================================

package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// =============================================================================
// NODE STRUCTURE
// =============================================================================

// Node is one decoded XML element.
type Node struct {
	// Name is the element's local name.
	Name string

	// Attrs holds attributes keyed by local name.
	Attrs map[string]string

	// Text is the trimmed character data directly inside the element.
	Text string

	// Children are the child elements in document order.
	Children []*Node
}

// =============================================================================
// DECODING
// =============================================================================

// ErrEmptyDocument is returned when the input holds no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// Parse decodes data into a tree.
func Parse(data []byte) (*Node, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one XML document from r.
// Declared non-UTF-8 encodings are converted via x/net/html/charset.
func Decode(r io.Reader) (*Node, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{
				Name:  t.Name.Local,
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, attr := range t.Attr {
				// xmlns declarations are not properties.
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				node.Attrs[attr.Name.Local] = attr.Value
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("decode xml: multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
			text = append(text, &strings.Builder{})

		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("decode xml: unexpected end element %s", t.Name.Local)
			}
			node := stack[len(stack)-1]
			node.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Attr returns the attribute value by local name.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Child returns the first child named name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child named name. The result is never nil for
// a non-nil node, so single and repeated children look the same to callers.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	out := []*Node{}
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ChildWithAttr returns the first child named elem whose attribute attr
// equals value.
func (n *Node) ChildWithAttr(elem, attr, value string) *Node {
	for _, c := range n.ChildrenNamed(elem) {
		if v, ok := c.Attrs[attr]; ok && v == value {
			return c
		}
	}
	return nil
}

// HasChild reports whether any child is named name.
func (n *Node) HasChild(name string) bool {
	return n.Child(name) != nil
}

// Value returns the element's text content, or nil when it has none.
// A node without text is never returned in place of a value.
func (n *Node) Value() *string {
	if n == nil || n.Text == "" {
		return nil
	}
	s := n.Text
	return &s
}

// InnerText concatenates the text of n and all its descendants.
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.writeText(&sb)
	return strings.TrimSpace(sb.String())
}

func (n *Node) writeText(sb *strings.Builder) {
	if n.Text != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(n.Text)
	}
	for _, c := range n.Children {
		c.writeText(sb)
	}
}
