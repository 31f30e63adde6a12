// Package visual is a minimal rendered-document model: element and text
// nodes with attributes and inline styles. It stands in for the browser DOM
// so snapshotting and rasterization can run and be tested without a
// rendering engine.
package visual

import (
	"strings"
)

// Element is the node interface consumed by tree walkers
type Element interface {
	IsText() bool
	Tag() string
	ID() string
	Attr(name string) string
	HasClass(name string) bool
	Style() *Style
	Text() string
	Parent() Element
	Children() []Element
}

// Attribute is a non-style attribute; the style attribute lives in Node.style
type Attribute struct {
	Key string
	Val string
}

// Node is the concrete Element
type Node struct {
	text     bool
	tag      string
	attrs    []Attribute
	style    *Style
	data     string
	parent   *Node
	children []*Node
}

var _ Element = (*Node)(nil)

// NewElement creates a detached element node
func NewElement(tag string, attrs ...Attribute) *Node {
	n := &Node{tag: strings.ToLower(tag), style: &Style{}}
	for _, a := range attrs {
		n.SetAttr(a.Key, a.Val)
	}
	return n
}

// NewText creates a detached text node
func NewText(data string) *Node {
	return &Node{text: true, data: data}
}

func (n *Node) IsText() bool { return n.text }
func (n *Node) Tag() string  { return n.tag }
func (n *Node) ID() string   { return n.Attr("id") }
func (n *Node) Text() string { return n.data }

// Style returns the inline style; nil for text nodes
func (n *Node) Style() *Style {
	if n.text {
		return nil
	}
	return n.style
}

func (n *Node) Attr(name string) string {
	if name == "style" {
		return n.style.String()
	}
	for _, a := range n.attrs {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets an attribute. Setting "style" replaces the inline style.
func (n *Node) SetAttr(name, val string) {
	name = strings.ToLower(name)
	if name == "style" {
		n.style = ParseStyle(val)
		return
	}
	for i, a := range n.attrs {
		if a.Key == name {
			n.attrs[i].Val = val
			return
		}
	}
	n.attrs = append(n.attrs, Attribute{Key: name, Val: val})
}

// Attrs returns the non-style attributes in source order
func (n *Node) Attrs() []Attribute {
	return n.attrs
}

func (n *Node) HasClass(name string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == name {
			return true
		}
	}
	return false
}

func (n *Node) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// ParentNode is Parent without the interface conversion
func (n *Node) ParentNode() *Node {
	return n.parent
}

func (n *Node) Children() []Element {
	out := make([]Element, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// ChildNodes returns the concrete children
func (n *Node) ChildNodes() []*Node {
	return n.children
}

// AppendChild attaches c as the last child, detaching it from any previous parent
func (n *Node) AppendChild(c *Node) {
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

// RemoveChild detaches c and reports whether it was a child of n
func (n *Node) RemoveChild(c *Node) bool {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return true
		}
	}
	return false
}

// Clone copies the node; deep also copies descendants. The copy is detached.
func (n *Node) Clone(deep bool) *Node {
	out := &Node{
		text:  n.text,
		tag:   n.tag,
		data:  n.data,
		style: n.style.Clone(),
	}
	if n.text {
		out.style = nil
	}
	if len(n.attrs) > 0 {
		out.attrs = make([]Attribute, len(n.attrs))
		copy(out.attrs, n.attrs)
	}
	if deep {
		for _, c := range n.children {
			out.AppendChild(c.Clone(true))
		}
	}
	return out
}

// TextContent concatenates all descendant text
func (n *Node) TextContent() string {
	if n.text {
		return n.data
	}
	var b strings.Builder
	for _, c := range n.children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// Walk visits n and its descendants depth-first, pre-order
func Walk(el Element, fn func(Element)) {
	fn(el)
	for _, c := range el.Children() {
		Walk(c, fn)
	}
}

// FindByID returns the first element in the subtree with the given id
func (n *Node) FindByID(id string) *Node {
	if !n.text && n.ID() == id {
		return n
	}
	for _, c := range n.children {
		if found := c.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every element in the subtree matching pred
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(c *Node) {
		if !c.text && pred(c) {
			out = append(out, c)
		}
		for _, gc := range c.children {
			visit(gc)
		}
	}
	visit(n)
	return out
}
