package visual

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true, "wbr": true,
}

var rawTextTags = map[string]bool{"style": true, "script": true}

// ParseFragment parses an HTML fragment in body context. Comments and
// whitespace-only text between elements are dropped.
func ParseFragment(r io.Reader) ([]*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(r, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	out := make([]*Node, 0, len(parsed))
	for _, p := range parsed {
		if n := convert(p); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// ParseElement parses a fragment and returns its first element
func ParseElement(r io.Reader) (*Node, error) {
	nodes, err := ParseFragment(r)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if !n.IsText() {
			return n, nil
		}
	}
	return nil, fmt.Errorf("fragment has no element")
}

func convert(h *html.Node) *Node {
	switch h.Type {
	case html.TextNode:
		if strings.TrimSpace(h.Data) == "" {
			return nil
		}
		return NewText(h.Data)
	case html.ElementNode:
		n := NewElement(h.Data)
		for _, a := range h.Attr {
			n.SetAttr(a.Key, a.Val)
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if rawTextTags[n.tag] && c.Type == html.TextNode {
				n.AppendChild(NewText(c.Data))
				continue
			}
			if child := convert(c); child != nil {
				n.AppendChild(child)
			}
		}
		return n
	}
	return nil
}

// RenderHTML serializes the subtree rooted at n
func RenderHTML(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	render(bw, n, false)
	return bw.Flush()
}

// OuterHTML is RenderHTML into a string
func OuterHTML(n *Node) string {
	var b strings.Builder
	_ = RenderHTML(&b, n)
	return b.String()
}

func render(w *bufio.Writer, n *Node, raw bool) {
	if n.text {
		if raw {
			w.WriteString(n.data)
		} else {
			w.WriteString(html.EscapeString(n.data))
		}
		return
	}

	w.WriteByte('<')
	w.WriteString(n.tag)
	for _, a := range n.attrs {
		w.WriteByte(' ')
		w.WriteString(a.Key)
		w.WriteString(`="`)
		w.WriteString(html.EscapeString(a.Val))
		w.WriteByte('"')
	}
	if n.style.Len() > 0 {
		w.WriteString(` style="`)
		w.WriteString(html.EscapeString(n.style.String()))
		w.WriteByte('"')
	}
	w.WriteByte('>')
	if voidTags[n.tag] {
		return
	}
	for _, c := range n.children {
		render(w, c, rawTextTags[n.tag])
	}
	w.WriteString("</")
	w.WriteString(n.tag)
	w.WriteByte('>')
}
