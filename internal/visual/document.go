package visual

import (
	"sync"
)

// Document is a live tree with a body, guarded for concurrent mutation of
// the body's child list. Nodes reachable from the document are treated as
// immutable once attached; callers mutate detached clones only.
type Document struct {
	mu   sync.RWMutex
	root *Node
	body *Node
}

// NewDocument creates <html><body></body></html>
func NewDocument() *Document {
	root := NewElement("html")
	body := NewElement("body")
	root.AppendChild(body)
	return &Document{root: root, body: body}
}

// Body returns the body element
func (d *Document) Body() *Node {
	return d.body
}

// GetElementByID returns the first element with id, or nil
func (d *Document) GetElementByID(id string) *Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.FindByID(id)
}

// AppendToBody attaches n as the last child of body
func (d *Document) AppendToBody(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.body.AppendChild(n)
}

// Remove detaches n from its parent if it is inside the document
func (d *Document) Remove(n *Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.containsLocked(n) || n.parent == nil {
		return false
	}
	return n.parent.RemoveChild(n)
}

// Replace swaps old for n in place, or appends n to body when old is nil or detached
func (d *Document) Replace(old, n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if old != nil && old.parent != nil && d.containsLocked(old) {
		parent := old.parent
		for i, c := range parent.children {
			if c == old {
				if n.parent != nil {
					n.parent.RemoveChild(n)
				}
				parent.children[i] = n
				n.parent = parent
				old.parent = nil
				return
			}
		}
	}
	d.body.AppendChild(n)
}

// Contains reports whether n is attached to the document
func (d *Document) Contains(n *Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.containsLocked(n)
}

func (d *Document) containsLocked(n *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == d.root {
			return true
		}
	}
	return false
}

// BodyChildren returns a snapshot of body's children
func (d *Document) BodyChildren() []*Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Node, len(d.body.children))
	copy(out, d.body.children)
	return out
}
