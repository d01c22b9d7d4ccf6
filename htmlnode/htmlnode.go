// Package htmlnode implements webchat.Element on a parsed HTML tree, for
// hosts that assemble pages server-side and for tests that want a real DOM
// instead of a string.
package htmlnode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
)

// Document is a parsed HTML document. Nodes handed out by a Document share
// its lock, so concurrent portal renders into one page are serialized.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmlnode: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
	if n == nil {
		return nil
	}
	return &Node{doc: d, n: n}
}

// Render writes the document.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String renders the document, or returns "" on error.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Component renders the document as a templ component.
func (d *Document) Component() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return d.Render(w)
	})
}

// Node is one element of a Document.
type Node struct {
	doc *Document
	n   *html.Node
}

// ReplaceChildren renders content and makes it the node's only children.
// The node keeps its position and attributes.
func (n *Node) ReplaceChildren(ctx context.Context, content templ.Component) error {
	var buf bytes.Buffer
	if err := content.Render(ctx, &buf); err != nil {
		return err
	}
	nodes, err := html.ParseFragment(&buf, n.n)
	if err != nil {
		return fmt.Errorf("htmlnode: parse fragment: %w", err)
	}

	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	for c := n.n.FirstChild; c != nil; {
		next := c.NextSibling
		n.n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.n.AppendChild(c)
	}
	return nil
}

// InnerHTML renders the node's children.
func (n *Node) InnerHTML() string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	var sb strings.Builder
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return ""
		}
	}
	return sb.String()
}

// AddClass adds name to the class attribute.
func (n *Node) AddClass(name string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()

	classes := strings.Fields(attr(n.n, "class"))
	if slices.Contains(classes, name) {
		return
	}
	setAttr(n.n, "class", strings.Join(append(classes, name), " "))
}

// RemoveClass removes name from the class attribute.
func (n *Node) RemoveClass(name string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()

	classes := slices.DeleteFunc(strings.Fields(attr(n.n, "class")), func(c string) bool { return c == name })
	setAttr(n.n, "class", strings.Join(classes, " "))
}

// HasClass reports whether name is in the class attribute.
func (n *Node) HasClass(name string) bool {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return slices.Contains(strings.Fields(attr(n.n, "class")), name)
}

// Attr returns the value of attribute key, or "".
func (n *Node) Attr(key string) string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return attr(n.n, key)
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
