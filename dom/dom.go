// Package dom wraps golang.org/x/net/html with the tree operations the
// fragment runtime and the scope engine need: id lookup, attribute
// access, rendering, and the swap strategies.
package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseString reads a full HTML document from a string.
func ParseString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// ParseFragmentString parses markup as it would appear inside a body
// element. The returned nodes are detached.
func ParseFragmentString(s string) ([]*html.Node, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(s), ctx)
}

// Walk visits n and its descendants in document order.
func Walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// FindByID returns the element with the given id, or nil.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) {
		if found != nil || n.Type != html.ElementNode {
			return
		}
		if v, ok := Attr(n, "id"); ok && v == id {
			found = n
		}
	})
	return found
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute.
func SetAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes the named attribute if present.
func RemoveAttr(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// SetHidden toggles the hidden attribute.
func SetHidden(n *html.Node, hidden bool) {
	if hidden {
		SetAttr(n, "hidden", "")
	} else {
		RemoveAttr(n, "hidden")
	}
}

// IsHidden reports whether the element carries the hidden attribute.
func IsHidden(n *html.Node) bool {
	_, ok := Attr(n, "hidden")
	return ok
}

// Render serializes a node to markup.
func Render(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderChildren serializes the children of a node, i.e. its innerHTML.
func RenderChildren(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Text returns the concatenated text content of a subtree.
func Text(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

// SetText replaces a node's children with a single text node.
func SetText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
