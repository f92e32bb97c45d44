// Package scope implements the client-side reactive state layer:
// containers declared with st-scope hold small pieces of transient UI
// state, and descendant bindings (st-text, st-show, st-bind-*,
// st-model, st-on-*) re-render synchronously whenever that state
// mutates. Expressions compile to a small operator tree evaluated
// through a registry, so new operators need no dispatcher changes.
package scope

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/stitchweb/stitch"
	"github.com/stitchweb/stitch/dom"
)

// State resolves field references during expression evaluation.
type State interface {
	Lookup(path string) (any, bool)
}

// Scope is one declared state container. Lookup falls through to the
// lexically enclosing scope; siblings never share state.
type Scope struct {
	parent *Scope
	node   *html.Node
	state  map[string]any
}

// Lookup resolves a dot-notation path against this scope chain.
func (s *Scope) Lookup(path string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		head := path
		if i := strings.IndexByte(path, '.'); i >= 0 {
			head = path[:i]
		}
		if _, declared := cur.state[head]; declared {
			return resolveDotNotation(cur.state, path)
		}
	}
	return nil, false
}

// set assigns a field in the nearest scope declaring it, falling back
// to this scope when no enclosing scope declares the field.
func (s *Scope) set(field string, value any) {
	for cur := s; cur != nil; cur = cur.parent {
		if _, declared := cur.state[field]; declared {
			cur.state[field] = value
			return
		}
	}
	s.state[field] = value
}

// Engine wires scopes and bindings over a document tree and re-renders
// bound output on every mutation.
type Engine struct {
	root   *html.Node
	scopes map[*html.Node]*Scope
}

// New scans the tree for st-scope declarations and renders the initial
// binding state.
func New(root *html.Node) (*Engine, error) {
	e := &Engine{
		root:   root,
		scopes: make(map[*html.Node]*Scope),
	}
	if err := e.Rescan(); err != nil {
		return nil, err
	}
	return e, e.Render()
}

// Rescan rebuilds the scope table after the tree changed. Scopes whose
// container is still attached keep their state; containers swapped in
// get fresh state from their declaration; state of removed containers
// is discarded with them.
func (e *Engine) Rescan() error {
	fresh := make(map[*html.Node]*Scope)
	var scanErr error

	var scan func(n *html.Node, enclosing *Scope)
	scan = func(n *html.Node, enclosing *Scope) {
		current := enclosing
		if n.Type == html.ElementNode {
			if decl, ok := dom.Attr(n, stitch.AttrScope); ok {
				if existing, kept := e.scopes[n]; kept {
					existing.parent = enclosing
					current = existing
				} else {
					state := make(map[string]any)
					if err := json.Unmarshal([]byte(decl), &state); err != nil && scanErr == nil {
						scanErr = fmt.Errorf("invalid st-scope declaration %q: %w", decl, err)
					}
					current = &Scope{parent: enclosing, node: n, state: state}
				}
				fresh[n] = current
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			scan(c, current)
		}
	}
	scan(e.root, nil)

	e.scopes = fresh
	return scanErr
}

// scopeFor returns the nearest enclosing scope of a node, or nil.
func (e *Engine) scopeFor(n *html.Node) *Scope {
	for cur := n; cur != nil; cur = cur.Parent {
		if s, ok := e.scopes[cur]; ok {
			return s
		}
	}
	return nil
}

// Dispatch runs the element's st-on-<event> statements, if any, and
// re-renders. Mutation and re-render complete before Dispatch returns.
func (e *Engine) Dispatch(n *html.Node, event string) error {
	src, ok := dom.Attr(n, stitch.PrefixOn+event)
	if !ok {
		return nil
	}
	s := e.scopeFor(n)
	if s == nil {
		return fmt.Errorf("st-on-%s outside any st-scope", event)
	}

	stmts, err := ParseStatements(src)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		value, err := Eval(s, stmt.Expr)
		if err != nil {
			return err
		}
		s.set(stmt.Field, value)
	}
	return e.Render()
}

// SetField mutates a field in the scope enclosing n and re-renders.
// The runtime uses it for st-model input bindings.
func (e *Engine) SetField(n *html.Node, field string, value any) error {
	s := e.scopeFor(n)
	if s == nil {
		return fmt.Errorf("no scope encloses element")
	}
	s.set(field, value)
	return e.Render()
}

// ModelField returns the st-model field of an element.
func (e *Engine) ModelField(n *html.Node) (string, bool) {
	return dom.Attr(n, stitch.AttrModel)
}

// Render re-evaluates every binding in the document. Bindings outside
// any scope are left alone.
func (e *Engine) Render() error {
	var renderErr error
	dom.Walk(e.root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		s := e.scopeFor(n)
		if s == nil {
			return
		}
		if err := e.renderNode(n, s); err != nil && renderErr == nil {
			renderErr = err
		}
	})
	return renderErr
}

func (e *Engine) renderNode(n *html.Node, s *Scope) error {
	if src, ok := dom.Attr(n, stitch.AttrShow); ok {
		v, err := e.evalAttr(s, src)
		if err != nil {
			return err
		}
		dom.SetHidden(n, !Truthy(v))
	}

	if src, ok := dom.Attr(n, stitch.AttrText); ok {
		v, err := e.evalAttr(s, src)
		if err != nil {
			return err
		}
		dom.SetText(n, stringify(v))
	}

	if field, ok := dom.Attr(n, stitch.AttrModel); ok {
		if v, found := s.Lookup(field); found {
			dom.SetAttr(n, "value", stringify(v))
		}
	}

	for _, attr := range n.Attr {
		bound, ok := strings.CutPrefix(attr.Key, stitch.PrefixBind)
		if !ok {
			continue
		}
		v, err := e.evalAttr(s, attr.Val)
		if err != nil {
			return err
		}
		if b, isBool := v.(bool); isBool {
			if b {
				dom.SetAttr(n, bound, "")
			} else {
				dom.RemoveAttr(n, bound)
			}
			continue
		}
		dom.SetAttr(n, bound, stringify(v))
	}

	return nil
}

func (e *Engine) evalAttr(s *Scope, src string) (any, error) {
	expr, err := ParseExpr(src)
	if err != nil {
		return nil, err
	}
	return Eval(s, expr)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}
