package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/stitchweb/stitch"
	"github.com/stitchweb/stitch/dom"
)

// Directive maps an attribute name to the wiring applied to every
// element carrying it. New directives register without touching the
// scan loop.
type Directive struct {
	Attr string
	Wire func(p *Page, n *html.Node) error
}

// Registry holds the directives a page interprets.
type Registry struct {
	directives []Directive
}

// Register appends a directive. Later registrations win on attribute
// name collisions only in the sense that both run; directives are
// expected to own distinct attributes.
func (r *Registry) Register(d Directive) {
	r.directives = append(r.directives, d)
}

// DefaultRegistry interprets the four request attributes.
func DefaultRegistry() *Registry {
	r := &Registry{}
	r.Register(Directive{Attr: stitch.AttrGet, Wire: wireRequest(http.MethodGet, stitch.AttrGet)})
	r.Register(Directive{Attr: stitch.AttrPost, Wire: wireRequest(http.MethodPost, stitch.AttrPost)})
	r.Register(Directive{Attr: stitch.AttrPut, Wire: wireRequest(http.MethodPut, stitch.AttrPut)})
	r.Register(Directive{Attr: stitch.AttrDelete, Wire: wireRequest(http.MethodDelete, stitch.AttrDelete)})
	return r
}

// control is the parsed fragment configuration of one element.
type control struct {
	node      *html.Node
	method    string
	url       string
	targetID  string
	self      bool
	swap      stitch.SwapStrategy
	trigger   stitch.Trigger
	indicator string
	include   []string

	gen      uint64
	cancel   func()
	debounce *pendingTimer
	loaded   bool
}

type pendingTimer struct {
	due time.Time
}

func wireRequest(method, attr string) func(p *Page, n *html.Node) error {
	return func(p *Page, n *html.Node) error {
		if _, wired := p.controls[n]; wired {
			return nil
		}

		target, _ := dom.Attr(n, stitch.AttrTarget)
		targetID, self, err := stitch.ParseTarget(target)
		if err != nil {
			return err
		}

		swapAttr, _ := dom.Attr(n, stitch.AttrSwap)
		swap, err := stitch.ParseSwap(swapAttr)
		if err != nil {
			return err
		}

		trigger := stitch.DefaultTrigger(n.Data)
		if spec, ok := dom.Attr(n, stitch.AttrTrigger); ok {
			trigger, err = stitch.ParseTrigger(spec)
			if err != nil {
				return err
			}
		}

		rawurl, _ := dom.Attr(n, attr)
		if rawurl == "" {
			return fmt.Errorf("empty %s url", attr)
		}

		ctl := &control{
			node:      n,
			method:    method,
			url:       rawurl,
			targetID:  targetID,
			self:      self,
			swap:      swap,
			trigger:   trigger,
			indicator: attrOr(n, stitch.AttrIndicator, ""),
		}
		if inc, ok := dom.Attr(n, stitch.AttrInclude); ok {
			for _, id := range strings.Fields(inc) {
				ctl.include = append(ctl.include, strings.TrimPrefix(id, "#"))
			}
		}

		p.controls[n] = ctl

		if trigger.Event == stitch.EventLoad && !ctl.loaded {
			ctl.loaded = true
			p.fire(ctl)
		}
		return nil
	}
}

func attrOr(n *html.Node, name, fallback string) string {
	if v, ok := dom.Attr(n, name); ok {
		return strings.TrimPrefix(v, "#")
	}
	return fallback
}
