// Package client is a headless runtime for fragment-driven pages: it
// loads an HTML document, interprets the st-* attribute vocabulary,
// issues the configured requests, and splices the returned fragments
// into the document tree. It defines the reference semantics of the
// fragment contract and doubles as an end-to-end test harness for
// pages served by the web layer.
//
// The runtime mirrors a browser's single UI thread: all DOM mutation
// happens on the caller's goroutine, network round-trips run
// asynchronously, and responses apply during Flush in the order they
// arrive. For a given element only the most recently issued request
// may touch the DOM; superseded responses are discarded on arrival.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/stitchweb/stitch"
	"github.com/stitchweb/stitch/dom"
	"github.com/stitchweb/stitch/scope"
)

const defaultTimeout = 3 * time.Second

// Page is one loaded document plus the machinery to drive it.
type Page struct {
	base     *url.URL
	doc      *html.Node
	httpc    *http.Client
	clock    Clock
	engine   *scope.Engine
	registry *Registry

	controls map[*html.Node]*control
	inflight int
	results  chan result
}

type result struct {
	ctl    *control
	gen    uint64
	status int
	body   []byte
	err    error
}

// Option configures a Page.
type Option func(*Page)

// WithHTTPClient replaces the default client (3s timeout, cookie jar).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Page) { p.httpc = c }
}

// WithClock replaces the wall clock, usually with a ManualClock.
func WithClock(c Clock) Option {
	return func(p *Page) { p.clock = c }
}

// WithRegistry replaces the default directive registry.
func WithRegistry(r *Registry) Option {
	return func(p *Page) { p.registry = r }
}

// Open fetches a page over HTTP and wires it.
func Open(ctx context.Context, rawurl string, opts ...Option) (*Page, error) {
	p, err := newPage(rawurl, opts...)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page load failed: %s", resp.Status)
	}

	doc, err := dom.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return p, p.attach(doc)
}

// Load wires a page from markup already in hand. Requests resolve
// against baseURL.
func Load(markup, baseURL string, opts ...Option) (*Page, error) {
	p, err := newPage(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, err
	}
	return p, p.attach(doc)
}

func newPage(rawurl string, opts ...Option) (*Page, error) {
	base, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	p := &Page{
		base:     base,
		clock:    systemClock{},
		registry: DefaultRegistry(),
		controls: make(map[*html.Node]*control),
		results:  make(chan result, 64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		p.httpc = &http.Client{Timeout: defaultTimeout, Jar: jar}
	}
	return p, nil
}

func (p *Page) attach(doc *html.Node) error {
	p.doc = doc
	engine, err := scope.New(doc)
	if err != nil {
		return err
	}
	p.engine = engine
	return p.wire()
}

// wire scans the document for directive attributes, dropping controls
// whose element left the tree and wiring elements that arrived.
func (p *Page) wire() error {
	attached := make(map[*html.Node]bool)
	var wireErr error
	dom.Walk(p.doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		attached[n] = true
		for _, d := range p.registry.directives {
			if _, ok := dom.Attr(n, d.Attr); !ok {
				continue
			}
			if err := d.Wire(p, n); err != nil && wireErr == nil {
				wireErr = err
			}
		}
	})

	for n, ctl := range p.controls {
		if !attached[n] {
			if ctl.cancel != nil {
				ctl.cancel()
			}
			delete(p.controls, n)
		}
	}
	return wireErr
}

// Doc exposes the live document tree.
func (p *Page) Doc() *html.Node { return p.doc }

// Find returns the element with the given id.
func (p *Page) Find(id string) *html.Node { return dom.FindByID(p.doc, id) }

// HTML renders the current document.
func (p *Page) HTML() (string, error) { return dom.Render(p.doc) }

// Click delivers a click event to the element.
func (p *Page) Click(id string) error {
	return p.dispatch(id, stitch.EventClick)
}

// Submit delivers a submit event to the form.
func (p *Page) Submit(id string) error {
	return p.dispatch(id, stitch.EventSubmit)
}

// Reveal marks the element as scrolled into view, firing its revealed
// trigger if it has one.
func (p *Page) Reveal(id string) error {
	return p.dispatch(id, stitch.EventRevealed)
}

// SetValue types a value into a field: the value attribute updates,
// then input and change events fire.
func (p *Page) SetValue(id, value string) error {
	n := p.Find(id)
	if n == nil {
		return fmt.Errorf("no element with id %q", id)
	}
	dom.SetAttr(n, "value", value)

	if field, ok := p.engine.ModelField(n); ok {
		if err := p.engine.SetField(n, field, value); err != nil {
			return err
		}
	}

	if err := p.dispatch(id, stitch.EventInput); err != nil {
		return err
	}
	return p.dispatch(id, stitch.EventChange)
}

func (p *Page) dispatch(id, event string) error {
	n := p.Find(id)
	if n == nil {
		return fmt.Errorf("no element with id %q", id)
	}

	if err := p.engine.Dispatch(n, event); err != nil {
		return err
	}

	ctl, ok := p.controls[n]
	if !ok || ctl.trigger.Event != event {
		return nil
	}

	if ctl.trigger.Debounce > 0 {
		// Rearm: only a quiet period of the full interval fires.
		ctl.debounce = &pendingTimer{due: p.clock.Now().Add(ctl.trigger.Debounce)}
		return nil
	}

	p.fire(ctl)
	return nil
}

// Advance moves a manual clock forward and fires debounce timers that
// came due, in due order.
func (p *Page) Advance(d time.Duration) error {
	if mc, ok := p.clock.(*ManualClock); ok {
		mc.advance(d)
	}
	return p.Tick()
}

// Tick fires debounce timers due per the page clock.
func (p *Page) Tick() error {
	now := p.clock.Now()

	var due []*control
	for _, ctl := range p.controls {
		if ctl.debounce != nil && !ctl.debounce.due.After(now) {
			due = append(due, ctl)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].debounce.due.Before(due[j].debounce.due)
	})

	for _, ctl := range due {
		ctl.debounce = nil
		p.fire(ctl)
	}
	return nil
}

// Flush applies every in-flight response and returns once the page is
// quiet. Failed and superseded exchanges resolve to no DOM change.
func (p *Page) Flush() error {
	var firstErr error
	for p.inflight > 0 {
		r := <-p.results
		p.inflight--
		if err := p.apply(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// fire issues the element's request, cancelling any in-flight request
// the same element issued earlier (last-request-wins).
func (p *Page) fire(ctl *control) {
	if ctl.cancel != nil {
		ctl.cancel()
	}
	ctl.gen++
	gen := ctl.gen

	req, err := p.buildRequest(ctl)
	if err != nil {
		p.inflight++
		p.results <- result{ctl: ctl, gen: gen, err: err}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctl.cancel = cancel
	req = req.WithContext(ctx)

	p.showIndicator(ctl)

	p.inflight++
	go func() {
		resp, err := p.httpc.Do(req)
		if err != nil {
			p.results <- result{ctl: ctl, gen: gen, err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		p.results <- result{ctl: ctl, gen: gen, status: resp.StatusCode, body: body, err: err}
	}()
}

func (p *Page) buildRequest(ctl *control) (*http.Request, error) {
	target, err := p.base.Parse(ctl.url)
	if err != nil {
		return nil, err
	}

	params := p.collectParams(ctl)

	var req *http.Request
	if ctl.method == http.MethodGet {
		q := target.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		target.RawQuery = q.Encode()
		req, err = http.NewRequest(ctl.method, target.String(), nil)
	} else {
		req, err = http.NewRequest(ctl.method, target.String(), strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set(stitch.HeaderRequest, "true")
	if id, ok := dom.Attr(ctl.node, "id"); ok {
		req.Header.Set(stitch.HeaderTrigger, id)
	}
	if ctl.self {
		req.Header.Set(stitch.HeaderTarget, stitch.TargetSelf)
	} else {
		req.Header.Set(stitch.HeaderTarget, ctl.targetID)
	}
	return req, nil
}

// collectParams serializes named form fields: the element's own
// subtree when it is a form, the element itself when it is a named
// field, plus anything referenced by st-include. A hidden csrf_token
// input travels like any other named field.
func (p *Page) collectParams(ctl *control) url.Values {
	params := url.Values{}

	add := func(n *html.Node) {
		switch n.Data {
		case "form":
			dom.Walk(n, func(c *html.Node) {
				if c.Type == html.ElementNode && c != n {
					addField(params, c)
				}
			})
		default:
			addField(params, n)
		}
	}

	add(ctl.node)
	for _, id := range ctl.include {
		if n := dom.FindByID(p.doc, id); n != nil {
			add(n)
		}
	}
	return params
}

func addField(params url.Values, n *html.Node) {
	name, ok := dom.Attr(n, "name")
	if !ok || name == "" {
		return
	}
	switch n.Data {
	case "input":
		typ, _ := dom.Attr(n, "type")
		if typ == "checkbox" || typ == "radio" {
			if _, checked := dom.Attr(n, "checked"); !checked {
				return
			}
			v, ok := dom.Attr(n, "value")
			if !ok {
				v = "on"
			}
			params.Add(name, v)
			return
		}
		v, _ := dom.Attr(n, "value")
		params.Set(name, v)
	case "textarea":
		params.Set(name, dom.Text(n))
	case "select":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.Data != "option" {
				continue
			}
			if _, selected := dom.Attr(c, "selected"); selected {
				if v, ok := dom.Attr(c, "value"); ok {
					params.Set(name, v)
				} else {
					params.Set(name, dom.Text(c))
				}
				return
			}
		}
	}
}

// apply splices one response into the document, or drops it: stale
// generations and failures leave the DOM untouched.
func (p *Page) apply(r result) error {
	if r.gen != r.ctl.gen {
		return nil // superseded, deliberate discard
	}
	r.ctl.cancel = nil

	if r.err != nil || r.status < 200 || r.status > 299 {
		// Terminal no-op for this interaction: indicator stays
		// visible as the only signal.
		return nil
	}

	dst := r.ctl.node
	if !r.ctl.self {
		dst = dom.FindByID(p.doc, r.ctl.targetID)
		if dst == nil {
			return fmt.Errorf("swap target #%s not in document", r.ctl.targetID)
		}
	}

	frag, err := dom.ParseFragmentString(string(bytes.TrimSpace(r.body)))
	if err != nil {
		return err
	}

	if err := dom.Swap(dst, frag, r.ctl.swap); err != nil {
		return err
	}

	p.hideIndicator(r.ctl)

	if err := p.wire(); err != nil {
		return err
	}
	if err := p.engine.Rescan(); err != nil {
		return err
	}
	return p.engine.Render()
}

func (p *Page) showIndicator(ctl *control) {
	if ctl.indicator == "" {
		return
	}
	if n := dom.FindByID(p.doc, ctl.indicator); n != nil {
		dom.SetHidden(n, false)
	}
}

func (p *Page) hideIndicator(ctl *control) {
	if ctl.indicator == "" {
		return
	}
	if n := dom.FindByID(p.doc, ctl.indicator); n != nil {
		dom.SetHidden(n, true)
	}
}
