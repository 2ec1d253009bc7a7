package enginetest

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/scout/pkg/browser"
)

// Navigation records one Navigate call.
type Navigation struct {
	URL  string
	Opts browser.NavigateOptions
}

// MouseEvent records one mouse call. Kind is "move", "click" or
// "wheel"; only the fields for that kind are set.
type MouseEvent struct {
	Kind   string
	X, Y   float64
	Steps  int
	Click  browser.ClickOptions
	DeltaX float64
	DeltaY float64
}

// Eval records one Evaluate call.
type Eval struct {
	Expression string
	Arg        interface{}
}

// Query records one QueryAll call.
type Query struct {
	Kind  browser.SelectorKind
	Value string
}

// Page is a fake browser.Page. Tests seed it with content and
// elements, run code against it, and assert on the recorded calls.
type Page struct {
	mu          sync.Mutex
	url         string
	html        string
	text        string
	headers     map[string]string
	closed      bool
	navigations []Navigation
	mouse       []MouseEvent
	evals       []Eval
	queries     []Query
	elements    map[string][]*Element

	// NavigateErr, when set, makes every Navigate call fail with it
	NavigateErr error

	// EvaluateFunc, when set, handles Evaluate calls. Otherwise
	// Evaluate records the call and returns nil.
	EvaluateFunc func(expression string, arg interface{}) (interface{}, error)

	// ScreenshotData and PDFData override the bytes returned by
	// Screenshot and PDF.
	ScreenshotData []byte
	PDFData        []byte
}

// NewPage creates an empty fake page.
func NewPage() *Page {
	return &Page{
		headers:  make(map[string]string),
		elements: make(map[string][]*Element),
	}
}

// SetURL seeds the page's current URL.
func (p *Page) SetURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = u
}

// SetHTML seeds the content returned by Content.
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// SetText seeds the text returned by InnerText.
func (p *Page) SetText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
}

// SetElements seeds the elements QueryAll returns for a selector
// value, regardless of selector kind.
func (p *Page) SetElements(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = els
}

func (p *Page) Navigate(ctx context.Context, url string, opts browser.NavigateOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("enginetest: page is closed")
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.navigations = append(p.navigations, Navigation{URL: url, Opts: opts})
	p.url = url
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errors.New("enginetest: page is closed")
	}
	return p.html, nil
}

func (p *Page) InnerText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errors.New("enginetest: page is closed")
	}
	return p.text, nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("enginetest: page is closed")
	}
	if p.ScreenshotData != nil {
		return p.ScreenshotData, nil
	}
	return []byte("enginetest-screenshot"), nil
}

func (p *Page) PDF(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("enginetest: page is closed")
	}
	if p.PDFData != nil {
		return p.PDFData, nil
	}
	return MinimalPDF(1), nil
}

func (p *Page) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("enginetest: page is closed")
	}
	p.headers = make(map[string]string, len(headers))
	for k, v := range headers {
		p.headers[k] = v
	}
	return nil
}

func (p *Page) MouseMove(ctx context.Context, x, y float64, steps int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("enginetest: page is closed")
	}
	p.mouse = append(p.mouse, MouseEvent{Kind: "move", X: x, Y: y, Steps: steps})
	return nil
}

func (p *Page) MouseClick(ctx context.Context, x, y float64, opts browser.ClickOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("enginetest: page is closed")
	}
	p.mouse = append(p.mouse, MouseEvent{Kind: "click", X: x, Y: y, Click: opts})
	return nil
}

func (p *Page) MouseWheel(ctx context.Context, deltaX, deltaY float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("enginetest: page is closed")
	}
	p.mouse = append(p.mouse, MouseEvent{Kind: "wheel", DeltaX: deltaX, DeltaY: deltaY})
	return nil
}

func (p *Page) Evaluate(ctx context.Context, expression string, arg interface{}) (interface{}, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("enginetest: page is closed")
	}
	p.evals = append(p.evals, Eval{Expression: expression, Arg: arg})
	fn := p.EvaluateFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(expression, arg)
	}
	return nil, nil
}

func (p *Page) QueryAll(ctx context.Context, kind browser.SelectorKind, value string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("enginetest: page is closed")
	}

	p.queries = append(p.queries, Query{Kind: kind, Value: value})
	els := p.elements[value]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Navigations returns every Navigate call so far.
func (p *Page) Navigations() []Navigation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Navigation, len(p.navigations))
	copy(out, p.navigations)
	return out
}

// MouseEvents returns every mouse call so far.
func (p *Page) MouseEvents() []MouseEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MouseEvent, len(p.mouse))
	copy(out, p.mouse)
	return out
}

// Evals returns every Evaluate call so far.
func (p *Page) Evals() []Eval {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Eval, len(p.evals))
	copy(out, p.evals)
	return out
}

// Queries returns every QueryAll call so far.
func (p *Page) Queries() []Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Query, len(p.queries))
	copy(out, p.queries)
	return out
}

// Headers returns the headers from the last SetExtraHTTPHeaders call.
func (p *Page) Headers() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.headers))
	for k, v := range p.headers {
		out[k] = v
	}
	return out
}

// Element is a fake browser.Element.
type Element struct {
	mu      sync.Mutex
	html    string
	text    string
	attrs   map[string]string
	clicks  int
	fills   []string
	removed bool

	// ClickErr and FillErr, when set, make the matching call fail
	ClickErr error
	FillErr  error
}

// NewElement creates a fake element with the given outer HTML and
// trimmed text.
func NewElement(outerHTML, text string) *Element {
	return &Element{html: outerHTML, text: text, attrs: make(map[string]string)}
}

// WithAttr sets an attribute and returns the element for chaining.
func (e *Element) WithAttr(name, value string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
	return e
}

func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.html, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *Element) Click(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.clicks++
	return nil
}

func (e *Element) Fill(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FillErr != nil {
		return e.FillErr
	}
	e.fills = append(e.fills, value)
	return nil
}

func (e *Element) Remove(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = true
	return nil
}

func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// Clicks returns how many times Click succeeded.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Fills returns every value passed to Fill.
func (e *Element) Fills() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.fills))
	copy(out, e.fills)
	return out
}

// Removed reports whether Remove was called.
func (e *Element) Removed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed
}
