package browser

import "context"

// Engine is the page-automation capability the orchestrator runs on.
// One engine hosts many isolated automation contexts. Implementations
// must be safe for concurrent use; the orchestrator calls them from
// many request goroutines at once.
type Engine interface {
	// LaunchContext starts one isolated automation context. A non-empty
	// ProfileDir launches a persistent context rooted at that directory;
	// an empty one launches a throwaway context.
	LaunchContext(ctx context.Context, opts LaunchOptions) (Context, error)

	// Close stops the engine and everything it still hosts.
	Close() error
}

// Context is one isolated automation context: its own storage, proxy,
// and process lifetime.
type Context interface {
	// NewPage opens a fresh tab in this context.
	NewPage(ctx context.Context) (Page, error)

	// Close tears the context down, closing all its pages.
	Close(ctx context.Context) error
}

// Page is one live tab. All operations act on its current document.
type Page interface {
	// Navigate loads url, returning once the configured barrier is reached.
	Navigate(ctx context.Context, url string, opts NavigateOptions) error

	// URL returns the page's current address.
	URL() string

	// Content returns the full serialized HTML of the current document.
	Content(ctx context.Context) (string, error)

	// InnerText returns the visible text of the document body.
	InnerText(ctx context.Context) (string, error)

	// Screenshot captures the viewport, or the whole page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// PDF renders the current document to a PDF.
	PDF(ctx context.Context) ([]byte, error)

	// SetExtraHTTPHeaders replaces the headers sent with every request
	// from this page. An empty map clears previously set headers.
	SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error

	// MouseMove moves the pointer to (x, y) over the given number of
	// intermediate steps.
	MouseMove(ctx context.Context, x, y float64, steps int) error

	// MouseClick presses and releases a mouse button at (x, y).
	MouseClick(ctx context.Context, x, y float64, opts ClickOptions) error

	// MouseWheel scrolls by the given deltas.
	MouseWheel(ctx context.Context, deltaX, deltaY float64) error

	// Evaluate runs an expression in the page, passing arg, and returns
	// its JSON-serializable result.
	Evaluate(ctx context.Context, expression string, arg interface{}) (interface{}, error)

	// QueryAll resolves a selector to its matches in document order.
	QueryAll(ctx context.Context, kind SelectorKind, value string) ([]Element, error)

	// IsClosed reports whether the page has been closed.
	IsClosed() bool

	// Close closes the tab.
	Close(ctx context.Context) error
}

// Element is a handle to one matched DOM element. Handles stay valid
// after the element is detached from the document.
type Element interface {
	// OuterHTML serializes the element.
	OuterHTML(ctx context.Context) (string, error)

	// Text returns the element's trimmed text content.
	Text(ctx context.Context) (string, error)

	// Click dispatches a click to the element.
	Click(ctx context.Context) error

	// Fill sets the element's value, dispatching input and change events.
	Fill(ctx context.Context, value string) error

	// Remove detaches the element from the document.
	Remove(ctx context.Context) error

	// Attribute reads a named attribute. Nil means the attribute is absent.
	Attribute(ctx context.Context, name string) (*string, error)
}

// SelectorKind is the selector language a query is written in.
type SelectorKind string

const (
	// SelectorCSS queries with CSS selectors
	SelectorCSS SelectorKind = "css"

	// SelectorXPath queries with XPath expressions. The wire name is
	// "xml" for compatibility with existing clients.
	SelectorXPath SelectorKind = "xml"
)

// Valid reports whether the kind is a known selector language.
func (k SelectorKind) Valid() bool {
	return k == SelectorCSS || k == SelectorXPath
}

// Proxy configures the forward proxy an automation context routes
// its traffic through. Bound at launch, immutable afterwards.
type Proxy struct {
	// Server is the proxy address, e.g. "http://proxy.example.com:3128"
	Server string `json:"server"`

	// Username and Password are optional proxy credentials
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Bypass lists hosts that connect directly, skipping the proxy
	Bypass []string `json:"bypass,omitempty"`
}

// LaunchOptions configures a new automation context.
type LaunchOptions struct {
	// ProfileDir roots persistent browser state. Empty means ephemeral.
	ProfileDir string

	// Proxy routes the context's traffic. Nil means direct connection.
	Proxy *Proxy

	// Headless controls whether a window is shown
	Headless bool

	// Viewport dimensions for new pages
	ViewportWidth  int
	ViewportHeight int
}

// Wait barrier names accepted by NavigateOptions.WaitUntil.
const (
	WaitCommit           = "commit"
	WaitDOMContentLoaded = "domcontentloaded"
	WaitLoad             = "load"
	WaitNetworkIdle      = "networkidle"
)

// ValidWaitUntil reports whether the barrier name is known.
func ValidWaitUntil(barrier string) bool {
	switch barrier {
	case WaitCommit, WaitDOMContentLoaded, WaitLoad, WaitNetworkIdle:
		return true
	}
	return false
}

// NavigateOptions configures a navigation barrier.
type NavigateOptions struct {
	// WaitUntil names the barrier to wait for. Empty means WaitCommit.
	WaitUntil string

	// TimeoutMs bounds the navigation in milliseconds. Zero uses the
	// engine default.
	TimeoutMs float64
}

// ClickOptions configures a virtual mouse click.
type ClickOptions struct {
	// Button is "left", "right", or "middle". Empty means left.
	Button string

	// ClickCount is the number of clicks. Zero means one.
	ClickCount int

	// DelayMs is the pause between press and release in milliseconds.
	DelayMs float64
}
