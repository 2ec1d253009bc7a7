package browser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/scout/pkg/logging"
)

// EngineOptions configures the Playwright-backed engine.
type EngineOptions struct {
	// Headless controls whether launched browsers show a window
	Headless bool

	// Viewport dimensions applied to every context
	ViewportWidth  int
	ViewportHeight int

	// DefaultTimeoutMs is the per-page default timeout for engine
	// operations, in milliseconds
	DefaultTimeoutMs float64

	// Logger receives engine lifecycle events. Nil disables logging.
	Logger *logging.Logger
}

// playwrightEngine implements Engine on headless Chromium via the
// Playwright driver.
type playwrightEngine struct {
	pw   *playwright.Playwright
	opts EngineOptions
}

// NewPlaywrightEngine installs the Playwright driver if needed and
// starts it. Driver output is discarded so it cannot interleave with
// daemon logs.
func NewPlaywrightEngine(opts EngineOptions) (Engine, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.Infof("playwright driver started")
	}

	return &playwrightEngine{pw: pw, opts: opts}, nil
}

// LaunchContext launches one isolated Chromium context. Profile-backed
// instances use a persistent context rooted at the profile directory;
// ephemeral ones use a dedicated browser process with a fresh context.
func (e *playwrightEngine) LaunchContext(ctx context.Context, opts LaunchOptions) (Context, error) {
	viewport := &playwright.Size{
		Width:  opts.ViewportWidth,
		Height: opts.ViewportHeight,
	}
	proxy := toPlaywrightProxy(opts.Proxy)

	if opts.ProfileDir != "" {
		bc, err := e.pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: viewport,
			Proxy:    proxy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch persistent context at %s: %w", opts.ProfileDir, err)
		}
		return &pwContext{engine: e, ctx: bc}, nil
	}

	browser, err := e.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Proxy:    proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bc, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: viewport,
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	return &pwContext{engine: e, ctx: bc, browser: browser}, nil
}

// Close stops the Playwright driver and every browser it hosts.
func (e *playwrightEngine) Close() error {
	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

func toPlaywrightProxy(p *Proxy) *playwright.Proxy {
	if p == nil {
		return nil
	}
	out := &playwright.Proxy{Server: p.Server}
	if p.Username != "" {
		out.Username = playwright.String(p.Username)
	}
	if p.Password != "" {
		out.Password = playwright.String(p.Password)
	}
	if len(p.Bypass) > 0 {
		out.Bypass = playwright.String(strings.Join(p.Bypass, ","))
	}
	return out
}

// pwContext wraps a Playwright browser context. For ephemeral launches
// it also owns the backing browser process.
type pwContext struct {
	engine  *playwrightEngine
	ctx     playwright.BrowserContext
	browser playwright.Browser
}

func (c *pwContext) NewPage(ctx context.Context) (Page, error) {
	page, err := c.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if c.engine.opts.DefaultTimeoutMs > 0 {
		page.SetDefaultTimeout(c.engine.opts.DefaultTimeoutMs)
	}
	return &pwPage{page: page}, nil
}

func (c *pwContext) Close(ctx context.Context) error {
	err := c.ctx.Close()
	if c.browser != nil {
		if berr := c.browser.Close(); err == nil {
			err = berr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to close context: %w", err)
	}
	return nil
}

// pwPage wraps a Playwright page.
type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}

	barrier := opts.WaitUntil
	if barrier == "" {
		barrier = WaitCommit
	}
	state := playwright.WaitUntilState(barrier)
	gotoOpts.WaitUntil = &state

	if opts.TimeoutMs > 0 {
		gotoOpts.Timeout = playwright.Float(opts.TimeoutMs)
	}

	if _, err := p.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Content(ctx context.Context) (string, error) {
	return p.page.Content()
}

func (p *pwPage) InnerText(ctx context.Context) (string, error) {
	return p.page.InnerText("body")
}

func (p *pwPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
	})
}

func (p *pwPage) PDF(ctx context.Context) ([]byte, error) {
	return p.page.PDF(playwright.PagePdfOptions{})
}

func (p *pwPage) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	return p.page.SetExtraHTTPHeaders(headers)
}

func (p *pwPage) MouseMove(ctx context.Context, x, y float64, steps int) error {
	return p.page.Mouse().Move(x, y, playwright.MouseMoveOptions{
		Steps: playwright.Int(steps),
	})
}

func (p *pwPage) MouseClick(ctx context.Context, x, y float64, opts ClickOptions) error {
	clickOpts := playwright.MouseClickOptions{}

	switch opts.Button {
	case "", "left":
		clickOpts.Button = playwright.MouseButtonLeft
	case "right":
		clickOpts.Button = playwright.MouseButtonRight
	case "middle":
		clickOpts.Button = playwright.MouseButtonMiddle
	default:
		return fmt.Errorf("unknown mouse button %q", opts.Button)
	}

	if opts.ClickCount > 0 {
		clickOpts.ClickCount = playwright.Int(opts.ClickCount)
	}
	if opts.DelayMs > 0 {
		clickOpts.Delay = playwright.Float(opts.DelayMs)
	}

	return p.page.Mouse().Click(x, y, clickOpts)
}

func (p *pwPage) MouseWheel(ctx context.Context, deltaX, deltaY float64) error {
	return p.page.Mouse().Wheel(deltaX, deltaY)
}

func (p *pwPage) Evaluate(ctx context.Context, expression string, arg interface{}) (interface{}, error) {
	if arg == nil {
		return p.page.Evaluate(expression)
	}
	return p.page.Evaluate(expression, arg)
}

func (p *pwPage) QueryAll(ctx context.Context, kind SelectorKind, value string) ([]Element, error) {
	selector := value
	if kind == SelectorXPath {
		selector = "xpath=" + value
	}

	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", value, err)
	}

	elements := make([]Element, len(handles))
	for i, h := range handles {
		elements[i] = &pwElement{handle: h}
	}
	return elements, nil
}

func (p *pwPage) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *pwPage) Close(ctx context.Context) error {
	return p.page.Close()
}

// pwElement wraps a Playwright element handle. Operations evaluate in
// the page so they keep working on detached elements, matching the
// descriptor snapshot rules.
type pwElement struct {
	handle playwright.ElementHandle
}

func (e *pwElement) OuterHTML(ctx context.Context) (string, error) {
	result, err := e.handle.Evaluate("el => el.outerHTML")
	if err != nil {
		return "", err
	}
	s, _ := result.(string)
	return s, nil
}

func (e *pwElement) Text(ctx context.Context) (string, error) {
	result, err := e.handle.Evaluate("el => (el.textContent || '').trim()")
	if err != nil {
		return "", err
	}
	s, _ := result.(string)
	return s, nil
}

func (e *pwElement) Click(ctx context.Context) error {
	// Plain DOM click: no actionability wait, works on obscured elements
	_, err := e.handle.Evaluate("el => el.click()")
	return err
}

func (e *pwElement) Fill(ctx context.Context, value string) error {
	_, err := e.handle.Evaluate(`(el, value) => {
		el.focus();
		el.value = '';
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	return err
}

func (e *pwElement) Remove(ctx context.Context) error {
	_, err := e.handle.Evaluate("el => el.remove()")
	return err
}

func (e *pwElement) Attribute(ctx context.Context, name string) (*string, error) {
	result, err := e.handle.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	s, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("attribute %q: unexpected result type %T", name, result)
	}
	return &s, nil
}
