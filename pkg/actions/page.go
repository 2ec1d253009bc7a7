package actions

import (
	"bytes"
	"context"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/entrhq/scout/pkg/browser"
)

// executeAction runs one validated page action and returns its result
// value: bytes for screenshot and pdf, strings for everything else.
func (e *Engine) executeAction(ctx context.Context, sess *browser.Session, a Action) (interface{}, error) {
	page := sess.Page()

	switch a.Type {
	case ActionScreenshot:
		data, err := page.Screenshot(ctx, a.FullPage)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "screenshot failed")
		}
		return data, nil

	case ActionScroll:
		if a.X == 0 && a.Y == 0 {
			return "scrolled", nil
		}
		if err := page.MouseWheel(ctx, a.X, a.Y); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "scroll failed")
		}
		return "scrolled", nil

	case ActionMove:
		steps := defaultMoveSteps
		if a.Steps != nil {
			steps = *a.Steps
		}
		if err := page.MouseMove(ctx, a.X, a.Y, steps); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "move failed")
		}
		return "moved", nil

	case ActionMouseClick:
		opts := browser.ClickOptions{
			Button:     a.Button,
			ClickCount: defaultClickCount,
			DelayMs:    a.DelayMs,
		}
		if a.ClickCount != nil {
			opts.ClickCount = *a.ClickCount
		}
		if err := page.MouseClick(ctx, a.X, a.Y, opts); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "mouse click failed")
		}
		return "clicked", nil

	case ActionIdle:
		if err := sleep(ctx, time.Duration(a.Duration*float64(time.Second))); err != nil {
			return nil, err
		}
		return "idled", nil

	case ActionHTML:
		html, err := page.Content(ctx)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read page html")
		}
		return html, nil

	case ActionText:
		text, err := page.InnerText(ctx)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read page text")
		}
		return text, nil

	case ActionLogin:
		if err := sess.SetCredentials(ctx, a.Username, a.Password); err != nil {
			return nil, err
		}
		if a.Username == "" && a.Password == "" {
			return "credentials_cleared", nil
		}
		return "credentials_set", nil

	case ActionScrollToBottom:
		return e.scrollToBottom(ctx, page, a)

	case ActionPDF:
		return e.renderPDF(ctx, page)

	default:
		return nil, browser.Errorf(browser.CodeInvalidParameter, "unknown action type %q", a.Type)
	}
}

// scrollToBottom nudges the page down in fixed steps until the viewport
// reaches the document end or the time budget runs out, letting
// lazy-loaded content stream in between steps.
func (e *Engine) scrollToBottom(ctx context.Context, page browser.Page, a Action) (interface{}, error) {
	step := a.StepPixels
	if step == 0 {
		step = defaultScrollStepPixels
	}
	delay := a.StepDelaySec
	if delay == 0 {
		delay = defaultScrollStepDelaySec
	}
	timeout := a.TimeoutSec
	if timeout == 0 {
		timeout = defaultScrollTimeoutSec
	}

	deadline := time.Now().Add(time.Duration(timeout * float64(time.Second)))
	for {
		if _, err := page.Evaluate(ctx, "step => window.scrollBy(0, step)", step); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "scroll_to_bottom failed")
		}
		if err := sleep(ctx, time.Duration(delay*float64(time.Second))); err != nil {
			return nil, err
		}

		result, err := page.Evaluate(ctx, "() => (window.pageYOffset + window.innerHeight) >= document.body.scrollHeight", nil)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "scroll_to_bottom failed")
		}
		if atBottom, ok := result.(bool); ok && atBottom {
			break
		}
		if time.Now().After(deadline) {
			break
		}
	}
	return "scrolled_to_bottom", nil
}

// renderPDF prints the page and checks that the engine produced a
// readable document before handing it to the caller.
func (e *Engine) renderPDF(ctx context.Context, page browser.Page) (interface{}, error) {
	data, err := page.PDF(ctx)
	if err != nil {
		return nil, browser.WrapErr(browser.CodePageUnavailable, err, "pdf rendering failed")
	}

	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, browser.WrapErr(browser.CodePageUnavailable, err, "engine produced an unreadable pdf")
	}
	if pages < 1 {
		return nil, browser.Errorf(browser.CodePageUnavailable, "engine produced an empty pdf")
	}
	return data, nil
}
