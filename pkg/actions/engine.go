// Package actions interprets declarative pipelines against a live
// session page: an optional navigation followed by ordered page
// actions, or a set of named selector descriptors. The engine runs
// steps strictly in order and reports partial progress when a step
// fails.
//
// Callers must hold the session's execution slot for the duration of
// the call; the engine itself does not serialize.
package actions

import (
	"context"
	"time"

	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/logging"
)

// Options configures an Engine.
type Options struct {
	// DefaultNavigationTimeoutMs bounds navigations that carry no
	// explicit timeout
	DefaultNavigationTimeoutMs float64

	// Logger receives pipeline events. Nil disables logging.
	Logger *logging.Logger
}

// Engine executes pipelines and selector queries.
type Engine struct {
	opts Options
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Pipeline is one /interact invocation: optional navigation, then the
// ordered action list.
type Pipeline struct {
	URL       string
	WaitUntil string
	IdleSec   float64
	TimeoutMs float64
	Actions   []Action
}

// PipelineResult aggregates per-step outputs. When a step fails,
// Results holds the outputs of the steps that completed, FailedStep
// the index of the failing one, and StepErr its error; the steps after
// it never ran.
type PipelineResult struct {
	Results    []interface{}
	FailedStep *int
	StepErr    error
}

// Run validates and executes one pipeline. Validation and navigation
// failures reject the whole request; a step failure instead surfaces
// through the result so the caller still sees partial progress.
func (e *Engine) Run(ctx context.Context, sess *browser.Session, p Pipeline) (*PipelineResult, error) {
	for i, a := range p.Actions {
		if err := a.Validate(); err != nil {
			return nil, browser.WrapErr(browser.CodeInvalidParameter, err, "action %d", i)
		}
	}

	if err := e.navigate(ctx, sess, p.URL, p.WaitUntil, p.IdleSec, p.TimeoutMs); err != nil {
		return nil, err
	}

	result := &PipelineResult{Results: make([]interface{}, 0, len(p.Actions))}
	for i, a := range p.Actions {
		out, err := e.executeAction(ctx, sess, a)
		if err != nil {
			err = goneIfClosed(sess, err)
			idx := i
			result.FailedStep = &idx
			result.StepErr = err
			if e.opts.Logger != nil {
				e.opts.Logger.Warnf("pipeline step %d (%s) failed: %v", i, a.Type, err)
			}
			return result, nil
		}
		result.Results = append(result.Results, out)
	}
	return result, nil
}

// Query is one /selectors invocation: optional navigation, then the
// independent descriptors.
type Query struct {
	URL       string
	WaitUntil string
	IdleSec   float64
	TimeoutMs float64
	Selectors []Selector
}

// RunSelectors validates and executes one selector query. Descriptors
// run independently: one failing is reported under its name without
// touching its siblings. Only navigation failure aborts the request.
func (e *Engine) RunSelectors(ctx context.Context, sess *browser.Session, q Query) (map[string]interface{}, error) {
	for _, sel := range q.Selectors {
		if err := sel.Validate(); err != nil {
			return nil, err
		}
	}

	if err := e.navigate(ctx, sess, q.URL, q.WaitUntil, q.IdleSec, q.TimeoutMs); err != nil {
		return nil, err
	}

	results := make(map[string]interface{}, len(q.Selectors))
	for _, sel := range q.Selectors {
		out, err := e.runSelector(ctx, sess.Page(), sel)
		if err != nil {
			err = goneIfClosed(sess, err)
			results[sel.Name] = descriptorError(err)
			if e.opts.Logger != nil {
				e.opts.Logger.Warnf("selector %q failed: %v", sel.Name, err)
			}
			continue
		}
		results[sel.Name] = out
	}
	return results, nil
}

// ContentRequest is one /content invocation.
type ContentRequest struct {
	URL        string
	WaitUntil  string
	IdleSec    float64
	TimeoutMs  float64
	ReturnHTML bool
}

// Content optionally navigates, then returns the page's serialized DOM
// or its visible text.
func (e *Engine) Content(ctx context.Context, sess *browser.Session, req ContentRequest) (string, error) {
	if err := e.navigate(ctx, sess, req.URL, req.WaitUntil, req.IdleSec, req.TimeoutMs); err != nil {
		return "", err
	}

	if req.ReturnHTML {
		html, err := sess.Page().Content(ctx)
		if err != nil {
			return "", goneIfClosed(sess, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read page html"))
		}
		return html, nil
	}

	text, err := sess.Page().InnerText(ctx)
	if err != nil {
		return "", goneIfClosed(sess, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read page text"))
	}
	return text, nil
}

// navigate drives the session to url when one is given, honoring the
// wait barrier and the optional idle delay after it. An empty url is
// a no-op: the pipeline runs against the page's current state.
func (e *Engine) navigate(ctx context.Context, sess *browser.Session, url, waitUntil string, idleSec, timeoutMs float64) error {
	if url == "" {
		return nil
	}

	if waitUntil == "" {
		waitUntil = browser.WaitCommit
	}
	if !browser.ValidWaitUntil(waitUntil) {
		return browser.Errorf(browser.CodeInvalidParameter, "unknown wait_until %q", waitUntil)
	}
	if timeoutMs <= 0 {
		timeoutMs = e.opts.DefaultNavigationTimeoutMs
	}

	if err := sess.Navigate(ctx, url, browser.NavigateOptions{
		WaitUntil: waitUntil,
		TimeoutMs: timeoutMs,
	}); err != nil {
		return goneIfClosed(sess, err)
	}

	if idleSec > 0 {
		if err := sleep(ctx, time.Duration(idleSec*float64(time.Second))); err != nil {
			return err
		}
	}
	return nil
}

// sleep waits for d, giving up early if ctx is done. Only the calling
// request's pipeline is suspended.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// goneIfClosed re-codes a failure as ResourceGone when the session was
// torn down mid-request: the page error is then a symptom of the
// deletion, not of the page misbehaving, and holders of the execution
// slot report it like the waiters queued behind them.
func goneIfClosed(sess *browser.Session, err error) error {
	if err == nil || !sess.Closed() {
		return err
	}
	if browser.IsCode(err, browser.CodeResourceGone) {
		return err
	}
	return browser.WrapErr(browser.CodeResourceGone, err, "session %s torn down mid-request", sess.ID())
}

// descriptorError is the per-descriptor failure value aggregated into
// selector results.
func descriptorError(err error) map[string]interface{} {
	code, ok := browser.CodeOf(err)
	if !ok {
		code = browser.CodePageUnavailable
	}
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    string(code),
			"message": err.Error(),
		},
	}
}
