// Package enginetest provides an in-memory implementation of the
// browser engine interfaces for tests, in the spirit of httptest. The
// fake records every call so tests can assert on what a pipeline did
// to a page without launching a real browser.
package enginetest

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/scout/pkg/browser"
)

// Engine is a fake browser.Engine. Zero value is not usable; create
// one with NewEngine.
type Engine struct {
	mu       sync.Mutex
	launches []browser.LaunchOptions
	contexts []*Context
	closed   bool

	// LaunchErr, when set, makes every LaunchContext call fail with it
	LaunchErr error
}

// NewEngine creates a fake engine.
func NewEngine() *Engine {
	return &Engine{}
}

// LaunchContext records the launch and returns a fresh fake context.
func (e *Engine) LaunchContext(ctx context.Context, opts browser.LaunchOptions) (browser.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.LaunchErr != nil {
		return nil, e.LaunchErr
	}
	if e.closed {
		return nil, errors.New("enginetest: engine is closed")
	}

	e.launches = append(e.launches, opts)
	c := &Context{opts: opts}
	e.contexts = append(e.contexts, c)
	return c, nil
}

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Launches returns the options of every launch so far.
func (e *Engine) Launches() []browser.LaunchOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]browser.LaunchOptions, len(e.launches))
	copy(out, e.launches)
	return out
}

// Contexts returns every context the engine has handed out.
func (e *Engine) Contexts() []*Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Context, len(e.contexts))
	copy(out, e.contexts)
	return out
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Context is a fake browser.Context.
type Context struct {
	mu     sync.Mutex
	opts   browser.LaunchOptions
	pages  []*Page
	closed bool

	// NewPageErr, when set, makes every NewPage call fail with it
	NewPageErr error
}

// Options returns the launch options this context was created with.
func (c *Context) Options() browser.LaunchOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// NewPage records and returns a fresh fake page.
func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.NewPageErr != nil {
		return nil, c.NewPageErr
	}
	if c.closed {
		return nil, errors.New("enginetest: context is closed")
	}

	p := NewPage()
	c.pages = append(c.pages, p)
	return p, nil
}

// Close marks the context and all its pages closed.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	pages := make([]*Page, len(c.pages))
	copy(pages, c.pages)
	c.closed = true
	c.mu.Unlock()

	for _, p := range pages {
		p.Close(ctx)
	}
	return nil
}

// Pages returns every page the context has opened.
func (c *Context) Pages() []*Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Page, len(c.pages))
	copy(out, c.pages)
	return out
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
