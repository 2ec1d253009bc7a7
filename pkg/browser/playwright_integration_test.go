//go:build integration

package browser

import (
	"context"
	"strings"
	"testing"
	"time"
)

// Exercises the real Playwright engine end to end. Run with:
//
//	go test -tags integration ./pkg/browser/
func TestPlaywrightEngineSmoke(t *testing.T) {
	engine, err := NewPlaywrightEngine(EngineOptions{
		Headless:         true,
		ViewportWidth:    1280,
		ViewportHeight:   720,
		DefaultTimeoutMs: 30000,
	})
	if err != nil {
		t.Fatalf("failed to start engine: %v", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	engCtx, err := engine.LaunchContext(ctx, LaunchOptions{Headless: true, ViewportWidth: 1280, ViewportHeight: 720})
	if err != nil {
		t.Fatalf("failed to launch context: %v", err)
	}
	defer engCtx.Close(ctx)

	page, err := engCtx.NewPage(ctx)
	if err != nil {
		t.Fatalf("failed to open page: %v", err)
	}

	html := `data:text/html,<html><body><h1 id="title">hello</h1><input id="q"></body></html>`
	if err := page.Navigate(ctx, html, NavigateOptions{WaitUntil: WaitLoad, TimeoutMs: 30000}); err != nil {
		t.Fatalf("failed to navigate: %v", err)
	}

	content, err := page.Content(ctx)
	if err != nil {
		t.Fatalf("failed to read content: %v", err)
	}
	if !strings.Contains(content, "hello") {
		t.Errorf("content missing expected text: %q", content)
	}

	elements, err := page.QueryAll(ctx, SelectorCSS, "#title")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elements))
	}

	text, err := elements[0].Text(ctx)
	if err != nil {
		t.Fatalf("failed to read text: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, expected %q", text, "hello")
	}

	inputs, err := page.QueryAll(ctx, SelectorXPath, `//input[@id="q"]`)
	if err != nil {
		t.Fatalf("failed to query by xpath: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
	if err := inputs[0].Fill(ctx, "typed"); err != nil {
		t.Fatalf("failed to fill: %v", err)
	}

	value, err := page.Evaluate(ctx, `() => document.getElementById("q").value`, nil)
	if err != nil {
		t.Fatalf("failed to evaluate: %v", err)
	}
	if value != "typed" {
		t.Errorf("input value = %v, expected %q", value, "typed")
	}

	shot, err := page.Screenshot(ctx, false)
	if err != nil {
		t.Fatalf("failed to screenshot: %v", err)
	}
	if len(shot) == 0 {
		t.Error("screenshot is empty")
	}
}
