// Package search scrapes web search results through a live session.
// It drives the session's page to the engine's result listing, waits
// for the page to settle, then lifts the organic result blocks out of
// the DOM and parses them into structured results.
package search

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/logging"
)

// DefaultBaseURL is the search endpoint queried when none is
// configured.
const DefaultBaseURL = "https://www.google.com/search"

// resultBlocksJS lifts the outer HTML of every organic result block.
// Ranked results carry a data-rpos attribute; ads and widgets do not.
const resultBlocksJS = `() => Array.from(document.querySelectorAll('div[data-rpos]')).map(el => el.outerHTML)`

// settleDelay is how long the result page gets to finish rendering
// after the navigation commits.
const settleDelay = 3 * time.Second

// Result is one parsed search hit.
type Result struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Options configures a Service.
type Options struct {
	// BaseURL is the search endpoint. Empty uses DefaultBaseURL.
	BaseURL string

	// Settle overrides the post-navigation settle delay. Zero uses
	// the default; tests shorten it.
	Settle time.Duration

	// Logger receives scrape events. Nil disables logging.
	Logger *logging.Logger
}

// Service runs searches against sessions. Callers must hold the
// session's execution slot for the duration of a Search call.
type Service struct {
	opts Options
}

// NewService creates a search service.
func NewService(opts Options) *Service {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Settle == 0 {
		opts.Settle = settleDelay
	}
	return &Service{opts: opts}
}

// Search navigates the session to the result listing for query and
// returns up to count parsed results. Blocks that do not parse into a
// linked result are skipped, not reported.
func (s *Service) Search(ctx context.Context, sess *browser.Session, query string, count int) ([]Result, error) {
	if query == "" {
		return nil, browser.Errorf(browser.CodeInvalidParameter, "search query must not be empty")
	}
	if count < 1 {
		return nil, browser.Errorf(browser.CodeInvalidParameter, "search count must be at least 1, got %d", count)
	}

	target := fmt.Sprintf("%s?q=%s&num=%d", s.opts.BaseURL, url.QueryEscape(query), count)
	if err := sess.Navigate(ctx, target, browser.NavigateOptions{WaitUntil: browser.WaitCommit}); err != nil {
		return nil, err
	}

	// let the listing render before reading it
	timer := time.NewTimer(s.opts.Settle)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	raw, err := sess.Page().Evaluate(ctx, resultBlocksJS, nil)
	if err != nil {
		return nil, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read search results")
	}

	blocks, ok := raw.([]interface{})
	if !ok {
		return nil, browser.Errorf(browser.CodePageUnavailable, "unexpected search result payload %T", raw)
	}

	results := make([]Result, 0, count)
	for _, b := range blocks {
		if len(results) >= count {
			break
		}
		block, ok := b.(string)
		if !ok {
			continue
		}
		if r, ok := parseBlock(block); ok {
			results = append(results, r)
		}
	}

	if s.opts.Logger != nil {
		s.opts.Logger.Infof("search %q returned %d results from %d blocks", query, len(results), len(blocks))
	}
	return results, nil
}
