package actions

import (
	"context"

	"github.com/entrhq/scout/pkg/browser"
)

// matchEntry is one element in a descriptor's match set. The html and
// text caches are filled just before the element is removed from the
// DOM, so later read operations in the same descriptor observe the
// pre-removal state instead of failing.
type matchEntry struct {
	el         browser.Element
	removed    bool
	cachedHTML string
	cachedText string
}

// runSelector executes one descriptor: resolve the query to a match
// set, then chain the operations over that same snapshot. Zero matches
// is an empty result, not an error, unless an operation targets a
// specific index.
func (e *Engine) runSelector(ctx context.Context, page browser.Page, sel Selector) (interface{}, error) {
	elements, err := page.QueryAll(ctx, sel.Type, sel.Value)
	if err != nil {
		return nil, browser.WrapErr(browser.CodePageUnavailable, err, "selector %q failed to resolve", sel.Name)
	}

	entries := make([]*matchEntry, len(elements))
	for i, el := range elements {
		entries[i] = &matchEntry{el: el}
	}

	ops := sel.Actions
	if len(ops) == 0 {
		ops = []SelectorOp{{Action: OpHTML}}
	}

	results := make([]interface{}, 0, len(ops))
	for _, op := range ops {
		out, err := e.applyOp(ctx, entries, op)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}

	// a lone untargeted operation over a single match collapses to a
	// scalar; a targeted (nth) operation always reports a sequence
	if len(ops) == 1 {
		if ops[0].Nth != nil {
			return []interface{}{results[0]}, nil
		}
		if len(entries) == 1 {
			if list, ok := results[0].([]interface{}); ok && len(list) == 1 {
				return list[0], nil
			}
		}
		return results[0], nil
	}
	return results, nil
}

// applyOp runs one operation against the targeted subset of the match
// set. With nth set the result is a single value; otherwise it is one
// value per match, in document order.
func (e *Engine) applyOp(ctx context.Context, entries []*matchEntry, op SelectorOp) (interface{}, error) {
	targets, err := subset(entries, op.Nth)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(targets))
	for _, entry := range targets {
		v, err := e.applyToEntry(ctx, entry, op)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	if op.Nth != nil {
		return out[0], nil
	}
	return out, nil
}

// subset picks the entries an operation targets: all of them when nth
// is nil, otherwise the single indexed one (-1 meaning last). An index
// beyond the match set fails, including every index on zero matches.
func subset(entries []*matchEntry, nth *int) ([]*matchEntry, error) {
	if nth == nil {
		return entries, nil
	}

	n := *nth
	if n == -1 {
		n = len(entries) - 1
	}
	if n < 0 || n >= len(entries) {
		return nil, browser.Errorf(browser.CodeIndexOutOfRange, "nth %d out of range for %d matches", *nth, len(entries))
	}
	return entries[n : n+1], nil
}

func (e *Engine) applyToEntry(ctx context.Context, entry *matchEntry, op SelectorOp) (interface{}, error) {
	switch op.Action {
	case OpHTML:
		if entry.removed {
			return entry.cachedHTML, nil
		}
		html, err := entry.el.OuterHTML(ctx)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read element html")
		}
		return html, nil

	case OpText:
		if entry.removed {
			return entry.cachedText, nil
		}
		text, err := entry.el.Text(ctx)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read element text")
		}
		return text, nil

	case OpClick:
		if err := entry.el.Click(ctx); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "click failed")
		}
		return "clicked", nil

	case OpFill:
		if err := entry.el.Fill(ctx, op.Value); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "fill failed")
		}
		return "filled", nil

	case OpRemove:
		if err := e.cacheEntry(ctx, entry); err != nil {
			return nil, err
		}
		if err := entry.el.Remove(ctx); err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "remove failed")
		}
		entry.removed = true
		return "removed", nil

	case OpAttribute:
		value, err := entry.el.Attribute(ctx, op.Name)
		if err != nil {
			return nil, browser.WrapErr(browser.CodePageUnavailable, err, "failed to read attribute %q", op.Name)
		}
		if value == nil {
			return nil, nil
		}
		return *value, nil

	default:
		return nil, browser.Errorf(browser.CodeInvalidParameter, "unknown selector operation %q", op.Action)
	}
}

// cacheEntry snapshots an element's html and text ahead of removal.
func (e *Engine) cacheEntry(ctx context.Context, entry *matchEntry) error {
	if entry.removed {
		return nil
	}

	html, err := entry.el.OuterHTML(ctx)
	if err != nil {
		return browser.WrapErr(browser.CodePageUnavailable, err, "failed to snapshot element before removal")
	}
	text, err := entry.el.Text(ctx)
	if err != nil {
		return browser.WrapErr(browser.CodePageUnavailable, err, "failed to snapshot element before removal")
	}

	entry.cachedHTML = html
	entry.cachedText = text
	return nil
}
