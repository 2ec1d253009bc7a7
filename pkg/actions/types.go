package actions

import (
	"github.com/entrhq/scout/pkg/browser"
)

// Page action types accepted in a pipeline.
const (
	ActionScreenshot     = "screenshot"
	ActionScroll         = "scroll"
	ActionMove           = "move"
	ActionMouseClick     = "mouse_click"
	ActionIdle           = "idle"
	ActionHTML           = "html"
	ActionText           = "text"
	ActionLogin          = "login"
	ActionScrollToBottom = "scroll_to_bottom"
	ActionPDF            = "pdf"
)

// Element operation names accepted in a selector descriptor.
const (
	OpHTML      = "html"
	OpText      = "text"
	OpClick     = "click"
	OpFill      = "fill"
	OpRemove    = "remove"
	OpAttribute = "attribute"
)

// Defaults applied while executing actions.
const (
	defaultMoveSteps          = 1
	defaultClickCount         = 1
	defaultScrollStepPixels   = 250
	defaultScrollStepDelaySec = 0.5
	defaultScrollTimeoutSec   = 30
)

// Action is one page-scoped step in a pipeline. Type selects the
// operation; the remaining fields carry that operation's parameters
// and are ignored by the others. Pointer fields distinguish "absent,
// use the default" from an explicit zero. On the wire the type rides
// under the "action" key, matching the selector operation shape.
type Action struct {
	Type string `json:"action"`

	// screenshot
	FullPage bool `json:"full_page,omitempty"`

	// scroll (deltas), move and mouse_click (coordinates)
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// move
	Steps *int `json:"steps,omitempty"`

	// mouse_click
	Button     string  `json:"button,omitempty"`
	ClickCount *int    `json:"click_count,omitempty"`
	DelayMs    float64 `json:"delay,omitempty"`

	// idle, in seconds
	Duration float64 `json:"duration,omitempty"`

	// login
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// scroll_to_bottom
	StepPixels   int     `json:"step_pixels,omitempty"`
	StepDelaySec float64 `json:"step_delay,omitempty"`
	TimeoutSec   float64 `json:"timeout,omitempty"`
}

// Validate checks the action's parameters. Pipelines are validated as
// a whole before any step runs, so a malformed step rejects the
// request instead of failing halfway through.
func (a Action) Validate() error {
	switch a.Type {
	case ActionScreenshot, ActionScroll, ActionHTML, ActionText, ActionLogin, ActionPDF:
		return nil

	case ActionMove:
		if a.Steps != nil && *a.Steps < 1 {
			return browser.Errorf(browser.CodeInvalidParameter, "move steps must be at least 1, got %d", *a.Steps)
		}
		return nil

	case ActionMouseClick:
		switch a.Button {
		case "", "left", "right", "middle":
		default:
			return browser.Errorf(browser.CodeInvalidParameter, "unknown mouse button %q", a.Button)
		}
		if a.ClickCount != nil && *a.ClickCount < 1 {
			return browser.Errorf(browser.CodeInvalidParameter, "click_count must be at least 1, got %d", *a.ClickCount)
		}
		if a.DelayMs < 0 {
			return browser.Errorf(browser.CodeInvalidParameter, "click delay must not be negative")
		}
		return nil

	case ActionIdle:
		if a.Duration < 0 {
			return browser.Errorf(browser.CodeInvalidParameter, "idle duration must not be negative")
		}
		return nil

	case ActionScrollToBottom:
		if a.StepPixels < 0 {
			return browser.Errorf(browser.CodeInvalidParameter, "step_pixels must not be negative")
		}
		if a.StepDelaySec < 0 {
			return browser.Errorf(browser.CodeInvalidParameter, "step_delay must not be negative")
		}
		if a.TimeoutSec < 0 {
			return browser.Errorf(browser.CodeInvalidParameter, "timeout must not be negative")
		}
		return nil

	case "":
		return browser.Errorf(browser.CodeInvalidParameter, "action type is required")
	default:
		return browser.Errorf(browser.CodeInvalidParameter, "unknown action type %q", a.Type)
	}
}

// SelectorOp is one element operation inside a selector descriptor.
// Nth picks the targets within the descriptor's match set: nil means
// every match, 0 the first, -1 the last, any other value a zero-based
// index.
type SelectorOp struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
	Name   string `json:"name,omitempty"`
	Nth    *int   `json:"nth,omitempty"`
}

// Validate checks one element operation.
func (o SelectorOp) Validate() error {
	switch o.Action {
	case OpHTML, OpText, OpClick, OpFill, OpRemove:
		return nil
	case OpAttribute:
		if o.Name == "" {
			return browser.Errorf(browser.CodeInvalidParameter, "attribute operation requires a name")
		}
		return nil
	case "":
		return browser.Errorf(browser.CodeInvalidParameter, "selector operation action is required")
	default:
		return browser.Errorf(browser.CodeInvalidParameter, "unknown selector operation %q", o.Action)
	}
}

// Selector is one named descriptor: a query plus the operations to
// apply to its matches. With no operations it defaults to reading the
// matches' outer HTML.
type Selector struct {
	Name    string               `json:"name"`
	Type    browser.SelectorKind `json:"type"`
	Value   string               `json:"value"`
	Actions []SelectorOp         `json:"actions,omitempty"`
}

// Validate checks the descriptor and all its operations.
func (s Selector) Validate() error {
	if s.Name == "" {
		return browser.Errorf(browser.CodeInvalidParameter, "selector name is required")
	}
	if !s.Type.Valid() {
		return browser.Errorf(browser.CodeInvalidParameter, "unknown selector type %q", s.Type)
	}
	if s.Value == "" {
		return browser.Errorf(browser.CodeInvalidParameter, "selector %q has an empty query", s.Name)
	}
	for _, op := range s.Actions {
		if err := op.Validate(); err != nil {
			return browser.WrapErr(browser.CodeInvalidParameter, err, "selector %q", s.Name)
		}
	}
	return nil
}
