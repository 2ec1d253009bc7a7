package api

import (
	"net/http"

	"github.com/entrhq/scout/pkg/actions"
	"github.com/entrhq/scout/pkg/browser"
)

// Request and response bodies for the REST surface. Field names are
// the wire contract; changing a tag breaks existing clients.

type pingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type createBrowserRequest struct {
	ProfileUID string         `json:"profile_uid,omitempty"`
	Proxy      *browser.Proxy `json:"proxy,omitempty"`
}

type startSessionRequest struct {
	BrowserID string `json:"browser_id,omitempty"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	BrowserID string `json:"browser_id"`
}

type contentRequest struct {
	URL string `json:"url,omitempty"`

	// ReturnHTML defaults to true when absent
	ReturnHTML *bool `json:"return_html,omitempty"`

	WaitUntil string  `json:"wait_until,omitempty"`
	IdleSec   float64 `json:"idle,omitempty"`
	TimeoutMs float64 `json:"timeout,omitempty"`
}

type selectorsRequest struct {
	URL       string             `json:"url,omitempty"`
	WaitUntil string             `json:"wait_until,omitempty"`
	IdleSec   float64            `json:"idle,omitempty"`
	TimeoutMs float64            `json:"timeout,omitempty"`
	Selectors []actions.Selector `json:"selectors"`
}

type interactRequest struct {
	URL       string           `json:"url,omitempty"`
	WaitUntil string           `json:"wait_until,omitempty"`
	IdleSec   float64          `json:"idle,omitempty"`
	TimeoutMs float64          `json:"timeout,omitempty"`
	Actions   []actions.Action `json:"actions"`
}

type interactResponse struct {
	Results []interface{} `json:"results"`

	// FailedStep and Error are set when a step failed; Results then
	// holds only the steps that completed before it.
	FailedStep *int         `json:"failed_step,omitempty"`
	Error      *errorDetail `json:"error,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Count int    `json:"count,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// statusForCode maps the error taxonomy onto HTTP statuses.
func statusForCode(code browser.Code) int {
	switch code {
	case browser.CodeNotFound:
		return http.StatusNotFound
	case browser.CodeAlreadyExists:
		return http.StatusConflict
	case browser.CodeForbidden:
		return http.StatusForbidden
	case browser.CodeResourceGone:
		return http.StatusGone
	case browser.CodeNavigationFailed, browser.CodePageUnavailable:
		return http.StatusBadGateway
	case browser.CodeInvalidParameter, browser.CodeIndexOutOfRange:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// stepError shapes a pipeline step failure for the /interact response.
func stepError(err error) *errorDetail {
	code, ok := browser.CodeOf(err)
	if !ok {
		code = browser.CodePageUnavailable
	}
	return &errorDetail{Code: string(code), Message: err.Error()}
}
