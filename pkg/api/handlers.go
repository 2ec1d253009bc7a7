package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/entrhq/scout/pkg/actions"
	"github.com/entrhq/scout/pkg/browser"
)

// Identity headers accepted on every route.
const (
	headerBrowserID = "X-Browser-Id"
	headerSessionID = "X-Session-Id"
)

func browserID(r *http.Request) string { return r.Header.Get(headerBrowserID) }
func sessionID(r *http.Request) string { return r.Header.Get(headerSessionID) }

// decodeJSON fills dst from the request body. An empty body leaves dst
// at its zero value; endpoints that require fields validate afterwards.
func decodeJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return browser.WrapErr(browser.CodeInvalidParameter, err, "invalid request body")
	}
	return nil
}

// resolveSession maps the identity headers to a live session and takes
// its execution slot. On success the caller owns the slot and must
// Release it.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (*browser.Resolution, bool) {
	res, err := s.resolver.Resolve(r.Context(), browserID(r), sessionID(r))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if err := res.Session.Acquire(r.Context()); err != nil {
		writeError(w, err)
		return nil, false
	}
	return res, true
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{Status: "ok", Message: "scout is running"})
}

// handleListBrowsers lists the running instances. The default browser
// is launched on demand first so it always appears, even before any
// request has used it.
func (s *Server) handleListBrowsers(w http.ResponseWriter, r *http.Request) {
	if _, err := s.pool.GetOrCreateDefault(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pool.List())
}

func (s *Server) handleCreateBrowser(w http.ResponseWriter, r *http.Request) {
	var req createBrowserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inst, err := s.pool.CreateBrowser(r.Context(), req.ProfileUID, req.Proxy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, browser.Summarize(inst))
}

func (s *Server) handleDeleteBrowser(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.DeleteBrowser(r.Context(), r.PathValue("browser_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartSession opens a session with a generated id. A browser id
// in the body wins over the X-Browser-Id header; absent both, the
// session opens in the default browser.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id := req.BrowserID
	if id == "" {
		id = browserID(r)
	}

	res, err := s.resolver.Resolve(r.Context(), id, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionID: res.Session.ID(),
		BrowserID: res.Browser.ID(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.resolver.EndSession(r.Context(), browserID(r), sessionID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleContent returns the page's serialized HTML or visible text as
// a raw body, not JSON.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	returnHTML := true
	if req.ReturnHTML != nil {
		returnHTML = *req.ReturnHTML
	}

	res, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	defer res.Session.Release()

	body, err := s.actions.Content(r.Context(), res.Session, actions.ContentRequest{
		URL:        req.URL,
		WaitUntil:  req.WaitUntil,
		IdleSec:    req.IdleSec,
		TimeoutMs:  req.TimeoutMs,
		ReturnHTML: returnHTML,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if returnHTML {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

// handleSelectors runs the named descriptors and returns the mapping
// of descriptor name to result. Failed descriptors appear under their
// name with an error value; they do not fail the request.
func (s *Server) handleSelectors(w http.ResponseWriter, r *http.Request) {
	var req selectorsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	defer res.Session.Release()

	results, err := s.actions.RunSelectors(r.Context(), res.Session, actions.Query{
		URL:       req.URL,
		WaitUntil: req.WaitUntil,
		IdleSec:   req.IdleSec,
		TimeoutMs: req.TimeoutMs,
		Selectors: req.Selectors,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleInteract runs an ordered action pipeline. A step failure still
// returns 200: the response carries the completed results plus the
// failed step's index and error.
func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req interactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	defer res.Session.Release()

	result, err := s.actions.Run(r.Context(), res.Session, actions.Pipeline{
		URL:       req.URL,
		WaitUntil: req.WaitUntil,
		IdleSec:   req.IdleSec,
		TimeoutMs: req.TimeoutMs,
		Actions:   req.Actions,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := interactResponse{Results: result.Results}
	if result.FailedStep != nil {
		resp.FailedStep = result.FailedStep
		resp.Error = stepError(result.StepErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Count == 0 {
		req.Count = s.searchCount
	}

	res, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	defer res.Session.Release()

	results, err := s.search.Search(r.Context(), res.Session, req.Query, req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
