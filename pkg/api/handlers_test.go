package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/scout/pkg/actions"
	"github.com/entrhq/scout/pkg/api"
	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/browser/enginetest"
	"github.com/entrhq/scout/pkg/search"
)

type fixture struct {
	engine   *enginetest.Engine
	pool     *browser.Pool
	resolver *browser.Resolver
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine := enginetest.NewEngine()
	store := browser.NewProfileStore(filepath.Join(t.TempDir(), "profiles"))
	pool := browser.NewPool(engine, store, browser.PoolOptions{})
	resolver := browser.NewResolver(pool)

	server := api.NewServer(api.ServerConfig{
		Pool:     pool,
		Resolver: resolver,
		Actions:  actions.NewEngine(actions.Options{DefaultNavigationTimeoutMs: 3600}),
		Search:   search.NewService(search.Options{Settle: time.Millisecond}),
	})

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &fixture{engine: engine, pool: pool, resolver: resolver, srv: srv}
}

// page pre-creates a session through the resolver and returns its fake
// page, so tests can seed content before issuing requests against it.
func (f *fixture) page(t *testing.T, browserID, sessionID string) *enginetest.Page {
	t.Helper()
	res, err := f.resolver.Resolve(context.Background(), browserID, sessionID)
	require.NoError(t, err)
	return res.Session.Page().(*enginetest.Page)
}

// request issues one HTTP request and returns the response with its
// body fully read.
func (f *fixture) request(t *testing.T, method, path string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeMap(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	body := decodeMap(t, data)
	detail, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error payload, got %s", data)
	code, _ := detail["code"].(string)
	return code
}

func TestPing(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodGet, "/ping", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "scout is running", body["message"])
}

func TestCreateBrowser(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/browsers", map[string]string{"profile_uid": "work"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	assert.Equal(t, "work", body["browser_id"])
	assert.Equal(t, float64(0), body["session_count"])
	profilePath, _ := body["profile_path"].(string)
	assert.Contains(t, profilePath, "work")

	resp, data = f.request(t, http.MethodPost, "/browsers", map[string]string{"profile_uid": "work"}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(browser.CodeAlreadyExists), errorCode(t, data))
}

func TestCreateBrowserEphemeral(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/browsers", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	assert.NotEmpty(t, body["browser_id"])
	assert.Nil(t, body["profile_path"])
}

func TestCreateBrowserWithProxy(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.request(t, http.MethodPost, "/browsers", map[string]interface{}{
		"profile_uid": "proxied",
		"proxy":       map[string]string{"server": "http://proxy.test:3128"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	launches := f.engine.Launches()
	require.Len(t, launches, 1)
	require.NotNil(t, launches[0].Proxy)
	assert.Equal(t, "http://proxy.test:3128", launches[0].Proxy.Server)
}

func TestListBrowsers(t *testing.T) {
	f := newFixture(t)

	// the default browser appears before any explicit creation
	resp, data := f.request(t, http.MethodGet, "/browsers", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "default", list[0]["browser_id"])
	assert.Nil(t, list[0]["profile_path"])

	f.request(t, http.MethodPost, "/browsers", map[string]string{"profile_uid": "alpha"}, nil)

	_, data = f.request(t, http.MethodGet, "/browsers", nil, nil)
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "default", list[0]["browser_id"])
	assert.Equal(t, "alpha", list[1]["browser_id"])
}

func TestDeleteBrowser(t *testing.T) {
	f := newFixture(t)
	f.request(t, http.MethodPost, "/browsers", map[string]string{"profile_uid": "doomed"}, nil)

	resp, _ := f.request(t, http.MethodDelete, "/browsers/doomed", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data := f.request(t, http.MethodDelete, "/browsers/doomed", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(browser.CodeNotFound), errorCode(t, data))

	resp, data = f.request(t, http.MethodDelete, "/browsers/default", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, string(browser.CodeForbidden), errorCode(t, data))
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/start_session", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	assert.NotEmpty(t, body["session_id"])
	assert.Equal(t, "default", body["browser_id"])
}

func TestStartSessionBodyWinsOverHeader(t *testing.T) {
	f := newFixture(t)
	f.request(t, http.MethodPost, "/browsers", map[string]string{"profile_uid": "work"}, nil)

	resp, data := f.request(t, http.MethodPost, "/start_session",
		map[string]string{"browser_id": "work"},
		map[string]string{"X-Browser-Id": "default"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "work", decodeMap(t, data)["browser_id"])
}

func TestStartSessionUnknownBrowser(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/start_session", map[string]string{"browser_id": "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(browser.CodeNotFound), errorCode(t, data))
}

func TestEndSession(t *testing.T) {
	f := newFixture(t)

	_, data := f.request(t, http.MethodPost, "/start_session", nil, nil)
	sid := decodeMap(t, data)["session_id"].(string)

	resp, _ := f.request(t, http.MethodDelete, "/end_session", nil, map[string]string{"X-Session-Id": sid})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = f.request(t, http.MethodDelete, "/end_session", nil, map[string]string{"X-Session-Id": sid})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(browser.CodeNotFound), errorCode(t, data))
}

func TestEndSessionRequiresHeader(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodDelete, "/end_session", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(browser.CodeInvalidParameter), errorCode(t, data))
}

func TestEndedSessionIdAutoCreatesFreshSession(t *testing.T) {
	f := newFixture(t)

	old := f.page(t, "", "sticky")
	old.SetHTML("<p>old page</p>")

	resp, _ := f.request(t, http.MethodDelete, "/end_session", nil, map[string]string{"X-Session-Id": "sticky"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// reusing the ended id opens a fresh session with an empty page
	resp, data := f.request(t, http.MethodPost, "/content", map[string]interface{}{}, map[string]string{"X-Session-Id": "sticky"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, string(data))
}

func TestContent(t *testing.T) {
	f := newFixture(t)

	page := f.page(t, "", "s1")
	page.SetHTML("<html><body>hi</body></html>")
	page.SetText("hi")

	headers := map[string]string{"X-Session-Id": "s1"}

	resp, data := f.request(t, http.MethodPost, "/content",
		map[string]interface{}{"url": "https://example.com", "return_html": false}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "hi", string(data))

	navs := page.Navigations()
	require.Len(t, navs, 1)
	assert.Equal(t, "https://example.com", navs[0].URL)
	assert.Equal(t, browser.WaitCommit, navs[0].Opts.WaitUntil)
	assert.Equal(t, float64(3600), navs[0].Opts.TimeoutMs)

	// return_html defaults to true; no url means no second navigation
	resp, data = f.request(t, http.MethodPost, "/content", map[string]interface{}{}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "<html><body>hi</body></html>", string(data))
	assert.Len(t, page.Navigations(), 1)
}

func TestContentNavigationFailure(t *testing.T) {
	f := newFixture(t)

	page := f.page(t, "", "s1")
	page.NavigateErr = context.DeadlineExceeded

	resp, data := f.request(t, http.MethodPost, "/content",
		map[string]interface{}{"url": "https://example.com"},
		map[string]string{"X-Session-Id": "s1"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, string(browser.CodeNavigationFailed), errorCode(t, data))
}

func TestSelectors(t *testing.T) {
	f := newFixture(t)

	page := f.page(t, "", "s1")
	page.SetElements("h1",
		enginetest.NewElement("<h1>One</h1>", "One"),
		enginetest.NewElement("<h1>Two</h1>", "Two"),
	)

	resp, data := f.request(t, http.MethodPost, "/selectors", map[string]interface{}{
		"selectors": []map[string]interface{}{
			{"name": "titles", "type": "css", "value": "h1"},
			{"name": "missing", "type": "css", "value": ".nope", "actions": []map[string]interface{}{
				{"action": "click", "nth": 0},
			}},
		},
	}, map[string]string{"X-Session-Id": "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	assert.Equal(t, []interface{}{"<h1>One</h1>", "<h1>Two</h1>"}, body["titles"])

	failure, ok := body["missing"].(map[string]interface{})
	require.True(t, ok)
	detail := failure["error"].(map[string]interface{})
	assert.Equal(t, string(browser.CodeIndexOutOfRange), detail["code"])
}

func TestSelectorsInvalidDescriptor(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/selectors", map[string]interface{}{
		"selectors": []map[string]interface{}{
			{"type": "css", "value": "h1"},
		},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(browser.CodeInvalidParameter), errorCode(t, data))
}

func TestInteract(t *testing.T) {
	f := newFixture(t)

	page := f.page(t, "", "s1")
	page.SetText("page text")

	resp, data := f.request(t, http.MethodPost, "/interact", map[string]interface{}{
		"actions": []map[string]interface{}{
			{"action": "text"},
			{"action": "screenshot"},
		},
	}, map[string]string{"X-Session-Id": "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "page text", results[0])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("enginetest-screenshot")), results[1])
	assert.NotContains(t, body, "failed_step")
}

func TestInteractPartialFailure(t *testing.T) {
	f := newFixture(t)

	page := f.page(t, "", "s1")
	page.SetText("first")
	page.PDFData = []byte("not a pdf")

	resp, data := f.request(t, http.MethodPost, "/interact", map[string]interface{}{
		"actions": []map[string]interface{}{
			{"action": "text"},
			{"action": "pdf"},
			{"action": "text"},
		},
	}, map[string]string{"X-Session-Id": "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, data)
	results := body["results"].([]interface{})
	assert.Equal(t, []interface{}{"first"}, results)
	assert.Equal(t, float64(1), body["failed_step"])

	detail := body["error"].(map[string]interface{})
	assert.Equal(t, string(browser.CodePageUnavailable), detail["code"])
}

func TestInteractInvalidAction(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/interact", map[string]interface{}{
		"actions": []map[string]interface{}{{"action": "warp"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(browser.CodeInvalidParameter), errorCode(t, data))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	page := f.page(t, "", "s1")
	page.EvaluateFunc = func(string, interface{}) (interface{}, error) {
		return []interface{}{
			`<div data-rpos="1"><span><a href="https://go.dev/">Go</a></span><span>The <em>Go</em> language.</span></div>`,
		}, nil
	}

	resp, data := f.request(t, http.MethodPost, "/search",
		map[string]interface{}{"query": "golang"},
		map[string]string{"X-Session-Id": "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "https://go.dev/", results[0]["link"])
	assert.Equal(t, "Go", results[0]["title"])
	assert.Equal(t, "The Go language.", results[0]["snippet"])

	// count defaults to 5
	navs := page.Navigations()
	require.Len(t, navs, 1)
	assert.Contains(t, navs[0].URL, "num=5")
}

func TestSearchRequiresQuery(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/search", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(browser.CodeInvalidParameter), errorCode(t, data))
}

func TestBrowserHeaderRoutesToInstance(t *testing.T) {
	f := newFixture(t)
	f.request(t, http.MethodPost, "/browsers", map[string]string{"profile_uid": "work"}, nil)

	resp, _ := f.request(t, http.MethodPost, "/content", map[string]interface{}{},
		map[string]string{"X-Browser-Id": "work"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, data := f.request(t, http.MethodGet, "/browsers", nil, nil)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &list))
	for _, b := range list {
		if b["browser_id"] == "work" {
			assert.Equal(t, float64(1), b["session_count"])
			return
		}
	}
	t.Fatal("browser work missing from listing")
}

func TestUnknownBrowserHeaderIsNotAutoCreated(t *testing.T) {
	f := newFixture(t)

	resp, data := f.request(t, http.MethodPost, "/content", map[string]interface{}{},
		map[string]string{"X-Browser-Id": "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(browser.CodeNotFound), errorCode(t, data))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/interact", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Session-Id")
}
