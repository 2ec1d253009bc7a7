package browser

import (
	"context"
	"encoding/base64"
	"net/url"
	"sync"
	"time"
)

// NavigationPolicy decides whether a navigation target is permitted.
// Verdict reports the decision along with the pattern that produced it,
// so denials can name the rule they hit.
type NavigationPolicy interface {
	Verdict(host string) (allowed bool, pattern string)
}

// allowAllPolicy is the fallback when no policy is configured.
type allowAllPolicy struct{}

func (allowAllPolicy) Verdict(string) (bool, string) { return true, "" }

// Session is one remotely controlled tab. Each session owns a single
// page and serializes the requests that operate on it: one request
// runs at a time, later ones queue on the execution slot.
type Session struct {
	id        string
	browserID string
	page      Page
	policy    NavigationPolicy
	createdAt time.Time

	// execCh is the execution slot. Holding the single token means
	// holding the session for the duration of one request.
	execCh chan struct{}

	mu     sync.Mutex
	closed bool
	auth   string // current Authorization header value, "" when unset
}

func newSession(id, browserID string, page Page, policy NavigationPolicy) *Session {
	if policy == nil {
		policy = allowAllPolicy{}
	}
	return &Session{
		id:        id,
		browserID: browserID,
		page:      page,
		policy:    policy,
		createdAt: time.Now().UTC(),
		execCh:    make(chan struct{}, 1),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// BrowserID returns the id of the browser hosting this session.
func (s *Session) BrowserID() string { return s.browserID }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Page returns the page owned by this session. Callers must hold the
// execution slot while operating on it.
func (s *Session) Page() Page { return s.page }

// Acquire takes the session's execution slot, blocking until the slot
// frees or ctx is done. A session closed while waiting reports
// ResourceGone so queued requests fail instead of running against a
// dead page.
func (s *Session) Acquire(ctx context.Context) error {
	select {
	case s.execCh <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.isClosed() {
		<-s.execCh
		return Errorf(CodeResourceGone, "session %s is closed", s.id)
	}
	return nil
}

// Release frees the execution slot taken by Acquire.
func (s *Session) Release() {
	<-s.execCh
}

// Closed reports whether the session has been torn down. Requests
// already holding the execution slot when the session closes check
// this to distinguish a deleted session from a misbehaving page.
func (s *Session) Closed() bool {
	return s.isClosed()
}

// Navigate drives the page to url after checking the target host
// against the navigation policy. Engine failures surface as
// NavigationFailed, which aborts the request that issued them.
func (s *Session) Navigate(ctx context.Context, rawURL string, opts NavigateOptions) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return WrapErr(CodeInvalidParameter, err, "invalid url %q", rawURL)
	}

	host := parsed.Hostname()
	if allowed, pattern := s.policy.Verdict(host); !allowed {
		return Errorf(CodeForbidden, "navigation to %q blocked by pattern %q", host, pattern)
	}

	if err := s.page.Navigate(ctx, rawURL, opts); err != nil {
		return WrapErr(CodeNavigationFailed, err, "failed to navigate to %s", rawURL)
	}
	return nil
}

// SetCredentials registers HTTP basic credentials sent with every
// subsequent request the page makes. Empty username and password clear
// any previously registered credentials.
func (s *Session) SetCredentials(ctx context.Context, username, password string) error {
	s.mu.Lock()
	if username == "" && password == "" {
		s.auth = ""
	} else {
		token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		s.auth = "Basic " + token
	}
	auth := s.auth
	s.mu.Unlock()

	headers := map[string]string{}
	if auth != "" {
		headers["Authorization"] = auth
	}
	if err := s.page.SetExtraHTTPHeaders(ctx, headers); err != nil {
		return WrapErr(CodePageUnavailable, err, "failed to apply credentials")
	}
	return nil
}

// Close ends the session and closes its page. Safe to call more than
// once.
func (s *Session) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	if err := s.page.Close(ctx); err != nil {
		return WrapErr(CodePageUnavailable, err, "failed to close page for session %s", s.id)
	}
	return nil
}

// markClosed flags the session closed without touching the page. Used
// when the owning browser tears down the whole context at once. It
// reports whether this call did the transition.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
