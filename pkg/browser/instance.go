package browser

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Instance is one launched browser: an isolated engine context plus the
// sessions opened inside it. Sessions are keyed by caller-chosen ids,
// so two instances may each hold a session named "main" without
// clashing.
type Instance struct {
	id         string
	profile    string
	profileDir string
	proxy      *Proxy
	engCtx     Context
	policy     NavigationPolicy
	createdAt  time.Time

	mu       sync.Mutex
	closed   bool
	sessions map[string]*Session
}

func newInstance(id, profile, profileDir string, proxy *Proxy, engCtx Context, policy NavigationPolicy) *Instance {
	return &Instance{
		id:         id,
		profile:    profile,
		profileDir: profileDir,
		proxy:      proxy,
		engCtx:     engCtx,
		policy:     policy,
		createdAt:  time.Now().UTC(),
		sessions:   make(map[string]*Session),
	}
}

// ID returns the browser identifier.
func (i *Instance) ID() string { return i.id }

// Profile returns the persistent profile name, or "" for an ephemeral
// instance.
func (i *Instance) Profile() string { return i.profile }

// ProfileDir returns the on-disk profile directory, or "" for an
// ephemeral instance.
func (i *Instance) ProfileDir() string { return i.profileDir }

// Proxy returns the proxy configuration the instance was launched
// with, or nil.
func (i *Instance) Proxy() *Proxy { return i.proxy }

// CreatedAt returns when the instance was launched.
func (i *Instance) CreatedAt() time.Time { return i.createdAt }

// Session looks up an existing session by id.
func (i *Instance) Session(id string) (*Session, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.sessions[id]
	return s, ok
}

// GetOrCreateSession returns the session with the given id, opening a
// fresh page for it if it does not exist yet. The second result
// reports whether this call created it.
func (i *Instance) GetOrCreateSession(ctx context.Context, id string) (*Session, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil, false, Errorf(CodeResourceGone, "browser %s is closed", i.id)
	}
	if s, ok := i.sessions[id]; ok {
		return s, false, nil
	}

	page, err := i.engCtx.NewPage(ctx)
	if err != nil {
		return nil, false, WrapErr(CodePageUnavailable, err, "failed to open page for session %s", id)
	}

	s := newSession(id, i.id, page, i.policy)
	i.sessions[id] = s
	return s, true, nil
}

// EndSession removes the session and closes its page. Other sessions
// in the instance keep running.
func (i *Instance) EndSession(ctx context.Context, id string) error {
	i.mu.Lock()
	s, ok := i.sessions[id]
	if ok {
		delete(i.sessions, id)
	}
	i.mu.Unlock()

	if !ok {
		return Errorf(CodeNotFound, "session %s not found in browser %s", id, i.id)
	}
	return s.Close(ctx)
}

// SessionCount returns the number of live sessions.
func (i *Instance) SessionCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.sessions)
}

// SessionIDs returns the ids of the instance's live sessions, sorted
// for stable listings.
func (i *Instance) SessionIDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	ids := make([]string, 0, len(i.sessions))
	for id := range i.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// close marks the instance and all its sessions closed, then tears
// down the engine context. Pages close with the context, so sessions
// are only flagged here; requests queued on them fail on wake.
func (i *Instance) close(ctx context.Context) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	sessions := make([]*Session, 0, len(i.sessions))
	for _, s := range i.sessions {
		sessions = append(sessions, s)
	}
	i.sessions = make(map[string]*Session)
	i.mu.Unlock()

	for _, s := range sessions {
		s.markClosed()
	}

	if err := i.engCtx.Close(ctx); err != nil {
		return WrapErr(CodePageUnavailable, err, "failed to close browser %s", i.id)
	}
	return nil
}
