package browser

import (
	"context"

	"github.com/google/uuid"
)

// Outcome reports how a resolution obtained its session.
type Outcome string

const (
	// SessionFound means the session already existed
	SessionFound Outcome = "found"

	// SessionCreated means the resolution opened a fresh session
	SessionCreated Outcome = "created"
)

// Resolution is the result of resolving a request's browser and
// session headers to live objects.
type Resolution struct {
	Browser *Instance
	Session *Session
	Outcome Outcome
}

// Resolver maps request identity headers to a concrete instance and
// session. Missing pieces are brought into existence rather than
// rejected: an absent browser id means the default browser, an unknown
// session id opens a new session under that id, and an absent session
// id gets a generated one. Only an explicit browser id that names no
// running instance is an error.
type Resolver struct {
	pool *Pool
}

// NewResolver creates a resolver over pool.
func NewResolver(pool *Pool) *Resolver {
	return &Resolver{pool: pool}
}

// Resolve turns the (possibly empty) browser and session ids of a
// request into a live session, creating what does not exist yet per
// the rules above.
func (r *Resolver) Resolve(ctx context.Context, browserID, sessionID string) (*Resolution, error) {
	var (
		inst *Instance
		err  error
	)
	if browserID == "" {
		inst, err = r.pool.GetOrCreateDefault(ctx)
	} else {
		inst, err = r.pool.Get(browserID)
	}
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, created, err := inst.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	outcome := SessionFound
	if created {
		outcome = SessionCreated
	}
	return &Resolution{Browser: inst, Session: sess, Outcome: outcome}, nil
}

// EndSession closes the named session. Unlike Resolve it never creates
// anything: an absent browser id still means the default browser, but
// if that browser was never started, or the session does not exist,
// the result is NotFound.
func (r *Resolver) EndSession(ctx context.Context, browserID, sessionID string) error {
	if sessionID == "" {
		return Errorf(CodeInvalidParameter, "session id is required to end a session")
	}
	if browserID == "" {
		browserID = DefaultBrowserID
	}

	inst, err := r.pool.Get(browserID)
	if err != nil {
		return err
	}
	return inst.EndSession(ctx, sessionID)
}
