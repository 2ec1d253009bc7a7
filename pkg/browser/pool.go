package browser

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/entrhq/scout/pkg/logging"
)

// DefaultBrowserID names the implicit browser used when a request
// carries no browser id. It is created on first use and cannot be
// deleted.
const DefaultBrowserID = "default"

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Headless is passed through to every launch
	Headless bool

	// Viewport dimensions for launched contexts
	ViewportWidth  int
	ViewportHeight int

	// MaxBrowsers caps the number of concurrently running instances.
	// Zero means unlimited. The default browser counts against it.
	MaxBrowsers int

	// Policy gates navigation for every session. Nil allows all hosts.
	Policy NavigationPolicy

	// Logger receives lifecycle events. Nil disables logging.
	Logger *logging.Logger
}

// Pool owns the running browser instances. Launches and deletions are
// serialized under the pool lock; page work inside each session runs
// outside it, so a slow pipeline never blocks browser management of
// other instances.
type Pool struct {
	engine Engine
	store  *ProfileStore
	opts   PoolOptions

	mu        sync.Mutex
	instances map[string]*Instance
	order     []string
}

// BrowserSummary is the listing view of one instance. ProfilePath is
// nil for ephemeral instances.
type BrowserSummary struct {
	BrowserID    string  `json:"browser_id"`
	ProfilePath  *string `json:"profile_path"`
	SessionCount int     `json:"session_count"`
}

// NewPool creates a pool that launches instances through engine and
// resolves persistent profiles through store.
func NewPool(engine Engine, store *ProfileStore, opts PoolOptions) *Pool {
	if opts.Policy == nil {
		opts.Policy = allowAllPolicy{}
	}
	return &Pool{
		engine:    engine,
		store:     store,
		opts:      opts,
		instances: make(map[string]*Instance),
	}
}

// CreateBrowser launches a new instance. A non-empty profileUID both
// names the instance and binds it to a persistent profile directory;
// an empty one launches an ephemeral instance under a generated id.
// Creating a profileUID that is already registered fails with
// AlreadyExists.
func (p *Pool) CreateBrowser(ctx context.Context, profileUID string, proxy *Proxy) (*Instance, error) {
	id := profileUID
	if id == "" {
		id = uuid.NewString()
	} else {
		if id == DefaultBrowserID {
			return nil, Errorf(CodeInvalidParameter, "browser id %q is reserved", DefaultBrowserID)
		}
		if err := p.store.ValidateName(profileUID); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.instances[id]; ok {
		return nil, Errorf(CodeAlreadyExists, "browser %s already exists", id)
	}
	if p.opts.MaxBrowsers > 0 && len(p.instances) >= p.opts.MaxBrowsers {
		return nil, Errorf(CodeForbidden, "browser limit of %d reached", p.opts.MaxBrowsers)
	}

	inst, err := p.launch(ctx, id, profileUID, proxy)
	if err != nil {
		return nil, err
	}
	p.register(inst)

	if p.opts.Logger != nil {
		p.opts.Logger.Infof("launched browser %s (profile=%q)", id, profileUID)
	}
	return inst, nil
}

// GetOrCreateDefault returns the default browser, launching it on
// first use. The default instance is ephemeral: no profile, no proxy.
func (p *Pool) GetOrCreateDefault(ctx context.Context) (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if inst, ok := p.instances[DefaultBrowserID]; ok {
		return inst, nil
	}
	if p.opts.MaxBrowsers > 0 && len(p.instances) >= p.opts.MaxBrowsers {
		return nil, Errorf(CodeForbidden, "browser limit of %d reached", p.opts.MaxBrowsers)
	}

	inst, err := p.launch(ctx, DefaultBrowserID, "", nil)
	if err != nil {
		return nil, err
	}
	p.register(inst)

	if p.opts.Logger != nil {
		p.opts.Logger.Infof("launched default browser")
	}
	return inst, nil
}

// launch starts an engine context for one instance. Callers hold p.mu.
func (p *Pool) launch(ctx context.Context, id, profile string, proxy *Proxy) (*Instance, error) {
	launchOpts := LaunchOptions{
		Proxy:          proxy,
		Headless:       p.opts.Headless,
		ViewportWidth:  p.opts.ViewportWidth,
		ViewportHeight: p.opts.ViewportHeight,
	}

	if profile != "" {
		dir, err := p.store.Ensure(profile)
		if err != nil {
			return nil, err
		}
		launchOpts.ProfileDir = dir
	}

	engCtx, err := p.engine.LaunchContext(ctx, launchOpts)
	if err != nil {
		return nil, WrapErr(CodePageUnavailable, err, "failed to launch browser %s", id)
	}
	return newInstance(id, profile, launchOpts.ProfileDir, proxy, engCtx, p.opts.Policy), nil
}

// register adds an instance to the registry. Callers hold p.mu.
func (p *Pool) register(inst *Instance) {
	p.instances[inst.ID()] = inst
	p.order = append(p.order, inst.ID())
}

// Get returns the instance with the given id.
func (p *Pool) Get(id string) (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[id]
	if !ok {
		return nil, Errorf(CodeNotFound, "browser %s not found", id)
	}
	return inst, nil
}

// List summarizes the running instances in creation order.
func (p *Pool) List() []BrowserSummary {
	p.mu.Lock()
	instances := make([]*Instance, 0, len(p.instances))
	for _, id := range p.order {
		if inst, ok := p.instances[id]; ok {
			instances = append(instances, inst)
		}
	}
	p.mu.Unlock()

	out := make([]BrowserSummary, len(instances))
	for i, inst := range instances {
		out[i] = Summarize(inst)
	}
	return out
}

// Summarize builds the listing view of one instance.
func Summarize(inst *Instance) BrowserSummary {
	s := BrowserSummary{
		BrowserID:    inst.ID(),
		SessionCount: inst.SessionCount(),
	}
	if dir := inst.ProfileDir(); dir != "" {
		s.ProfilePath = &dir
	}
	return s
}

// DeleteBrowser removes the instance and tears down its context.
// Requests already running against its sessions are not waited for;
// they fail with ResourceGone on their next page operation. The
// default browser cannot be deleted.
func (p *Pool) DeleteBrowser(ctx context.Context, id string) error {
	if id == DefaultBrowserID {
		return Errorf(CodeForbidden, "the default browser cannot be deleted")
	}

	p.mu.Lock()
	inst, ok := p.instances[id]
	if ok {
		delete(p.instances, id)
		for idx, oid := range p.order {
			if oid == id {
				p.order = append(p.order[:idx], p.order[idx+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()

	if !ok {
		return Errorf(CodeNotFound, "browser %s not found", id)
	}

	if p.opts.Logger != nil {
		p.opts.Logger.Infof("deleting browser %s", id)
	}
	return inst.close(ctx)
}

// Shutdown closes every instance. The engine itself stays up; its
// owner stops it after the pool drains.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	instances := make([]*Instance, 0, len(p.instances))
	for _, inst := range p.instances {
		instances = append(instances, inst)
	}
	p.instances = make(map[string]*Instance)
	p.order = nil
	p.mu.Unlock()

	var firstErr error
	for _, inst := range instances {
		if err := inst.close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
