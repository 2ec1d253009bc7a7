package browser_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/browser/enginetest"
)

func newTestPool(t *testing.T, opts browser.PoolOptions) (*browser.Pool, *enginetest.Engine) {
	t.Helper()
	engine := enginetest.NewEngine()
	store := browser.NewProfileStore(filepath.Join(t.TempDir(), "profiles"))
	return browser.NewPool(engine, store, opts), engine
}

func TestPoolCreateBrowserWithProfile(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,
	})
	ctx := context.Background()

	inst, err := pool.CreateBrowser(ctx, "work", &browser.Proxy{Server: "http://proxy:3128"})
	require.NoError(t, err)
	assert.Equal(t, "work", inst.ID())
	assert.Equal(t, "work", inst.Profile())
	assert.Contains(t, inst.ProfileDir(), "work")

	launches := engine.Launches()
	require.Len(t, launches, 1)
	assert.True(t, launches[0].Headless)
	assert.Equal(t, 1280, launches[0].ViewportWidth)
	assert.Equal(t, 720, launches[0].ViewportHeight)
	assert.Equal(t, inst.ProfileDir(), launches[0].ProfileDir)
	require.NotNil(t, launches[0].Proxy)
	assert.Equal(t, "http://proxy:3128", launches[0].Proxy.Server)
}

func TestPoolCreateBrowserEphemeral(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	first, err := pool.CreateBrowser(ctx, "", nil)
	require.NoError(t, err)
	second, err := pool.CreateBrowser(ctx, "", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID())
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Empty(t, first.Profile())
	assert.Empty(t, first.ProfileDir())
	assert.Empty(t, engine.Launches()[0].ProfileDir)
}

func TestPoolCreateBrowserDuplicate(t *testing.T) {
	pool, _ := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	_, err := pool.CreateBrowser(ctx, "work", nil)
	require.NoError(t, err)

	_, err = pool.CreateBrowser(ctx, "work", nil)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeAlreadyExists))
}

func TestPoolCreateBrowserReservedID(t *testing.T) {
	pool, _ := newTestPool(t, browser.PoolOptions{})

	_, err := pool.CreateBrowser(context.Background(), browser.DefaultBrowserID, nil)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeInvalidParameter))
}

func TestPoolGetOrCreateDefault(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	first, err := pool.GetOrCreateDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, browser.DefaultBrowserID, first.ID())
	assert.Empty(t, first.Profile())
	assert.Nil(t, first.Proxy())

	second, err := pool.GetOrCreateDefault(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, engine.Launches(), 1)
}

func TestPoolGetOrCreateDefaultConcurrent(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	instances := make([]*browser.Instance, 8)
	for i := range instances {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := pool.GetOrCreateDefault(ctx)
			if err != nil {
				t.Errorf("GetOrCreateDefault: %v", err)
				return
			}
			instances[i] = inst
		}(i)
	}
	wg.Wait()

	require.Len(t, engine.Launches(), 1)
	for _, inst := range instances {
		assert.Same(t, instances[0], inst)
	}
}

func TestPoolGet(t *testing.T) {
	pool, _ := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	created, err := pool.CreateBrowser(ctx, "work", nil)
	require.NoError(t, err)

	got, err := pool.Get("work")
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = pool.Get("missing")
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeNotFound))
}

func TestPoolListInsertionOrder(t *testing.T) {
	pool, _ := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	_, err := pool.GetOrCreateDefault(ctx)
	require.NoError(t, err)
	_, err = pool.CreateBrowser(ctx, "beta", nil)
	require.NoError(t, err)
	_, err = pool.CreateBrowser(ctx, "alpha", nil)
	require.NoError(t, err)

	summaries := pool.List()
	require.Len(t, summaries, 3)
	assert.Equal(t, browser.DefaultBrowserID, summaries[0].BrowserID)
	assert.Equal(t, "beta", summaries[1].BrowserID)
	assert.Equal(t, "alpha", summaries[2].BrowserID)

	assert.Nil(t, summaries[0].ProfilePath)
	require.NotNil(t, summaries[1].ProfilePath)
	assert.Contains(t, *summaries[1].ProfilePath, "beta")
	assert.Equal(t, 0, summaries[1].SessionCount)
}

func TestPoolDeleteBrowser(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	_, err := pool.CreateBrowser(ctx, "work", nil)
	require.NoError(t, err)

	require.NoError(t, pool.DeleteBrowser(ctx, "work"))
	assert.Empty(t, pool.List())
	assert.True(t, engine.Contexts()[0].Closed())

	err = pool.DeleteBrowser(ctx, "work")
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeNotFound))
}

func TestPoolDeleteClosesSessions(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	inst, err := pool.CreateBrowser(ctx, "work", nil)
	require.NoError(t, err)

	first, _, err := inst.GetOrCreateSession(ctx, "one")
	require.NoError(t, err)
	second, _, err := inst.GetOrCreateSession(ctx, "two")
	require.NoError(t, err)

	require.NoError(t, pool.DeleteBrowser(ctx, "work"))

	assert.True(t, engine.Contexts()[0].Closed())
	assert.True(t, first.Page().(*enginetest.Page).IsClosed())
	assert.True(t, second.Page().(*enginetest.Page).IsClosed())

	err = first.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeResourceGone))

	err = second.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeResourceGone))
}

func TestPoolDeleteDefaultForbidden(t *testing.T) {
	pool, _ := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	_, err := pool.GetOrCreateDefault(ctx)
	require.NoError(t, err)

	err = pool.DeleteBrowser(ctx, browser.DefaultBrowserID)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeForbidden))
}

func TestPoolMaxBrowsers(t *testing.T) {
	pool, _ := newTestPool(t, browser.PoolOptions{MaxBrowsers: 1})
	ctx := context.Background()

	_, err := pool.CreateBrowser(ctx, "first", nil)
	require.NoError(t, err)

	_, err = pool.CreateBrowser(ctx, "second", nil)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeForbidden))

	// deleting frees a slot
	require.NoError(t, pool.DeleteBrowser(ctx, "first"))
	_, err = pool.CreateBrowser(ctx, "second", nil)
	assert.NoError(t, err)
}

func TestPoolShutdown(t *testing.T) {
	pool, engine := newTestPool(t, browser.PoolOptions{})
	ctx := context.Background()

	_, err := pool.CreateBrowser(ctx, "a", nil)
	require.NoError(t, err)
	_, err = pool.CreateBrowser(ctx, "b", nil)
	require.NoError(t, err)

	require.NoError(t, pool.Shutdown(ctx))
	assert.Empty(t, pool.List())
	for _, c := range engine.Contexts() {
		assert.True(t, c.Closed())
	}
}
