package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucidriver/internal/pool"
	"ucidriver/pkg/uci"
)

// fakeTransport is a minimal Transport double that answers "uci" and
// "isready" itself, defined here to keep the pool's tests free of a
// cross-package test-only dependency on the uci package's own double.
type fakeTransport struct {
	mu    sync.Mutex
	lines chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{lines: make(chan string, 16)}
}

func (f *fakeTransport) Start() error { return nil }

func (f *fakeTransport) WriteLine(line string) error {
	switch line {
	case "uci":
		f.lines <- "uciok"
	case "isready":
		f.lines <- "readyok"
	}
	return nil
}

func (f *fakeTransport) Lines() <-chan string { return f.lines }

func (f *fakeTransport) Dispose() error { return nil }

func handshakenFactory(ctx context.Context) (*uci.Session, error) {
	s := uci.NewSession(newFakeTransport())
	if err := s.Start(); err != nil {
		return nil, err
	}
	if err := s.Handshake(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func TestGetEngineChecksOutAndReturnsOnDispose(t *testing.T) {
	p := pool.New(1, nil)
	p.Register("fish", handshakenFactory)

	ctx := context.Background()
	e1, err := p.GetEngine(ctx, "fish")
	require.NoError(t, err)

	// Capacity is 1: a second checkout must block until e1 is disposed.
	done := make(chan struct{})
	go func() {
		e2, err := p.GetEngine(ctx, "fish")
		require.NoError(t, err)
		e2.Dispose()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second checkout should not have completed before first was disposed")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, e1.Dispose())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second checkout never completed after permit was released")
	}
}

func TestGetEngineNoSuchEngine(t *testing.T) {
	p := pool.New(4, nil)
	_, err := p.GetEngine(context.Background(), "missing")
	assert.ErrorIs(t, err, uci.ErrNoSuchEngine)
}

func TestGetEngineAsyncDeliversResult(t *testing.T) {
	p := pool.New(4, nil)
	p.Register("fish", handshakenFactory)

	result := <-p.GetEngineAsync(context.Background(), "fish")
	require.NoError(t, result.Err)
	require.NotNil(t, result.Engine)
	result.Engine.Dispose()
}

func TestDisposeRejectsFurtherCheckouts(t *testing.T) {
	p := pool.New(4, nil)
	p.Register("fish", handshakenFactory)
	p.Dispose()

	_, err := p.GetEngine(context.Background(), "fish")
	assert.ErrorIs(t, err, uci.ErrTerminated)
}

func TestDoubleDisposeReleasesPermitOnce(t *testing.T) {
	p := pool.New(2, nil)
	p.Register("fish", handshakenFactory)

	held, err := p.GetEngine(context.Background(), "fish")
	require.NoError(t, err)
	defer held.Dispose()

	e, err := p.GetEngine(context.Background(), "fish")
	require.NoError(t, err)

	require.NoError(t, e.Dispose())
	require.NoError(t, e.Dispose()) // must not double-release the permit

	e2, err := p.GetEngine(context.Background(), "fish")
	require.NoError(t, err)
	defer e2.Dispose()

	// held and e2 occupy both permits; a double release would have left a
	// spare one for this checkout.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.GetEngine(ctx, "fish")
	assert.ErrorIs(t, err, uci.ErrCancelled)
}
