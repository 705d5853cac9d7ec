// Package pool manages a bounded set of engine sessions, checked out by
// name against a registry of factories.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"ucidriver/pkg/uci"
)

// Factory builds and fully initializes (start + handshake) one named
// engine. Registered once per engine name at construction time.
type Factory func(ctx context.Context) (*uci.Session, error)

// PooledEngine is a checked-out session. Dispose both tears down the
// underlying session and returns its permit to the pool; it is safe to
// call more than once.
type PooledEngine struct {
	*uci.Session

	id   string
	name string
	pool *Pool

	releaseOnce sync.Once
}

// ID is the pool-assigned identity of this checkout, independent of
// anything the engine process reports about itself.
func (e *PooledEngine) ID() string { return e.id }

// Dispose tears down the session and releases this checkout's permit back
// to the pool exactly once, regardless of how many times Dispose is called.
func (e *PooledEngine) Dispose() error {
	err := e.Session.Dispose()
	e.releaseOnce.Do(func() {
		e.pool.release()
		logrus.WithFields(logrus.Fields{"engine_id": e.id, "name": e.name}).Debug("pool: permit released")
	})
	return err
}

// GetEngineResult is the payload delivered on the channel returned by
// GetEngineAsync.
type GetEngineResult struct {
	Engine *PooledEngine
	Err    error
}

// Pool checks engines out by name, bounding the number simultaneously in
// use to capacity. Grounded on the teacher's StockfishService (available
// chan *uci.Engine, fixed worker count), generalized to a name-keyed
// registry of factories the way other_examples/Tecu23-eng-server's Pool
// keys engines by ID in a map alongside an availability channel.
type Pool struct {
	capacity int
	registry map[string]Factory
	permits  chan struct{}
	limiter  *rate.Limiter

	mu         sync.Mutex
	terminated bool
}

// New builds a pool with the given capacity (values <= 0 fall back to 16) and an optional
// checkout rate limiter (nil disables throttling), grounded on the
// teacher's RateLimitConfig / golang.org/x/time dependency.
func New(capacity int, limiter *rate.Limiter) *Pool {
	if capacity <= 0 {
		capacity = 16
	}
	permits := make(chan struct{}, capacity)
	for i := 0; i < capacity; i++ {
		permits <- struct{}{}
	}
	return &Pool{
		capacity: capacity,
		registry: make(map[string]Factory),
		permits:  permits,
		limiter:  limiter,
	}
}

// Register adds a named factory. The registry is guarded by the pool's
// mutex, so it may be called alongside GetEngine/GetEngineAsync; in practice
// registration happens once, at startup.
func (p *Pool) Register(name string, factory Factory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registry[name] = factory
}

// GetEngine acquires a permit, looks up name's factory, and returns a
// checked-out engine. Blocks until a permit is available, the rate limiter
// (if any) admits the checkout, or ctx is done.
func (p *Pool) GetEngine(ctx context.Context, name string) (*PooledEngine, error) {
	p.mu.Lock()
	closed := p.terminated
	p.mu.Unlock()
	if closed {
		return nil, uci.ErrTerminated
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", uci.ErrCancelled, err)
		}
	}

	if err := p.acquirePermit(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	terminated := p.terminated
	factory, ok := p.registry[name]
	p.mu.Unlock()

	if terminated {
		p.release()
		return nil, uci.ErrTerminated
	}
	if !ok {
		p.release()
		return nil, uci.ErrNoSuchEngine
	}

	session, err := factory(ctx)
	if err != nil {
		p.release()
		return nil, err
	}

	engine := &PooledEngine{
		Session: session,
		id:      uuid.NewString(),
		name:    name,
		pool:    p,
	}

	// A session that dies on its own (process crash, protocol violation
	// tearing itself down) should give its permit back without waiting for
	// an explicit Dispose call from the caller.
	go func() {
		<-engine.Session.Done()
		engine.releaseOnce.Do(func() {
			p.release()
			logrus.WithFields(logrus.Fields{"engine_id": engine.id, "name": name}).
				Debug("pool: permit released after session death")
		})
	}()

	logrus.WithFields(logrus.Fields{"engine_id": engine.id, "name": name}).Debug("pool: engine checked out")
	return engine, nil
}

// GetEngineAsync is GetEngine run on its own goroutine, delivering its
// result on the returned channel. The channel is buffered so the goroutine
// never blocks on a caller that stops listening.
func (p *Pool) GetEngineAsync(ctx context.Context, name string) <-chan GetEngineResult {
	out := make(chan GetEngineResult, 1)
	go func() {
		engine, err := p.GetEngine(ctx, name)
		out <- GetEngineResult{Engine: engine, Err: err}
	}()
	return out
}

// Dispose marks the pool terminated; further GetEngine/GetEngineAsync calls
// fail with ErrTerminated. Engines already checked out keep running until
// their own Dispose is called.
func (p *Pool) Dispose() {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	logrus.Debug("pool: terminated")
}

func (p *Pool) acquirePermit(ctx context.Context) error {
	select {
	case <-p.permits:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", uci.ErrCancelled, ctx.Err())
	}
}

func (p *Pool) release() {
	select {
	case p.permits <- struct{}{}:
	default:
		// Should never happen: permits are acquired and released 1:1. A
		// full channel here would mean a double release slipped past
		// releaseOnce, which would itself be a bug worth surfacing loudly
		// in development rather than blocking forever.
		logrus.Warn("pool: permit channel unexpectedly full on release")
	}
}
