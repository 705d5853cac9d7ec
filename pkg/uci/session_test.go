package uci_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucidriver/pkg/uci"
)

// fakeTransport is an in-memory Transport double: WriteLine is recorded,
// and test code pushes response lines onto the same channel Lines exposes.
type fakeTransport struct {
	mu     sync.Mutex
	writes []string
	lines  chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{lines: make(chan string, 256)}
}

func (f *fakeTransport) Start() error { return nil }

func (f *fakeTransport) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, line)
	return nil
}

func (f *fakeTransport) Lines() <-chan string { return f.lines }

func (f *fakeTransport) Dispose() error { return nil }

func (f *fakeTransport) push(line string) { f.lines <- line }

func (f *fakeTransport) writesContaining(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.writes {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func newHandshakenSession(t *testing.T) (*uci.Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	s := uci.NewSession(ft)
	require.NoError(t, s.Start())

	done := make(chan error, 1)
	go func() { done <- s.Handshake(context.Background()) }()

	waitFor(t, func() bool { return ft.writesContaining("uci") })
	ft.push("id name Testfish")
	ft.push("id author Gopher")
	ft.push("uciok")

	require.NoError(t, <-done)
	assert.Equal(t, uci.StateReady, s.State())
	return s, ft
}

func TestHandshakeCollectsEngineInfo(t *testing.T) {
	s, _ := newHandshakenSession(t)
	defer s.Dispose()

	info := s.EngineInfo()
	assert.Equal(t, "Testfish", info.Name)
	assert.Equal(t, "Gopher", info.Author)
}

func TestHandshakeCancellation(t *testing.T) {
	ft := newFakeTransport()
	s := uci.NewSession(ft)
	require.NoError(t, s.Start())
	defer s.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Handshake(ctx)
	assert.ErrorIs(t, err, uci.ErrCancelled)
}

func TestGetBestMove(t *testing.T) {
	s, ft := newHandshakenSession(t)
	defer s.Dispose()

	result := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		move, err := s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 10})
		result <- move
		errc <- err
	}()

	waitFor(t, func() bool { return ft.writesContaining("go depth 10") })
	ft.push("info depth 5 score cp 20 pv e2e4")
	ft.push("bestmove e2e4 ponder e7e5")

	require.NoError(t, <-errc)
	assert.Equal(t, "e2e4", <-result)
	assert.Equal(t, uci.StateReady, s.State())
}

func TestEvaluateSnapshotsDeepestPerRank(t *testing.T) {
	s, ft := newHandshakenSession(t)
	defer s.Dispose()

	type outcome struct {
		evals uci.EvaluationCollection
		err   error
	}
	out := make(chan outcome, 1)
	go func() {
		evals, err := s.Evaluate(context.Background(), uci.SearchLimit{Depth: 8})
		out <- outcome{evals, err}
	}()

	waitFor(t, func() bool { return ft.writesContaining("go depth 8") })
	ft.push("info depth 4 multipv 1 score cp 10 pv e2e4")
	ft.push("info depth 8 multipv 1 score cp 30 pv e2e4")
	ft.push("info depth 6 multipv 2 score cp -5 pv d2d4")
	ft.push("bestmove e2e4")

	got := <-out
	require.NoError(t, got.err)
	require.Equal(t, 2, got.evals.Len())
	assert.Equal(t, "30", got.evals.Entries()[0].Score)
	assert.Equal(t, "-5", got.evals.Entries()[1].Score)
}

func TestGetBestMoveFailsFastWhenAlreadySearching(t *testing.T) {
	s, ft := newHandshakenSession(t)
	defer s.Dispose()

	go s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 1})
	waitFor(t, func() bool { return ft.writesContaining("go depth 1") })

	_, err := s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 1})
	assert.ErrorIs(t, err, uci.ErrSearchInFlight)

	ft.push("bestmove a2a3")
}

func TestGetBestMoveCancellationKeepsSearchLockUntilBestmove(t *testing.T) {
	s, ft := newHandshakenSession(t)
	defer s.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.GetBestMove(ctx, uci.SearchLimit{Depth: 20})
	assert.ErrorIs(t, err, uci.ErrCancelled)

	waitFor(t, func() bool { return ft.writesContaining("stop") })

	// A second search must still be rejected: the engine hasn't actually
	// produced its bestmove yet, so SearchLock is still held.
	_, err = s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 1})
	assert.ErrorIs(t, err, uci.ErrSearchInFlight)

	// Once the stale bestmove finally arrives, the lock is released and a
	// fresh search can proceed.
	ft.push("bestmove d2d4")
	waitFor(t, func() bool { return s.State() == uci.StateReady })

	result := make(chan string, 1)
	go func() {
		move, _ := s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 1})
		result <- move
	}()
	waitFor(t, func() bool { return ft.writesContaining("go depth 1") })
	ft.push("bestmove g1f3")
	assert.Equal(t, "g1f3", <-result)
}

func TestSetPositionNormalizesPromotionMoves(t *testing.T) {
	s, ft := newHandshakenSession(t)
	defer s.Dispose()

	require.NoError(t, s.SetPosition(context.Background(), nil, []string{"e7e8=Q", "a2a3"}))
	waitFor(t, func() bool { return ft.writesContaining("position startpos") })
	assert.True(t, ft.writesContaining("position startpos moves e7e8q a2a3"))
}

func TestSetPositionRejectsEmptyFEN(t *testing.T) {
	s, _ := newHandshakenSession(t)
	defer s.Dispose()

	empty := ""
	err := s.SetPosition(context.Background(), &empty, nil)
	assert.ErrorIs(t, err, uci.ErrInvalidInput)
}

func TestDisposeFailsOutstandingSearch(t *testing.T) {
	s, ft := newHandshakenSession(t)

	errc := make(chan error, 1)
	go func() {
		_, err := s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 30})
		errc <- err
	}()
	waitFor(t, func() bool { return ft.writesContaining("go depth 30") })

	require.NoError(t, s.Dispose())
	assert.ErrorIs(t, <-errc, uci.ErrTerminated)
	assert.Equal(t, uci.StateTerminated, s.State())
}

func TestOperationsAfterDisposeFailTerminated(t *testing.T) {
	s, _ := newHandshakenSession(t)
	require.NoError(t, s.Dispose())

	_, err := s.GetBestMove(context.Background(), uci.SearchLimit{Depth: 1})
	assert.ErrorIs(t, err, uci.ErrTerminated)
}
