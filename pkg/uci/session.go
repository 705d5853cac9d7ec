package uci

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"ucidriver/internal/lan"
)

// State is one point in the session's lifecycle.
type State int32

const (
	StateNew State = iota
	StateStarting
	StateHandshaking
	StateReady
	StateSearching
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateSearching:
		return "searching"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// completion is a single-assignment handle: exactly one goroutine resolves
// it via complete, any number of goroutines may wait on it, and a late or
// duplicate complete call is a harmless no-op.
type completion struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

func (c *completion) complete(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *completion) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// pendingSearch is the in-flight state of one getBestMove/evaluate call. It
// is resolved exactly once: by the router goroutine when the terminating
// bestmove line arrives, by the caller if the go command cannot be written,
// or by Dispose if the session is torn down first.
// unlockOnce guards SearchLock's release, which happens on that same path
// rather than when the calling goroutine returns — a cancelled caller gives
// up waiting immediately, but the engine is still searching until its real
// bestmove shows up, and no second search may be started until then.
type pendingSearch struct {
	wantEval bool

	done       chan struct{}
	once       sync.Once
	unlockOnce sync.Once

	bestMove string
	eval     EvaluationCollection
	evalOk   bool
	err      error
}

func newPendingSearch(wantEval bool) *pendingSearch {
	return &pendingSearch{wantEval: wantEval, done: make(chan struct{})}
}

func (p *pendingSearch) complete() {
	p.once.Do(func() { close(p.done) })
}

// Session mediates between callers and one running engine process: a
// handshake/ready/search state machine sitting on top of a Transport, with
// a single background goroutine routing response lines to whichever
// completion handle is currently waiting for them.
//
// Grounded on the teacher's pkg/uci/engine.go Engine, generalized from
// synchronous blocking reads (Initialize/Search read the scanner inline,
// holding mutex for the whole call) to an asynchronous reader goroutine
// plus completion-handle routing, the way the pack's Tecu23-eng-server
// UCIEngine separates its readLoop/BestMoveChan from callers, and using
// context.Context for cancellation the way alex65536-day20's EnginePool
// does for engine lifecycle.
type Session struct {
	transport Transport

	// writeMu (WriteLock) serializes writes to the transport so that two
	// concurrent commands never interleave on the wire.
	writeMu sync.Mutex

	// searchMu (SearchLock) ensures at most one search is in flight. Taken
	// by getBestMove/evaluate at search start, released by the router (or
	// Dispose) when that search's bestmove arrives.
	searchMu sync.Mutex

	// readyMu (ReadyLock) serializes isready/readyok pairings so that two
	// concurrent waitReady calls can never have their completions crossed.
	readyMu sync.Mutex

	// routeMu (part of AccumulatorLock's family of state guards) protects
	// state and the three pending-completion pointers below, all of which
	// the router goroutine and callers touch concurrently.
	routeMu    sync.Mutex
	state      State
	handshake  *completion
	ready      *completion
	search     *pendingSearch
	engineInfo EngineInfo

	accumulator *evalAccumulator

	stopConsume chan struct{}
	disposeOnce sync.Once
	doneCh      chan struct{}
}

// NewSession wraps transport in a fresh, unstarted session.
func NewSession(transport Transport) *Session {
	return &Session{
		transport:   transport,
		accumulator: newEvalAccumulator(),
		stopConsume: make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.routeMu.Lock()
	defer s.routeMu.Unlock()
	return s.state
}

// EngineInfo returns the id/option information collected during handshake.
// Zero value if handshake has not completed.
func (s *Session) EngineInfo() EngineInfo {
	s.routeMu.Lock()
	defer s.routeMu.Unlock()
	return s.engineInfo
}

// Done returns a channel that closes exactly once, during Dispose, before
// the transport is torn down. Pools use this to notice an engine has died.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// Start spawns the underlying transport and begins routing its output.
// Must be called exactly once, before Handshake.
func (s *Session) Start() error {
	s.routeMu.Lock()
	if s.state != StateNew {
		s.routeMu.Unlock()
		return fmt.Errorf("uci: session already started")
	}
	s.state = StateStarting
	s.routeMu.Unlock()

	if err := s.transport.Start(); err != nil {
		s.routeMu.Lock()
		s.state = StateTerminated
		s.routeMu.Unlock()
		return fmt.Errorf("%w: %v", ErrInitFailure, err)
	}

	go s.consumeLoop()
	return nil
}

// Handshake sends "uci" and waits for "uciok", collecting id/option lines
// along the way. On success the session enters Ready.
func (s *Session) Handshake(ctx context.Context) error {
	s.routeMu.Lock()
	if s.state == StateTerminated {
		s.routeMu.Unlock()
		return ErrTerminated
	}
	h := newCompletion()
	s.handshake = h
	s.state = StateHandshaking
	s.routeMu.Unlock()

	if err := s.writeLine("uci"); err != nil {
		return fmt.Errorf("%w: %v", ErrInitFailure, err)
	}

	if err := h.wait(ctx); err != nil {
		// Cancellation leaves the session usable: a late uciok is routed
		// to this same handle and harmlessly dropped since nobody reads
		// it anymore (completion.complete is idempotent).
		return err
	}

	s.routeMu.Lock()
	s.state = StateReady
	s.routeMu.Unlock()
	return nil
}

// WaitReady sends "isready" and waits for "readyok". ReadyLock serializes
// this against any other concurrent WaitReady call.
func (s *Session) WaitReady(ctx context.Context) error {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()

	if err := s.checkNotTerminated(); err != nil {
		return err
	}

	r := newCompletion()
	s.routeMu.Lock()
	s.ready = r
	s.routeMu.Unlock()

	if err := s.writeLine("isready"); err != nil {
		return err
	}

	return r.wait(ctx)
}

// NewGame sends "ucinewgame". No response is defined for it in the UCI
// protocol, so this does not suspend waiting for one; callers that need a
// synchronization point afterwards should follow it with WaitReady, the way
// the protocol's own handshake sequence does.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	return s.writeLineCtx(ctx, "ucinewgame")
}

// SetPosition sends a `position` command. fen == nil means startpos; a
// non-nil, empty fen is rejected. Moves are normalized to bare LAN (no "="
// promotion marker) before being written, since the engine expects e7e8q,
// not e7e8=q.
func (s *Session) SetPosition(ctx context.Context, fen *string, moves []string) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if fen != nil && *fen == "" {
		return ErrInvalidInput
	}

	var b strings.Builder
	b.WriteString("position ")
	if fen != nil {
		b.WriteString("fen ")
		b.WriteString(*fen)
	} else {
		b.WriteString("startpos")
	}
	if len(moves) > 0 {
		b.WriteString(" moves")
		for _, m := range moves {
			b.WriteByte(' ')
			b.WriteString(normalizeMove(m))
		}
	}

	return s.writeLineCtx(ctx, b.String())
}

// SetOption sends `setoption name <name> value <value>`.
func (s *Session) SetOption(ctx context.Context, name, value string) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if name == "" {
		return ErrInvalidInput
	}
	return s.writeLineCtx(ctx, fmt.Sprintf("setoption name %s value %s", name, value))
}

// SetMultiPV is SetOption("MultiPV", n) with validation that n is positive.
func (s *Session) SetMultiPV(ctx context.Context, n int) error {
	if n < 1 {
		return ErrInvalidInput
	}
	return s.SetOption(ctx, "MultiPV", fmt.Sprintf("%d", n))
}

// GetBestMove runs a search bounded by limit and returns the move the
// engine settles on. Fails fast with ErrSearchInFlight if another search
// is already running, rather than queuing behind it.
func (s *Session) GetBestMove(ctx context.Context, limit SearchLimit) (string, error) {
	sc, err := s.startSearch(false)
	if err != nil {
		return "", err
	}

	if err := s.writeLine(buildGoCommand(limit)); err != nil {
		s.finishSearch(sc, "", err)
		return "", err
	}

	select {
	case <-sc.done:
		return sc.bestMove, sc.err
	case <-ctx.Done():
		s.writeLineBestEffort("stop")
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Evaluate runs a search bounded by limit and returns the deepest score
// observed per multi-PV rank, snapshotted at bestmove time.
func (s *Session) Evaluate(ctx context.Context, limit SearchLimit) (EvaluationCollection, error) {
	sc, err := s.startSearch(true)
	if err != nil {
		return EvaluationCollection{}, err
	}

	if err := s.writeLine(buildGoCommand(limit)); err != nil {
		s.finishSearch(sc, "", err)
		return EvaluationCollection{}, err
	}

	select {
	case <-sc.done:
		if sc.err != nil {
			return EvaluationCollection{}, sc.err
		}
		if !sc.evalOk {
			return EvaluationCollection{}, ErrNoEvaluation
		}
		return sc.eval, nil
	case <-ctx.Done():
		s.writeLineBestEffort("stop")
		return EvaluationCollection{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Stop sends "stop" without waiting for bestmove; the caller that started
// the search remains the one blocked on its completion.
func (s *Session) Stop() error {
	return s.writeLineBestEffort("stop")
}

// Dispose terminates the session: fails any outstanding completion with
// ErrTerminated, tears down the transport, and stops the router goroutine.
// Safe to call more than once; only the first call has effect.
func (s *Session) Dispose() error {
	s.disposeOnce.Do(func() {
		s.routeMu.Lock()
		hs := s.handshake
		rh := s.ready
		sc := s.search
		s.handshake = nil
		s.ready = nil
		s.search = nil
		s.state = StateTerminated
		s.routeMu.Unlock()

		if hs != nil {
			hs.complete(ErrTerminated)
		}
		if rh != nil {
			rh.complete(ErrTerminated)
		}
		if sc != nil {
			sc.err = ErrTerminated
			sc.complete()
			sc.unlockOnce.Do(s.searchMu.Unlock)
		}

		close(s.stopConsume)
		close(s.doneCh)
		_ = s.transport.Dispose()

		logrus.Debug("uci: session disposed")
	})
	return nil
}

func (s *Session) startSearch(wantEval bool) (*pendingSearch, error) {
	if !s.searchMu.TryLock() {
		return nil, ErrSearchInFlight
	}

	s.routeMu.Lock()
	if s.state != StateReady {
		st := s.state
		s.routeMu.Unlock()
		s.searchMu.Unlock()
		if st == StateTerminated {
			return nil, ErrTerminated
		}
		return nil, ErrNotReady
	}

	s.accumulator.start()
	sc := newPendingSearch(wantEval)
	s.search = sc
	s.state = StateSearching
	s.routeMu.Unlock()

	return sc, nil
}

// finishSearch resolves sc and releases SearchLock. Called from the router
// when a real bestmove arrives, and by GetBestMove/Evaluate when the go
// command cannot be written. Dispose resolves a pending search itself;
// whichever of finishSearch and Dispose observes s.search == sc while
// holding routeMu is the sole owner of
// sc's fields from that point on; the loser finds s.search already cleared
// (or pointing elsewhere) and returns without touching sc, which is what
// keeps the field writes below race-free despite running from two
// goroutines.
func (s *Session) finishSearch(sc *pendingSearch, bestMove string, err error) {
	s.routeMu.Lock()
	if s.search != sc {
		s.routeMu.Unlock()
		return
	}
	s.search = nil
	if s.state == StateSearching {
		s.state = StateReady
	}
	s.routeMu.Unlock()

	sc.bestMove = bestMove
	sc.err = err

	eval, ok := s.accumulator.snapshot()
	if sc.wantEval && err == nil && ok {
		sc.eval = eval
		sc.evalOk = true
	}

	sc.complete()
	sc.unlockOnce.Do(s.searchMu.Unlock)
}

func (s *Session) consumeLoop() {
	for {
		select {
		case line, ok := <-s.transport.Lines():
			if !ok {
				// The engine process exited on its own; tear the session
				// down the same way an explicit Dispose would, so a
				// pending search fails with ErrTerminated and a pool
				// watching Session.Done() reclaims its permit.
				s.Dispose()
				return
			}
			s.routeLine(line)
		case <-s.stopConsume:
			return
		}
	}
}

func (s *Session) routeLine(line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "uciok":
		s.routeMu.Lock()
		h := s.handshake
		s.handshake = nil
		s.routeMu.Unlock()
		if h != nil {
			h.complete(nil)
		}

	case trimmed == "readyok":
		s.routeMu.Lock()
		r := s.ready
		s.ready = nil
		s.routeMu.Unlock()
		if r != nil {
			r.complete(nil)
		}

	case strings.HasPrefix(trimmed, "info"):
		s.routeMu.Lock()
		searching := s.state == StateSearching
		s.routeMu.Unlock()
		if searching {
			s.accumulator.fold(ParseInfoLine(trimmed))
		}

	case strings.HasPrefix(trimmed, "bestmove"):
		s.routeMu.Lock()
		sc := s.search
		s.routeMu.Unlock()
		if sc == nil {
			// Stray bestmove with no pending search: discard.
			return
		}
		move := ParseBestMove(trimmed)
		if move == "" {
			s.finishSearch(sc, "", ErrProtocolViolation)
			return
		}
		s.finishSearch(sc, move, nil)

	case strings.HasPrefix(trimmed, "id ") || strings.HasPrefix(trimmed, "option "):
		s.routeIDOrOption(trimmed)

	default:
		logrus.WithField("line", trimmed).Debug("uci: unrecognized line discarded")
	}
}

func (s *Session) routeIDOrOption(line string) {
	fields := strings.Fields(line)
	s.routeMu.Lock()
	defer s.routeMu.Unlock()

	switch {
	case len(fields) >= 3 && fields[0] == "id" && fields[1] == "name":
		s.engineInfo.Name = strings.Join(fields[2:], " ")
	case len(fields) >= 3 && fields[0] == "id" && fields[1] == "author":
		s.engineInfo.Author = strings.Join(fields[2:], " ")
	case fields[0] == "option":
		s.engineInfo.Options = append(s.engineInfo.Options, parseOptionLine(fields))
	}
}

func parseOptionLine(fields []string) EngineOption {
	var opt EngineOption
	i := 0
	for i < len(fields) {
		switch fields[i] {
		case "name":
			j := i + 1
			for j < len(fields) && fields[j] != "type" {
				j++
			}
			opt.Name = strings.Join(fields[i+1:j], " ")
			i = j
		case "type":
			if i+1 < len(fields) {
				opt.Type = fields[i+1]
			}
			i += 2
		case "default":
			if i+1 < len(fields) {
				opt.Default = fields[i+1]
			}
			i += 2
		case "min":
			if i+1 < len(fields) {
				opt.Min = fields[i+1]
			}
			i += 2
		case "max":
			if i+1 < len(fields) {
				opt.Max = fields[i+1]
			}
			i += 2
		case "var":
			if i+1 < len(fields) {
				opt.Var = append(opt.Var, fields[i+1])
			}
			i += 2
		default:
			i++
		}
	}
	return opt
}

func (s *Session) writeLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.transport.WriteLine(line)
}

// writeLineCtx writes a line, returning ErrCancelled if ctx is already done
// by the time the write lock is acquired — commands like setoption don't
// suspend waiting for a response, but the write itself can still be skipped
// if the caller has already given up.
func (s *Session) writeLineCtx(ctx context.Context, line string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	default:
	}
	return s.writeLine(line)
}

// writeLineBestEffort is used for "stop", where a write failure (engine
// already gone) is not actionable by the caller.
func (s *Session) writeLineBestEffort(line string) error {
	if err := s.writeLine(line); err != nil {
		logrus.WithError(err).Debug("uci: best-effort write failed")
		return err
	}
	return nil
}

func (s *Session) checkNotTerminated() error {
	s.routeMu.Lock()
	defer s.routeMu.Unlock()
	if s.state == StateTerminated {
		return ErrTerminated
	}
	return nil
}

func (s *Session) requireReady() error {
	s.routeMu.Lock()
	defer s.routeMu.Unlock()
	switch s.state {
	case StateTerminated:
		return ErrTerminated
	case StateReady:
		return nil
	default:
		return ErrNotReady
	}
}

func buildGoCommand(limit SearchLimit) string {
	var b strings.Builder
	b.WriteString("go")
	if limit.Depth > 0 {
		fmt.Fprintf(&b, " depth %d", limit.Depth)
	}
	if limit.MoveTimeMs > 0 {
		fmt.Fprintf(&b, " movetime %d", limit.MoveTimeMs)
	}
	if limit.Depth <= 0 && limit.MoveTimeMs <= 0 {
		b.WriteString(" infinite")
	}
	return b.String()
}

// normalizeMove converts a promotion move from SAN-adjacent "=Q" notation
// to bare UCI LAN ("e7e8q"): strip the "=" and lowercase the promoted
// piece letter. Moves without "=" pass through unchanged. Shared with
// internal/sanlan via internal/lan so the session doesn't import the
// converter package (it imports uci for its sentinel errors).
func normalizeMove(move string) string {
	return lan.Normalize(move)
}
