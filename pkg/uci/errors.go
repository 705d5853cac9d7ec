package uci

import "errors"

// Sentinel errors for the kinds the session and pool must distinguish.
// Wrap with fmt.Errorf("...: %w", ErrXxx) where extra context helps; callers
// should compare with errors.Is.
var (
	// ErrInitFailure means the session could not be brought up: the
	// transport failed to start or the "uci" command could not be written.
	// A cancelled handshake returns ErrCancelled instead, and an engine that
	// exits mid-handshake yields ErrTerminated.
	ErrInitFailure = errors.New("uci: engine initialization failed")

	// ErrTerminated means the operation was attempted on a disposed session
	// or pool.
	ErrTerminated = errors.New("uci: session terminated")

	// ErrInvalidInput means an empty FEN or empty SAN token was supplied.
	ErrInvalidInput = errors.New("uci: invalid input")

	// ErrInvalidMove means no geometrically reachable piece satisfies a SAN
	// token.
	ErrInvalidMove = errors.New("uci: invalid move")

	// ErrProtocolViolation means a bestmove line could not be parsed.
	ErrProtocolViolation = errors.New("uci: protocol violation")

	// ErrNoEvaluation means bestmove arrived with no info lines carrying a
	// score.
	ErrNoEvaluation = errors.New("uci: no evaluation available")

	// ErrNoSuchEngine means a pool lookup by name found no registered
	// factory.
	ErrNoSuchEngine = errors.New("uci: no such engine")

	// ErrCancelled means a cancellation signal fired while an operation was
	// suspended awaiting a response.
	ErrCancelled = errors.New("uci: operation cancelled")

	// ErrSearchInFlight means getBestMove/evaluate was called while another
	// search was already active on the session.
	ErrSearchInFlight = errors.New("uci: search already in flight")

	// ErrNotReady means an operation that requires the Ready state was
	// called from New, Starting, Handshaking, or (where not explicitly
	// allowed) Searching.
	ErrNotReady = errors.New("uci: session not ready")
)
