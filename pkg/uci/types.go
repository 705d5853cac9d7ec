// Package uci implements a host-side driver for chess engines that speak
// the Universal Chess Interface: transport, response parsing, and the
// session state machine that mediates between callers and an asynchronous,
// line-streaming engine process.
package uci

import "strconv"

// UciInfoLine is a single parsed `info` line from the engine. Fields that
// were not present on the line are left at their zero value together with
// the matching "*Set" flag below being false, since depth/score/etc. are
// all represented as plain ints and zero is a valid reported value.
type UciInfoLine struct {
	Depth    int
	MultiPV  int // defaults to 1 when the engine omits "multipv"
	PV       string

	SelDepth    int
	SelDepthSet bool

	ScoreCp      int
	ScoreCpSet   bool
	ScoreMate    int
	ScoreMateSet bool

	Nodes    int
	NodesSet bool

	Nps    int
	NpsSet bool

	HashFull    int
	HashFullSet bool

	TBHits    int
	TBHitsSet bool

	TimeMs    int
	TimeMsSet bool
}

// HasScore reports whether this line carried a centipawn or mate score.
func (l UciInfoLine) HasScore() bool {
	return l.ScoreCpSet || l.ScoreMateSet
}

// Score renders the score the way Evaluation.Score does: a bare centipawn
// integer, or "mate N".
func (l UciInfoLine) Score() string {
	switch {
	case l.ScoreMateSet:
		return formatMateScore(l.ScoreMate)
	case l.ScoreCpSet:
		return formatCpScore(l.ScoreCp)
	default:
		return ""
	}
}

// BestMove holds the move from a `bestmove` line. ParseBestMove itself
// returns the bare move string. Ponder is parsed only to validate the line
// shape, never retained.
type BestMove struct {
	Move string
}

// Evaluation is one multi-PV line of a finished search, at its deepest
// observed depth.
type Evaluation struct {
	Depth int
	Rank  int // 1-based
	Score string
}

// EvaluationCollection is the ordered (ascending by Rank), non-empty result
// of an evaluate() call.
type EvaluationCollection struct {
	entries []Evaluation
}

// NewEvaluationCollection builds a collection already sorted by rank. The
// caller is responsible for supplying entries sorted ascending by Rank,
// which is how the accumulator snapshot produces them.
func NewEvaluationCollection(entries []Evaluation) EvaluationCollection {
	out := make([]Evaluation, len(entries))
	copy(out, entries)
	return EvaluationCollection{entries: out}
}

// Entries returns the ordered evaluations.
func (c EvaluationCollection) Entries() []Evaluation {
	return c.entries
}

// Len reports the number of ranks present.
func (c EvaluationCollection) Len() int {
	return len(c.entries)
}

// Best returns the rank-1 entry. Callers must not call Best on an empty
// collection; evaluate() never returns one (see ErrNoEvaluation).
func (c EvaluationCollection) Best() Evaluation {
	return c.entries[0]
}

// EngineInfo is the identification and option surface collected during
// handshake: id name, id author, and the option lines the engine advertises.
// This is a supplement beyond the minimal spec.md handshake contract (see
// SPEC_FULL.md §12), modeled on the teacher's EngineInfo/Option pair.
type EngineInfo struct {
	Name    string
	Author  string
	Options []EngineOption
}

// EngineOption is one `option` line advertised by the engine during
// handshake.
type EngineOption struct {
	Name    string
	Type    string
	Default string
	Min     string
	Max     string
	Var     []string
}

// SearchLimit bounds a getBestMove/evaluate search. Exactly one of Depth or
// MoveTimeMs should be set; a zero value means "unbounded in that
// dimension" and the session sends "go infinite" when both are zero.
type SearchLimit struct {
	Depth      int
	MoveTimeMs int
}

func formatCpScore(cp int) string {
	return strconv.Itoa(cp)
}

func formatMateScore(n int) string {
	return "mate " + strconv.Itoa(n)
}
