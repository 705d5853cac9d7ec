package uci

import (
	"regexp"
	"strconv"
	"strings"
)

var bestMoveRE = regexp.MustCompile(
	`^bestmove\s+([a-h][1-8][a-h][1-8][qrbn]?)(?:\s+ponder\s+[a-h][1-8][a-h][1-8][qrbn]?)?\s*$`,
)

// ParseBestMove extracts the best move from a `bestmove` line. It returns
// an empty string if the line does not match; the ponder move, if present,
// is discarded without being returned.
//
// Grounded on the teacher's bestmove field-split in pkg/uci/engine.go's
// Search and the pack's Tecu23-eng-server readLoop bestmove handling,
// tightened to the spec's full-line regexp so trailing garbage is rejected.
func ParseBestMove(line string) string {
	m := bestMoveRE.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseInfoLine parses one `info` line into a UciInfoLine via a
// whitespace-split token stream state machine, grounded on the teacher's
// parseInfoLine keyword switch (internal/services/stockfish.go /
// pkg/uci pre-transform) and Davey-Hughes-uci's scanner-based parseStdout.
// Single-shot: callers must construct a fresh state machine per line, which
// this function does implicitly by not retaining any package-level state.
func ParseInfoLine(line string) UciInfoLine {
	tokens := strings.Fields(line)

	var out UciInfoLine
	out.MultiPV = 1 // default rank when "multipv" is absent, per spec.md §4.3

	i := 0
	if i < len(tokens) && tokens[i] == "info" {
		i++
	}

	for i < len(tokens) {
		keyword := tokens[i]
		i++

		switch keyword {
		case "depth":
			if v, ok := nextInt(tokens, &i); ok {
				out.Depth = v
			}
		case "seldepth":
			if v, ok := nextInt(tokens, &i); ok {
				out.SelDepth = v
				out.SelDepthSet = true
			}
		case "multipv":
			if v, ok := nextInt(tokens, &i); ok {
				out.MultiPV = v
			}
		case "nodes":
			if v, ok := nextInt(tokens, &i); ok {
				out.Nodes = v
				out.NodesSet = true
			}
		case "nps":
			if v, ok := nextInt(tokens, &i); ok {
				out.Nps = v
				out.NpsSet = true
			}
		case "hashfull":
			if v, ok := nextInt(tokens, &i); ok {
				out.HashFull = v
				out.HashFullSet = true
			}
		case "tbhits":
			if v, ok := nextInt(tokens, &i); ok {
				out.TBHits = v
				out.TBHitsSet = true
			}
		case "time":
			if v, ok := nextInt(tokens, &i); ok {
				out.TimeMs = v
				out.TimeMsSet = true
			}
		case "score":
			if i < len(tokens) {
				sub := tokens[i]
				i++
				if v, ok := nextInt(tokens, &i); ok {
					switch sub {
					case "cp":
						out.ScoreCp = v
						out.ScoreCpSet = true
					case "mate":
						out.ScoreMate = v
						out.ScoreMateSet = true
					}
				}
			}
		case "pv":
			out.PV = strings.Join(tokens[i:], " ")
			i = len(tokens)
		default:
			// Unknown keyword: if it still expects an argument, the next
			// token is skipped so the state machine doesn't misinterpret
			// it as the next keyword.
			if i < len(tokens) && !isKnownKeyword(tokens[i]) {
				i++
			}
		}
	}

	return out
}

func nextInt(tokens []string, i *int) (int, bool) {
	if *i >= len(tokens) {
		return 0, false
	}
	v, err := strconv.Atoi(tokens[*i])
	*i++
	if err != nil {
		return 0, false
	}
	return v, true
}

func isKnownKeyword(tok string) bool {
	switch tok {
	case "depth", "seldepth", "multipv", "nodes", "nps", "hashfull", "tbhits",
		"time", "score", "pv", "cp", "mate":
		return true
	default:
		return false
	}
}
