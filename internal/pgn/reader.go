package pgn

import (
	"regexp"
	"strings"
)

type parseState int

const (
	stateInitial parseState = iota
	stateHeaderTagName
	stateHeaderTagValue
	stateHeaderClose
	stateMoveText
	stateTerminal
)

var (
	moveNumberRE = regexp.MustCompile(`^\d+\.+$`)
	sanRE        = regexp.MustCompile(`^[NBRQK]?[a-h]?[1-8]?x?[a-h][1-8](=[NBRQ])?$`)
)

var resultTokens = map[string]bool{
	"1-0":     true,
	"0-1":     true,
	"1/2-1/2": true,
	"*":       true,
}

// SplitGames breaks raw PGN text into independent per-game segments on
// lines starting with "[Event ". Content before the first such line is
// ignored.
func SplitGames(input string) []string {
	lines := strings.Split(input, "\n")

	var segments []string
	var current []string
	started := false

	for _, line := range lines {
		if strings.HasPrefix(line, "[Event ") {
			if started {
				segments = append(segments, strings.Join(current, "\n"))
			}
			current = []string{line}
			started = true
			continue
		}
		if started {
			current = append(current, line)
		}
	}
	if started {
		segments = append(segments, strings.Join(current, "\n"))
	}

	return segments
}

// ReadAll splits input into games and parses each one independently.
func ReadAll(input string) []Game {
	segments := SplitGames(input)
	games := make([]Game, 0, len(segments))
	for _, seg := range segments {
		games = append(games, parseGame(tokenize(seg)))
	}
	return games
}

// parseGame runs the Initial -> HeaderTagName -> HeaderTagValue ->
// HeaderClose -> Initial / MoveText -> Terminal state machine over one
// game's tokens.
func parseGame(tokens []string) Game {
	var g Game
	state := stateInitial

	var pendingName, pendingValue string

	i := 0
	for i < len(tokens) && state != stateTerminal {
		tok := tokens[i]

		switch state {
		case stateInitial:
			if tok == "[" {
				state = stateHeaderTagName
				i++
			} else {
				state = stateMoveText
				// Reprocess this same token as the first move-text token.
			}

		case stateHeaderTagName:
			pendingName = tok
			state = stateHeaderTagValue
			i++

		case stateHeaderTagValue:
			pendingValue = strings.Trim(tok, `"`)
			state = stateHeaderClose
			i++

		case stateHeaderClose:
			if tok == "]" {
				g.Headers = append(g.Headers, HeaderPair{Name: pendingName, Value: pendingValue})
				i++
			}
			// A missing "]" silently omits the pair; either way the token
			// stream resumes from Initial, reprocessing tok if it wasn't
			// the closing bracket.
			state = stateInitial

		case stateMoveText:
			switch {
			case moveNumberRE.MatchString(tok):
				// Discarded.
			case resultTokens[tok]:
				g.Result = tok
				state = stateTerminal
			default:
				cleaned := strings.Trim(tok, "!?")
				stripped := strings.TrimRight(cleaned, "+#")
				if isCastling(stripped) || sanRE.MatchString(stripped) {
					g.Moves = append(g.Moves, stripped)
				}
			}
			i++
		}
	}

	return g
}

func isCastling(tok string) bool {
	normalized := strings.ReplaceAll(tok, "0", "O")
	return normalized == "O-O" || normalized == "O-O-O"
}
