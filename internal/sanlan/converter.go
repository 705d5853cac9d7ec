// Package sanlan converts Standard Algebraic Notation move tokens into
// Long Algebraic Notation against a board.Board, resolving the moving
// piece by geometry rather than full chess legality.
package sanlan

import (
	"strings"

	"ucidriver/internal/board"
	"ucidriver/internal/lan"
	"ucidriver/pkg/uci"
)

// Convert resolves one SAN token against b, executes the move on b, and
// returns its LAN form. Promotion is rendered as "=X" (uppercase X), the
// same form the original token used; normalizing to UCI's lowercase,
// no-"=" form is the caller's job at the point the move is handed to an
// engine (see pkg/uci/session.go's normalizeMove).
func Convert(b *board.Board, san string) (string, error) {
	token := strings.TrimSpace(san)
	if token == "" {
		return "", uci.ErrInvalidInput
	}

	token = strings.TrimRight(token, "+#!?")
	if token == "" {
		return "", uci.ErrInvalidInput
	}

	if lan, ok, err := convertCastle(b, token); ok {
		return lan, err
	}

	return convertNormal(b, token)
}

func convertCastle(b *board.Board, token string) (string, bool, error) {
	normalized := strings.ReplaceAll(token, "0", "O")
	color := b.SideToMove()

	switch normalized {
	case "O-O":
		b.Castle(color, true)
		if color == board.White {
			return "e1g1", true, nil
		}
		return "e8g8", true, nil
	case "O-O-O":
		b.Castle(color, false)
		if color == board.White {
			return "e1c1", true, nil
		}
		return "e8c8", true, nil
	default:
		return "", false, nil
	}
}

func convertNormal(b *board.Board, token string) (string, error) {
	var promotion board.Kind
	if idx := strings.IndexByte(token, '='); idx >= 0 {
		if idx+2 > len(token) {
			return "", uci.ErrInvalidInput
		}
		promotion = board.Kind(token[idx+1])
		token = token[:idx]
	}

	token = strings.ReplaceAll(token, "x", "")

	kind := board.Pawn
	if len(token) > 0 && token[0] >= 'A' && token[0] <= 'Z' && token[0] != 'O' {
		kind = board.Kind(token[0])
		token = token[1:]
	}

	if len(token) < 2 {
		return "", uci.ErrInvalidInput
	}

	destStr := token[len(token)-2:]
	disambig := token[:len(token)-2]

	dest, err := board.ParseSquare(destStr)
	if err != nil {
		return "", uci.ErrInvalidInput
	}

	var wantFile, wantRank = -1, -1
	for _, c := range disambig {
		switch {
		case c >= 'a' && c <= 'h':
			wantFile = int(c - 'a')
		case c >= '1' && c <= '8':
			wantRank = int(c - '1')
		default:
			return "", uci.ErrInvalidInput
		}
	}

	color := b.SideToMove()
	var from board.Square
	found := false
	for _, occ := range b.Pieces() {
		if occ.Piece.Color != color || occ.Piece.Kind != kind {
			continue
		}
		if wantFile >= 0 && occ.Square.File != wantFile {
			continue
		}
		if wantRank >= 0 && occ.Square.Rank != wantRank {
			continue
		}
		if !b.CanMove(kind, color, occ.Square, dest) {
			continue
		}
		from = occ.Square
		found = true
		break
	}
	if !found {
		return "", uci.ErrInvalidMove
	}

	b.Move(from, dest, promotion)

	lan := from.String() + dest.String()
	if promotion != board.None {
		lan += "=" + string(byte(promotion))
	}
	return lan, nil
}

// Normalize converts a LAN move using the "=X" promotion suffix into the
// lowercase, no-"=" form UCI engines expect ("e7e8=Q" -> "e7e8q"). Used by
// the PGN conversion CLI; the HTTP convert endpoint returns the "=X" form
// unchanged.
func Normalize(move string) string {
	return lan.Normalize(move)
}
