// Package lan holds the one piece of move-string formatting shared by the
// UCI session and the SAN/LAN converter, kept in its own leaf package so
// neither has to import the other just for this.
package lan

import "strings"

// Normalize converts a LAN move using the "=X" promotion suffix into the
// lowercase, no-"=" form UCI engines expect ("e7e8=Q" -> "e7e8q"). Moves
// without a promotion pass through unchanged.
func Normalize(move string) string {
	idx := strings.IndexByte(move, '=')
	if idx < 0 {
		return move
	}
	rest := move[idx+1:]
	if rest == "" {
		return move[:idx]
	}
	return move[:idx] + strings.ToLower(rest[:1]) + rest[1:]
}
