package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucidriver/internal/board"
)

func TestStartingPosition(t *testing.T) {
	b := board.New()
	assert.Equal(t, board.White, b.SideToMove())

	p, ok := b.At(must(t, "e1"))
	require.True(t, ok)
	assert.Equal(t, board.King, p.Kind)
	assert.Equal(t, board.White, p.Color)

	p, ok = b.At(must(t, "e8"))
	require.True(t, ok)
	assert.Equal(t, board.King, p.Kind)
	assert.Equal(t, board.Black, p.Color)

	assert.True(t, b.Empty(must(t, "e4")))
}

func TestPawnPushes(t *testing.T) {
	b := board.New()
	assert.True(t, b.CanMove(board.Pawn, board.White, must(t, "e2"), must(t, "e3")))
	assert.True(t, b.CanMove(board.Pawn, board.White, must(t, "e2"), must(t, "e4")))
	assert.False(t, b.CanMove(board.Pawn, board.White, must(t, "e2"), must(t, "e5")))
}

func TestPawnDoublePushBlocked(t *testing.T) {
	b := board.New()
	b.Move(must(t, "e2"), must(t, "e3"), board.None)
	// White pawn no longer on starting rank for this file.
	assert.False(t, b.CanMove(board.Pawn, board.White, must(t, "e3"), must(t, "e5")))
}

func TestKnightGeometry(t *testing.T) {
	assert.True(t, board.New().CanMove(board.Knight, board.White, must(t, "g1"), must(t, "f3")))
	assert.False(t, board.New().CanMove(board.Knight, board.White, must(t, "g1"), must(t, "g3")))
}

func TestRookRequiresClearPath(t *testing.T) {
	b := board.New()
	// Blocked by the pawn on a2.
	assert.False(t, b.CanMove(board.Rook, board.White, must(t, "a1"), must(t, "a5")))
	b.Move(must(t, "a2"), must(t, "a4"), board.None)
	assert.True(t, b.CanMove(board.Rook, board.White, must(t, "a1"), must(t, "a3")))
}

func TestKingMaxNormDistance(t *testing.T) {
	assert.True(t, board.New().CanMove(board.King, board.White, must(t, "e1"), must(t, "d1")))
	assert.False(t, board.New().CanMove(board.King, board.White, must(t, "e1"), must(t, "e3")))
}

func TestMovePromotes(t *testing.T) {
	b := board.New()
	b.Move(must(t, "e2"), must(t, "e7"), board.None) // not legal, just exercising the executor
	b.Move(must(t, "e7"), must(t, "e8"), board.Queen)

	p, ok := b.At(must(t, "e8"))
	require.True(t, ok)
	assert.Equal(t, board.Queen, p.Kind)
	assert.Equal(t, board.White, p.Color)
	assert.True(t, b.Empty(must(t, "e2")))
}

func TestCastleMovesKingAndRook(t *testing.T) {
	b := board.New()
	b.Castle(board.White, true)

	king, ok := b.At(must(t, "g1"))
	require.True(t, ok)
	assert.Equal(t, board.King, king.Kind)

	rook, ok := b.At(must(t, "f1"))
	require.True(t, ok)
	assert.Equal(t, board.Rook, rook.Kind)

	assert.True(t, b.Empty(must(t, "e1")))
	assert.True(t, b.Empty(must(t, "h1")))
	assert.Equal(t, board.Black, b.SideToMove())
}

func TestReset(t *testing.T) {
	b := board.New()
	b.Move(must(t, "e2"), must(t, "e4"), board.None)
	b.Reset()

	assert.Equal(t, board.White, b.SideToMove())
	p, ok := b.At(must(t, "e2"))
	require.True(t, ok)
	assert.Equal(t, board.Pawn, p.Kind)
}

func must(t *testing.T, s string) board.Square {
	t.Helper()
	sq, err := board.ParseSquare(s)
	require.NoError(t, err)
	return sq
}
