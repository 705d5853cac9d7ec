package uci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorFoldsDeepestPerRank(t *testing.T) {
	a := newEvalAccumulator()
	a.start()

	a.fold(UciInfoLine{Depth: 5, MultiPV: 1, ScoreCp: 10, ScoreCpSet: true})
	a.fold(UciInfoLine{Depth: 8, MultiPV: 1, ScoreCp: 25, ScoreCpSet: true})
	a.fold(UciInfoLine{Depth: 6, MultiPV: 1, ScoreCp: 5, ScoreCpSet: true}) // shallower, ignored
	a.fold(UciInfoLine{Depth: 7, MultiPV: 2, ScoreMate: 3, ScoreMateSet: true})

	snap, ok := a.snapshot()
	require.True(t, ok)
	require.Equal(t, 2, snap.Len())

	entries := snap.Entries()
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 8, entries[0].Depth)
	assert.Equal(t, "25", entries[0].Score)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "mate 3", entries[1].Score)
}

func TestAccumulatorIgnoresLinesWithoutScore(t *testing.T) {
	a := newEvalAccumulator()
	a.start()
	a.fold(UciInfoLine{Depth: 10, MultiPV: 1})

	_, ok := a.snapshot()
	assert.False(t, ok)
}

func TestAccumulatorIgnoresFoldsWhileInactive(t *testing.T) {
	a := newEvalAccumulator()
	a.fold(UciInfoLine{Depth: 10, MultiPV: 1, ScoreCp: 1, ScoreCpSet: true})

	_, ok := a.snapshot()
	assert.False(t, ok)
}

func TestAccumulatorSnapshotClearsActive(t *testing.T) {
	a := newEvalAccumulator()
	a.start()
	a.fold(UciInfoLine{Depth: 1, MultiPV: 1, ScoreCp: 1, ScoreCpSet: true})
	a.snapshot()
	assert.False(t, a.active)
}

func TestAccumulatorDefaultsMissingMultiPVToRankOne(t *testing.T) {
	a := newEvalAccumulator()
	a.start()
	a.fold(UciInfoLine{Depth: 4, ScoreCp: 12, ScoreCpSet: true})

	snap, ok := a.snapshot()
	require.True(t, ok)
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, 1, snap.Entries()[0].Rank)
}
