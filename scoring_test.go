package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskWithMultiplier(m float64) TaskOption {
	return TaskOption{
		Category:        CategoryStandard,
		Title:           "Snapshot",
		ScoreType:       ScoreTrust,
		DurationSeconds: 60,
		Multiplier:      m,
	}
}

func TestComputeAwardsBasePoints(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   9,
		ratingCount: 2, // avg 4.5
		tension:     1.0,
	})

	require.Len(t, awards, 1)
	assert.Equal(t, ScoreAward{PlayerID: "alice", ScoreType: ScoreTrust, Points: 9}, awards[0])
}

func TestComputeAwardsPipelineOrder(t *testing.T) {
	// ceil(4.5 * 1.2 * 2) = 11, then ceil(11 * 1.5) = 17, then doubled,
	// then the energy bonus. Applying DOUBLE before tension would give 38.
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.2),
		ratingSum:   9,
		ratingCount: 2,
		modifier:    ModifierDouble,
		tension:     1.5,
		highEnergy:  true,
	})

	require.Len(t, awards, 1)
	assert.Equal(t, 39, awards[0].Points)
}

func TestComputeAwardsNeutralTensionSkipsCeiling(t *testing.T) {
	// base ceil(3.5 * 1.2 * 2) = ceil(8.4) = 9; tension 1.0 must not
	// re-round it.
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.2),
		ratingSum:   7,
		ratingCount: 2,
		tension:     1.0,
	})

	require.Len(t, awards, 1)
	assert.Equal(t, 9, awards[0].Points)
}

func TestComputeAwardsHalf(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   9,
		ratingCount: 2,
		modifier:    ModifierHalf,
		tension:     1.0,
	})

	require.Len(t, awards, 1)
	assert.Equal(t, 4, awards[0].Points)
}

func TestComputeAwardsAllAbstained(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:    taskWithMultiplier(1.5),
		tension: 1.5,
	})

	require.Len(t, awards, 1)
	assert.Zero(t, awards[0].Points)

	// The energy bonus still lands on a zero base.
	awards = computeAwards("alice", scoreContext{
		task:       taskWithMultiplier(1.5),
		tension:    1.5,
		highEnergy: true,
	})
	assert.Equal(t, 5, awards[0].Points)
}

func TestComputeAwardsSubstituteRouting(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   10,
		ratingCount: 2,
		ability:     AbilitySubstitute,
		helperID:    "bob",
		tension:     1.0,
	})

	require.Len(t, awards, 1)
	assert.Equal(t, ScoreAward{PlayerID: "bob", ScoreType: ScoreTrust, Points: 10}, awards[0])
}

func TestComputeAwardsCompanionRouting(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   10,
		ratingCount: 2,
		ability:     AbilityCompanion,
		helperID:    "bob",
		tension:     1.0,
	})

	require.Len(t, awards, 2)
	assert.Equal(t, 10, awards[0].Points)
	assert.Equal(t, 10, awards[1].Points)
	assert.ElementsMatch(t, []string{"alice", "bob"}, []string{awards[0].PlayerID, awards[1].PlayerID})
}

func TestComputeAwardsVoluntaryHelperSplit(t *testing.T) {
	// Odd base splits 5/4 with the helper rounding up.
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   9,
		ratingCount: 2,
		helperID:    "bob",
		tension:     1.0,
	})

	require.Len(t, awards, 2)
	assert.Equal(t, ScoreAward{PlayerID: "bob", ScoreType: ScoreTrust, Points: 5}, awards[0])
	assert.Equal(t, ScoreAward{PlayerID: "alice", ScoreType: ScoreTrust, Points: 4}, awards[1])
}

func TestComputeAwardsHelperBeatsTransfer(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   10,
		ratingCount: 2,
		modifier:    ModifierTransfer,
		helperID:    "bob",
		targetID:    "carol",
		tension:     1.0,
	})

	require.Len(t, awards, 2)
	for _, a := range awards {
		assert.NotEqual(t, "carol", a.PlayerID)
	}
}

func TestComputeAwardsTransfer(t *testing.T) {
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   10,
		ratingCount: 2,
		modifier:    ModifierTransfer,
		targetID:    "carol",
		tension:     1.0,
	})

	require.Len(t, awards, 1)
	assert.Equal(t, ScoreAward{PlayerID: "carol", ScoreType: ScoreTrust, Points: 10}, awards[0])
}

func TestComputeAwardsCloneDuplicates(t *testing.T) {
	// Clone copies in full; it is not a split.
	awards := computeAwards("alice", scoreContext{
		task:        taskWithMultiplier(1.0),
		ratingSum:   10,
		ratingCount: 2,
		modifier:    ModifierClone,
		targetID:    "carol",
		tension:     1.0,
	})

	require.Len(t, awards, 2)
	assert.Equal(t, ScoreAward{PlayerID: "alice", ScoreType: ScoreTrust, Points: 10}, awards[0])
	assert.Equal(t, ScoreAward{PlayerID: "carol", ScoreType: ScoreTrust, Points: 10}, awards[1])
}

func TestTensionMultiplierHex(t *testing.T) {
	b := &Board{Mode: ModeJung8}
	p := &Player{MBTI: "INTJ", stack: cognitiveStack("INTJ")}

	cases := map[string]float64{
		"Ni": 1.0, // dominant
		"Te": 1.0, // auxiliary
		"Fi": 1.2, // tertiary
		"Se": 1.5, // inferior
		"Ne": 1.3, // shadow
		"Si": 1.3,
		"?":  1.0,
	}
	for f, want := range cases {
		assert.Equal(t, want, tensionMultiplier(b, p, Tile{FunctionID: f}), f)
	}
}

func TestTensionMultiplierGrid(t *testing.T) {
	b := &Board{Mode: ModeMBTI16}
	p := &Player{MBTI: "INTJ"}

	cases := map[string]float64{
		"INTJ": 1.0,
		"ENTJ": 1.0,
		"INFP": 1.2,
		"ENFP": 1.2,
		"ESFP": 1.5,
		"?":    1.0,
	}
	for mbti, want := range cases {
		assert.Equal(t, want, tensionMultiplier(b, p, Tile{FunctionID: mbti}), mbti)
	}
}
