package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zyedidia/generic/mapset"
)

func TestNewBoardUnknownMode(t *testing.T) {
	_, err := newBoard(GameMode("checkers"), rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestHexBoardLayout(t *testing.T) {
	b := newHexBoard(rand.New(rand.NewSource(42)))

	require.Len(t, b.Tiles, 61)

	hub, ok := b.At(0, 0)
	require.True(t, ok)
	assert.True(t, b.IsHub(hub))
	assert.Equal(t, wildcardFunction, b.Tiles[hub].FunctionID)
	assert.Equal(t, AbilityFreedom, b.Tiles[hub].Ability)

	counts := make(map[string]int)
	for i, tile := range b.Tiles {
		assert.Equal(t, i, tile.Index)
		counts[tile.FunctionID]++

		if tile.FunctionID == wildcardFunction {
			assert.NotEqual(t, AbilityNone, tile.Ability, "wildcard %d has no ability", i)
		} else {
			assert.NotEmpty(t, tile.CharacterName, "tile %d has no persona", i)
			assert.Equal(t, AbilityNone, tile.Ability)
		}
	}

	for _, f := range functionCodes {
		assert.Equal(t, 7, counts[f], f)
	}
	assert.Equal(t, 5, counts[wildcardFunction], "4 dealt wildcards plus the hub")
}

func TestGridBoardLayout(t *testing.T) {
	b := newGridBoard(rand.New(rand.NewSource(42)))

	require.Len(t, b.Tiles, 33)

	hub, ok := b.At(3, 3)
	require.True(t, ok)
	assert.True(t, b.IsHub(hub))
	assert.Equal(t, wildcardFunction, b.Tiles[hub].FunctionID)

	zones := make(map[string]map[string]int)
	for _, tile := range b.Tiles {
		if b.IsHub(tile.Index) {
			continue
		}
		require.True(t, isValidMBTI(tile.FunctionID), "tile %d holds %q", tile.Index, tile.FunctionID)
		assert.Equal(t, tile.Zone, temperamentOf(tile.FunctionID))

		if zones[tile.Zone] == nil {
			zones[tile.Zone] = make(map[string]int)
		}
		zones[tile.Zone][tile.FunctionID]++
	}

	require.Len(t, zones, 4)
	for group, members := range temperamentGroups {
		require.Contains(t, zones, group)
		for _, mbti := range members {
			assert.Equal(t, 2, zones[group][mbti], "%s in %s", mbti, group)
		}
	}
}

func TestBoardCoordinatesUnique(t *testing.T) {
	for _, mode := range []GameMode{ModeJung8, ModeMBTI16} {
		b, err := newBoard(mode, rand.New(rand.NewSource(7)))
		require.NoError(t, err)

		seen := make(map[[2]int]bool)
		for _, tile := range b.Tiles {
			key := [2]int{tile.Q, tile.R}
			assert.False(t, seen[key], "%s duplicates %v", mode, key)
			seen[key] = true

			idx, ok := b.At(tile.Q, tile.R)
			require.True(t, ok)
			assert.Equal(t, tile.Index, idx)
		}
	}
}

func TestBoardConnectivity(t *testing.T) {
	for _, mode := range []GameMode{ModeJung8, ModeMBTI16} {
		b, err := newBoard(mode, rand.New(rand.NewSource(99)))
		require.NoError(t, err)

		visited := mapset.New[int]()
		queue := []int{b.hubIndex}
		visited.Put(b.hubIndex)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range b.neighborIndexes(cur) {
				if !visited.Has(n) {
					visited.Put(n)
					queue = append(queue, n)
				}
			}
		}

		assert.Equal(t, len(b.Tiles), visited.Size(), mode)
	}
}

func TestBoardNeighborCounts(t *testing.T) {
	hex := newHexBoard(rand.New(rand.NewSource(3)))
	for _, tile := range hex.Tiles {
		n := len(hex.neighborIndexes(tile.Index))
		assert.GreaterOrEqual(t, n, 3, "hex tile %d", tile.Index)
		assert.LessOrEqual(t, n, 6, "hex tile %d", tile.Index)
	}

	// Every grid tile keeps at least two exits, so a non-backtracking walk
	// can never strand a player.
	grid := newGridBoard(rand.New(rand.NewSource(3)))
	for _, tile := range grid.Tiles {
		n := len(grid.neighborIndexes(tile.Index))
		assert.GreaterOrEqual(t, n, 2, "grid tile %d", tile.Index)
		assert.LessOrEqual(t, n, 4, "grid tile %d", tile.Index)
	}
}

func TestDrawModifierWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	counts := make(map[ScoreModifier]int)
	for i := 0; i < 10000; i++ {
		m := drawModifier(rng)
		require.Contains(t, modifierNames, m)
		counts[m]++
	}

	// Normal carries half the weight; the tail shares the rest.
	assert.Greater(t, counts[ModifierNormal], counts[ModifierDouble])
	assert.Greater(t, counts[ModifierDouble], 0)
	assert.Greater(t, counts[ModifierHalf], 0)
	assert.Greater(t, counts[ModifierClone], 0)
	assert.Greater(t, counts[ModifierTransfer], 0)
}
