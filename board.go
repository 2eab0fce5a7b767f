// Board generation for the two game modes.
//
// JUNG_8 is a hub-and-spoke hexagonal board of radius 4 (61 tiles) using
// axial coordinates. The 60 non-hub tiles are dealt from a shuffled deck of
// 8 cognitive functions x 7 plus 4 wildcards; wildcards carry a special
// ability, everything else draws a weighted score modifier.
//
// MBTI_16 is a 7x7 square grid shaped like the character 田 (33 tiles):
// the outline plus a center cross. The hub sits at (3,3); each of the four
// pinwheel quadrants holds one temperament group, with each of its 4 types
// duplicated across the quadrant's 8 slots.

package main

import (
	"fmt"
	"math/rand"
	"sort"
)

type GameMode string

const (
	ModeJung8  GameMode = "jung8"
	ModeMBTI16 GameMode = "mbti16"
)

const wildcardFunction = "?"

type ScoreModifier int

const (
	ModifierNormal ScoreModifier = iota
	ModifierDouble
	ModifierHalf
	ModifierClone
	ModifierTransfer
)

var modifierNames = map[ScoreModifier]string{
	ModifierNormal:   "normal",
	ModifierDouble:   "double",
	ModifierHalf:     "half",
	ModifierClone:    "clone",
	ModifierTransfer: "transfer",
}

func (m ScoreModifier) String() string {
	if s, ok := modifierNames[m]; ok {
		return s
	}
	return "unknown"
}

type SpecialAbility int

const (
	AbilityNone SpecialAbility = iota
	AbilityFreedom
	AbilitySubstitute
	AbilityCompanion
)

var abilityNames = map[SpecialAbility]string{
	AbilityNone:       "none",
	AbilityFreedom:    "freedom",
	AbilitySubstitute: "substitute",
	AbilityCompanion:  "companion",
}

func (a SpecialAbility) String() string {
	if s, ok := abilityNames[a]; ok {
		return s
	}
	return "unknown"
}

type Tile struct {
	Index         int            `json:"index"`
	FunctionID    string         `json:"function_id"`
	CharacterName string         `json:"character_name,omitempty"`
	Modifier      ScoreModifier  `json:"modifier"`
	Ability       SpecialAbility `json:"ability"`
	Q             int            `json:"q"`
	R             int            `json:"r"`
	Zone          string         `json:"zone,omitempty"`
}

// Board is generated once per game and never mutated afterwards.
type Board struct {
	Mode     GameMode `json:"mode"`
	Tiles    []Tile   `json:"tiles"`
	hubIndex int
	coords   map[[2]int]int
}

// Axial neighbor offsets for the hex board.
var hexDirections = [6][2]int{
	{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

// Cardinal neighbor offsets for the square board.
var gridDirections = [4][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
}

// Modifier draw weights out of 100, in ScoreModifier order.
var modifierWeights = [5]int{50, 20, 10, 10, 10}

// Ability deck consumed by non-hub wildcard tiles, shuffled at generation.
var wildcardAbilityDeck = [4]SpecialAbility{
	AbilityFreedom, AbilitySubstitute, AbilityCompanion, AbilityFreedom,
}

func drawModifier(rng *rand.Rand) ScoreModifier {
	roll := rng.Intn(100)
	acc := 0
	for m, w := range modifierWeights {
		acc += w
		if roll < acc {
			return ScoreModifier(m)
		}
	}
	return ModifierNormal
}

func newBoard(mode GameMode, rng *rand.Rand) (*Board, error) {
	switch mode {
	case ModeJung8:
		return newHexBoard(rng), nil
	case ModeMBTI16:
		return newGridBoard(rng), nil
	}
	return nil, fmt.Errorf("unknown game mode: %q", mode)
}

func newHexBoard(rng *rand.Rand) *Board {
	const radius = 4

	b := &Board{
		Mode:   ModeJung8,
		coords: make(map[[2]int]int),
	}

	// Deck of 60: each function 7 times plus 4 wildcards.
	deck := make([]string, 0, 60)
	for _, f := range functionCodes {
		for i := 0; i < 7; i++ {
			deck = append(deck, f)
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, wildcardFunction)
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	abilities := wildcardAbilityDeck
	rng.Shuffle(len(abilities), func(i, j int) {
		abilities[i], abilities[j] = abilities[j], abilities[i]
	})
	nextAbility := 0

	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			if q+r < -radius || q+r > radius {
				continue
			}

			idx := len(b.Tiles)
			tile := Tile{
				Index: idx,
				Q:     q,
				R:     r,
			}

			if q == 0 && r == 0 {
				tile.FunctionID = wildcardFunction
				tile.CharacterName = "Hub"
				tile.Ability = AbilityFreedom
				b.hubIndex = idx
			} else {
				tile.FunctionID = deck[0]
				deck = deck[1:]

				if tile.FunctionID == wildcardFunction {
					tile.Ability = abilities[nextAbility]
					nextAbility++
				} else {
					tile.CharacterName = functionArchetypes[tile.FunctionID]
					tile.Modifier = drawModifier(rng)
				}
			}

			b.coords[[2]int{q, r}] = idx
			b.Tiles = append(b.Tiles, tile)
		}
	}

	return b
}

// gridQuadrantSlots lists the 8 coordinate slots of the north-west quadrant:
// its five outline cells plus the upper half of the north spine. The other
// quadrants are produced by rotating a quarter turn around the hub.
var gridQuadrantSlots = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1}, {0, 2},
	{3, 0}, {3, 1}, {3, 2},
}

func rotateSlot(x, y, times int) (int, int) {
	for i := 0; i < times; i++ {
		x, y = 6-y, x
	}
	return x, y
}

func newGridBoard(rng *rand.Rand) *Board {
	b := &Board{
		Mode:   ModeMBTI16,
		coords: make(map[[2]int]int),
	}

	add := func(tile Tile) int {
		tile.Index = len(b.Tiles)
		b.coords[[2]int{tile.Q, tile.R}] = tile.Index
		b.Tiles = append(b.Tiles, tile)
		return tile.Index
	}

	b.hubIndex = add(Tile{
		FunctionID:    wildcardFunction,
		CharacterName: "Hub",
		Ability:       AbilityFreedom,
		Q:             3,
		R:             3,
	})

	groups := make([]string, 0, len(temperamentGroups))
	for g := range temperamentGroups {
		groups = append(groups, g)
	}
	// Map iteration order is not seedable, so fix it before shuffling.
	sort.Strings(groups)
	rng.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})

	for quadrant, group := range groups {
		// Duplicate each of the group's 4 types and shuffle into 8 slots.
		types := make([]string, 0, 8)
		for _, t := range temperamentGroups[group] {
			types = append(types, t, t)
		}
		rng.Shuffle(len(types), func(i, j int) {
			types[i], types[j] = types[j], types[i]
		})

		for slot, rel := range gridQuadrantSlots {
			x, y := rotateSlot(rel[0], rel[1], quadrant)
			add(Tile{
				FunctionID:    types[slot],
				CharacterName: typeArchetypes[types[slot]],
				Modifier:      drawModifier(rng),
				Q:             x,
				R:             y,
				Zone:          group,
			})
		}
	}

	return b
}

// At looks up a tile index by coordinate.
func (b *Board) At(q, r int) (int, bool) {
	idx, ok := b.coords[[2]int{q, r}]
	return idx, ok
}

func (b *Board) IsHub(idx int) bool {
	return idx == b.hubIndex
}

func (b *Board) isWildcard(idx int) bool {
	return b.Tiles[idx].FunctionID == wildcardFunction
}

// neighborIndexes returns adjacent tile indexes. Offsets that fall outside
// the board are silently excluded, truncating at the boundary.
func (b *Board) neighborIndexes(idx int) []int {
	tile := b.Tiles[idx]

	var dirs [][2]int
	if b.Mode == ModeJung8 {
		dirs = hexDirections[:]
	} else {
		dirs = gridDirections[:]
	}

	out := make([]int, 0, len(dirs))
	for _, d := range dirs {
		if n, ok := b.At(tile.Q+d[0], tile.R+d[1]); ok {
			out = append(out, n)
		}
	}
	return out
}
