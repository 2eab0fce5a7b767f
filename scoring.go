// Score computation.
//
// The pipeline order is a contract: abstain-free average, base points,
// tension, tile modifier, high-energy bonus, then recipient routing.
// Reordering changes results (DOUBLE before tension rounds differently).

package main

import "math"

type scoreContext struct {
	task        TaskOption
	ratingSum   int
	ratingCount int // non-abstain ratings only
	modifier    ScoreModifier
	ability     SpecialAbility
	helperID    string
	targetID    string
	tension     float64
	highEnergy  bool
}

type ScoreAward struct {
	PlayerID  string `json:"player_id"`
	ScoreType string `json:"score_type"`
	Points    int    `json:"points"`
}

// computeAwards turns a finished task into point awards. Routing is first
// match wins: substitute, companion, voluntary helper, transfer, then the
// actor (plus a duplicated award on clone).
func computeAwards(actorID string, sc scoreContext) []ScoreAward {
	avg := 0.0
	if sc.ratingCount > 0 {
		avg = float64(sc.ratingSum) / float64(sc.ratingCount)
	}

	base := int(math.Ceil(avg * sc.task.Multiplier * 2))

	if sc.tension > 1.0 {
		base = int(math.Ceil(float64(base) * sc.tension))
	}

	switch sc.modifier {
	case ModifierDouble:
		base *= 2
	case ModifierHalf:
		base /= 2
	}

	if sc.highEnergy {
		base += 5
	}

	st := sc.task.ScoreType

	switch {
	case sc.ability == AbilitySubstitute && sc.helperID != "":
		return []ScoreAward{{PlayerID: sc.helperID, ScoreType: st, Points: base}}

	case sc.ability == AbilityCompanion && sc.helperID != "":
		return []ScoreAward{
			{PlayerID: actorID, ScoreType: st, Points: base},
			{PlayerID: sc.helperID, ScoreType: st, Points: base},
		}

	case sc.helperID != "":
		// Voluntary ask-for-help splits the award, helper rounding up.
		return []ScoreAward{
			{PlayerID: sc.helperID, ScoreType: st, Points: (base + 1) / 2},
			{PlayerID: actorID, ScoreType: st, Points: base / 2},
		}

	case sc.modifier == ModifierTransfer && sc.targetID != "":
		return []ScoreAward{{PlayerID: sc.targetID, ScoreType: st, Points: base}}
	}

	awards := []ScoreAward{{PlayerID: actorID, ScoreType: st, Points: base}}
	if sc.modifier == ModifierClone && sc.targetID != "" {
		// Duplicated in full, not split.
		awards = append(awards, ScoreAward{PlayerID: sc.targetID, ScoreType: st, Points: base})
	}
	return awards
}

// tensionMultiplier rewards landing outside the comfort zone.
//
// Hex mode reads the tile's function position in the actor's stack: the
// dominant pair is neutral, the tertiary mild, the inferior the designed
// boss fight, and shadow slots in between. Grid mode counts letter
// differences between the actor's type and the tile's type. Hub and
// wildcard tiles are always neutral.
func tensionMultiplier(b *Board, p *Player, tile Tile) float64 {
	if tile.FunctionID == wildcardFunction {
		return 1.0
	}

	if b.Mode == ModeJung8 {
		switch stackIndexOf(p.stack, tile.FunctionID) {
		case 0, 1:
			return 1.0
		case 2:
			return 1.2
		case 3:
			return 1.5
		case 4, 5, 6, 7:
			return 1.3
		}
		return 1.0
	}

	switch letterDiff(p.MBTI, tile.FunctionID) {
	case 0, 1:
		return 1.0
	case 2, 3:
		return 1.2
	}
	return 1.5
}
