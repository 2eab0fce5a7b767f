package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryRoundTrip(t *testing.T) {
	s := GameSummary{
		Mode:      ModeJung8,
		StartedAt: time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC),
		Turns:     20,
		Players: []PlayerSummary{
			{
				Name:            "Alice",
				MBTI:            "INTJ",
				TrustScore:      42,
				InsightScore:    17,
				ExpressionScore: 9,
				Stats: BehaviorStats{
					CategoryCounts:       map[TaskCategory]int{CategoryDare: 3, CategoryDeep: 2},
					CumulativeMultiplier: 6.4,
					HighEnergyEvents:     1,
					HelpGiven:            2,
				},
			},
			{Name: "Bot 1", MBTI: "ESFP", IsBot: true, TrustScore: 30},
		},
	}

	enc, err := EncodeSummary(s)
	require.NoError(t, err)
	assert.NotContains(t, enc, "+", "share strings must be URL safe")
	assert.NotContains(t, enc, "/")

	got, err := DecodeSummary(enc)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeSummaryRejectsGarbage(t *testing.T) {
	for name, input := range map[string]string{
		"not base64": "!!!",
		"not gzip":   "aGVsbG8",
		"empty":      "",
		"truncated":  "H4sIAAAAAAAA",
	} {
		_, err := DecodeSummary(input)
		assert.ErrorContains(t, err, "malformed share string", name)
	}
}

func TestGameSummarySnapshot(t *testing.T) {
	g := newTestGame(t, ModeMBTI16, 2)
	require.NoError(t, g.Start())

	s := g.Summary()
	assert.Equal(t, ModeMBTI16, s.Mode)
	assert.Len(t, s.Players, 2)
	assert.False(t, s.StartedAt.IsZero())
}
