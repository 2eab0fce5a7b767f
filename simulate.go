// The simulate subcommand runs a complete bot-only game headlessly and
// prints the result. Useful for balance tuning and as an end-to-end smoke
// test of the turn engine without a browser in the loop.

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var (
	colorTurn   = color.Style{color.FgCyan}
	colorEvent  = color.Style{color.FgGray}
	colorScore  = color.Style{color.FgGreen, color.OpBold}
	colorWinner = color.Style{color.FgYellow, color.OpBold}
)

func newSimulateCmd(cfg *Config) *cobra.Command {
	var (
		mode    string
		players int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a bot-only game and print the outcome.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if players < 1 {
				return fmt.Errorf("invalid player count (must be at least 1): %d", players)
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			return runSimulation(cfg, GameMode(mode), players, seed)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&mode, "mode", "m", string(ModeJung8), "board mode (jung8 or mbti16)")
	fs.IntVarP(&players, "players", "n", 4, "number of bot players")
	fs.Int64VarP(&seed, "seed", "s", 0, "RNG seed (0 picks one from the clock)")

	return cmd
}

func runSimulation(cfg *Config, mode GameMode, players int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	game, err := newGame(cfg, mode, rng, fallbackGenerator{})
	if err != nil {
		return err
	}

	for i := 0; i < players; i++ {
		mbti := mbtiTypes[rng.Intn(len(mbtiTypes))]
		name := fmt.Sprintf("Bot %d", i+1)
		if _, err := game.AddPlayer(fmt.Sprintf("bot-%d", i+1), name, mbti, true); err != nil {
			return err
		}
	}

	if err := game.Start(); err != nil {
		return err
	}

	color.Printf("rainbowboat simulation: mode=%s players=%d seed=%d\n\n", mode, players, seed)

	driver := newBotDriver(game, 0, rand.New(rand.NewSource(rng.Int63())))

	lastTurn := -1
	printed := 0
	stalls := 0
	for i := 0; i < 100000; i++ {
		snap := game.Snapshot()
		if snap.Phase == PhaseAnalysis {
			break
		}

		if snap.Turn != lastTurn {
			lastTurn = snap.Turn
			name := snap.CurrentID
			for _, p := range snap.Players {
				if p.ID == snap.CurrentID {
					name = fmt.Sprintf("%s (%s)", p.Name, p.MBTI)
					break
				}
			}
			colorTurn.Printf("turn %d: %s\n", snap.Turn+1, name)
		}

		action, ok := driver.decide(snap)
		if !ok {
			// Usually a task fetch still in flight.
			stalls++
			if stalls > 1000 {
				return fmt.Errorf("simulation stalled in %s/%s", snap.SubPhase, snap.MoveState)
			}
			time.Sleep(2 * time.Millisecond)
			continue
		}
		stalls = 0
		action()

		entries := game.LogEntries()
		for ; printed < len(entries); printed++ {
			e := entries[printed]
			if e.Event == "points_awarded" || e.Event == "ability" {
				colorEvent.Printf("  %s: %s %s\n", e.PlayerID, e.Event, e.Detail)
			}
		}
	}

	final := game.Snapshot()
	fmt.Println()
	colorScore.Println("final scores")

	bestID, bestTotal := "", -1
	for _, p := range final.Players {
		total := p.TrustScore + p.InsightScore + p.ExpressionScore
		fmt.Printf("  %-12s %s  trust=%-4d insight=%-4d expression=%-4d total=%d\n",
			p.Name, p.MBTI, p.TrustScore, p.InsightScore, p.ExpressionScore, total)
		if total > bestTotal {
			bestID, bestTotal = p.Name, total
		}
	}

	colorWinner.Printf("\n%s takes the voyage with %d points\n", bestID, bestTotal)

	encoded, err := EncodeSummary(game.Summary())
	if err != nil {
		return err
	}
	colorEvent.Printf("\nshare string (%s)\n%s\n", humanReadableSize(int64(len(encoded))), encoded)

	return nil
}
