// Autonomous players.
//
// Bots are driven through the same public entry points as the websocket
// layer. The driver schedules one decision per state change; because the
// engine rejects transitions that no longer apply, a stale timer firing
// after the state has moved on is a harmless no-op.

package main

import (
	"math/rand"
	"sync"
	"time"
)

type botDriver struct {
	game  *Game
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// newBotDriver takes ownership of rng. It must not be shared with the
// engine: bot timers and engine rolls run on different goroutines under
// different locks.
func newBotDriver(game *Game, delay time.Duration, rng *rand.Rand) *botDriver {
	return &botDriver{
		game:  game,
		delay: delay,
		rng:   rng,
	}
}

// onChange schedules the next autonomous action, if any bot has one.
func (d *botDriver) onChange() {
	snap := d.game.Snapshot()
	if _, ok := d.decide(snap); !ok {
		return
	}
	time.AfterFunc(d.delay, d.act)
}

// act re-derives the decision from fresh state before acting.
func (d *botDriver) act() {
	snap := d.game.Snapshot()
	if action, ok := d.decide(snap); ok {
		action()
	}
}

func (d *botDriver) intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(n)
}

func (d *botDriver) pickTile(moves []int) int {
	return moves[d.intn(len(moves))]
}

func (d *botDriver) pickOther(snap Snapshot, actorID string) string {
	others := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		if p.ID != actorID {
			others = append(others, p.ID)
		}
	}
	if len(others) == 0 {
		return ""
	}
	return others[d.intn(len(others))]
}

func (d *botDriver) isBot(snap Snapshot, id string) bool {
	for _, p := range snap.Players {
		if p.ID == id {
			return p.IsBot
		}
	}
	return false
}

// decide maps the observable state to the bot's next call. Bots rate
// generously (3-5 stars) and choose uniformly among legal options
// everywhere else.
func (d *botDriver) decide(snap Snapshot) (func(), bool) {
	if snap.Phase != PhasePlaying {
		return nil, false
	}

	g := d.game

	if snap.SubPhase == SubPeerReview {
		reviewer := snap.ReviewerID
		if reviewer == "" || !d.isBot(snap, reviewer) {
			return nil, false
		}
		return func() {
			g.SubmitRating(reviewer, 3+d.intn(3))
		}, true
	}

	id := snap.CurrentID
	if id == "" || !d.isBot(snap, id) {
		return nil, false
	}

	switch snap.SubPhase {
	case SubIdle:
		if snap.MoveState == MoveTeleporting || snap.RemainingSteps > 0 {
			if len(snap.LegalMoves) == 0 {
				return nil, false
			}
			tile := d.pickTile(snap.LegalMoves)
			return func() { g.SelectTile(id, tile) }, true
		}
		return func() { g.RollDice(id, 0) }, true

	case SubSelectingCard:
		if snap.PendingCategory != "" {
			// Fetch in flight; the delivery callback re-triggers us.
			return nil, false
		}
		cat := taskCategories[d.intn(len(taskCategories))]
		return func() { g.SelectCategory(id, cat) }, true

	case SubViewingTask:
		return func() { g.StartTask(id) }, true

	case SubTaskExecution:
		return func() { g.CompleteTask(id, "", nil) }, true

	case SubSelectingSubstitute, SubSelectingCompanion, SubChoosingHelper:
		target := d.pickOther(snap, id)
		if target == "" {
			return nil, false
		}
		return func() { g.SelectHelper(id, target) }, true

	case SubSelectingScoreTarget:
		target := d.pickOther(snap, id)
		if target == "" {
			return nil, false
		}
		return func() { g.SelectTarget(id, target) }, true
	}

	return nil, false
}
