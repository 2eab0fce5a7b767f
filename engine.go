// The turn state machine.
//
// A Game owns all mutable state for one session and exposes only intent
// methods (RollDice, SelectTile, ...). Humans and bots drive the exact same
// entry points; there is no privileged bot API. Every method locks, checks
// preconditions, applies the transition atomically, and reports acceptance.
// Invalid attempts are benign no-ops.
//
// Scheduled work (task countdown, speculative fetches) captures the action
// sequence number or the turn counter and re-checks it under the lock before
// acting, so nothing fires against a state the game has already left.

package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

type Phase int

const (
	PhaseHub Phase = iota
	PhaseOnboarding
	PhaseLoading
	PhasePlaying
	PhaseAnalysis
)

var phaseNames = map[Phase]string{
	PhaseHub:        "Hub",
	PhaseOnboarding: "Onboarding",
	PhaseLoading:    "Loading",
	PhasePlaying:    "Playing",
	PhaseAnalysis:   "Analysis",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "Unknown"
}

type SubPhase int

const (
	SubIdle SubPhase = iota
	SubSelectingCard
	SubViewingTask
	SubTaskExecution
	SubPeerReview
	SubSelectingScoreTarget
	SubSelectingSubstitute
	SubSelectingCompanion
	SubChoosingHelper
)

var subPhaseNames = map[SubPhase]string{
	SubIdle:                 "Idle",
	SubSelectingCard:        "SelectingCard",
	SubViewingTask:          "ViewingTask",
	SubTaskExecution:        "TaskExecution",
	SubPeerReview:           "PeerReview",
	SubSelectingScoreTarget: "SelectingScoreTarget",
	SubSelectingSubstitute:  "SelectingSubstitute",
	SubSelectingCompanion:   "SelectingCompanion",
	SubChoosingHelper:       "ChoosingHelper",
}

func (p SubPhase) String() string {
	if s, ok := subPhaseNames[p]; ok {
		return s
	}
	return "Unknown"
}

type MovementState int

const (
	MoveIdle MovementState = iota
	MoveRolling
	MoveStep
	MoveTeleporting
)

var movementNames = map[MovementState]string{
	MoveIdle:        "Idle",
	MoveRolling:     "Rolling",
	MoveStep:        "MovingStep",
	MoveTeleporting: "Teleporting",
}

func (m MovementState) String() string {
	if s, ok := movementNames[m]; ok {
		return s
	}
	return "Unknown"
}

const (
	diceSides   = 8
	maxHelpUses = 3
	logTail     = 5
)

type BehaviorStats struct {
	CategoryCounts       map[TaskCategory]int `json:"category_counts"`
	CumulativeMultiplier float64              `json:"cumulative_multiplier"`
	HighEnergyEvents     int                  `json:"high_energy_events"`
	HelpGiven            int                  `json:"help_given"`
	HelpReceived         int                  `json:"help_received"`
}

// clone deep-copies the stats. Snapshots and summaries escape the engine
// lock (broadcast goroutines marshal them), so they must not alias the
// live category map.
func (s BehaviorStats) clone() BehaviorStats {
	out := s
	out.CategoryCounts = make(map[TaskCategory]int, len(s.CategoryCounts))
	for cat, n := range s.CategoryCounts {
		out.CategoryCounts[cat] = n
	}
	return out
}

type Player struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	IsBot            bool          `json:"is_bot"`
	MBTI             string        `json:"mbti"`
	Position         int           `json:"position"`
	PreviousPosition int           `json:"previous_position"` // -1 before the first step
	StackIndex       int           `json:"stack_index"`
	SkipUsed         int           `json:"skip_used"`
	HelpUsed         int           `json:"help_used"`
	TrustScore       int           `json:"trust_score"`
	InsightScore     int           `json:"insight_score"`
	ExpressionScore  int           `json:"expression_score"`
	TotalRatingGiven int           `json:"total_rating_given"`
	Stats            BehaviorStats `json:"stats"`

	stack [8]string
}

type LogEntry struct {
	Turn     int       `json:"turn"`
	PlayerID string    `json:"player_id"`
	Event    string    `json:"event"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Game is the single owner of all session state.
type Game struct {
	mu sync.Mutex

	cfg   *Config
	mode  GameMode
	board *Board
	rng   *rand.Rand
	gen   TaskGenerator

	players []*Player
	current int
	turn    int

	phase     Phase
	subPhase  SubPhase
	moveState MovementState

	remainingSteps int
	diceValue      int
	sightRange     int

	activeModifier ScoreModifier
	activeAbility  SpecialAbility
	helperID       string
	scoreTargetID  string

	reviewQueue []string
	reviewSum   int
	reviewCount int

	cache           map[int]TaskSet
	inflight        map[int]struct{}
	pendingCategory TaskCategory
	currentTask     *TaskOption
	reselected      bool

	highEnergy bool

	legal      []int
	logEntries []LogEntry
	startedAt  time.Time

	seq       uint64
	taskTimer *time.Timer

	// onChange is invoked (outside the lock) after every accepted
	// transition; the hub broadcasts and the bot driver schedules off it.
	onChange func()
}

func newGame(cfg *Config, mode GameMode, rng *rand.Rand, gen TaskGenerator) (*Game, error) {
	board, err := newBoard(mode, rng)
	if err != nil {
		return nil, err
	}

	return &Game{
		cfg:      cfg,
		mode:     mode,
		board:    board,
		rng:      rng,
		gen:      gen,
		phase:    PhaseHub,
		cache:    make(map[int]TaskSet),
		inflight: make(map[int]struct{}),
	}, nil
}

func (g *Game) setOnChange(fn func()) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

func (g *Game) emit() {
	g.mu.Lock()
	fn := g.onChange
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// bumpLocked invalidates any scheduled work and recomputes derived state.
func (g *Game) bumpLocked() {
	g.seq++
	g.legal = g.legalMovesLocked()
}

// AddPlayer registers a player before the game starts. The starting tile is
// a random non-hub tile.
func (g *Game) AddPlayer(id, name, mbti string, isBot bool) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseHub {
		return nil, fmt.Errorf("game already started")
	}
	if !isValidMBTI(mbti) {
		return nil, fmt.Errorf("invalid MBTI type: %q", mbti)
	}
	for _, p := range g.players {
		if p.ID == id {
			return nil, fmt.Errorf("player %q already joined", id)
		}
	}

	start := g.rng.Intn(len(g.board.Tiles))
	for g.board.IsHub(start) {
		start = g.rng.Intn(len(g.board.Tiles))
	}

	p := &Player{
		ID:               id,
		Name:             name,
		IsBot:            isBot,
		MBTI:             mbti,
		Position:         start,
		PreviousPosition: -1,
		stack:            cognitiveStack(mbti),
		Stats: BehaviorStats{
			CategoryCounts: make(map[TaskCategory]int),
		},
	}
	g.players = append(g.players, p)
	return p, nil
}

func (g *Game) Start() error {
	g.mu.Lock()

	if g.phase != PhaseHub {
		g.mu.Unlock()
		return fmt.Errorf("game already started")
	}
	if len(g.players) == 0 {
		g.mu.Unlock()
		return fmt.Errorf("no players joined")
	}

	g.phase = PhasePlaying
	g.startedAt = time.Now()
	g.logLocked("", "game_started", string(g.mode))
	g.bumpLocked()
	g.mu.Unlock()

	g.emit()
	return nil
}

func (g *Game) currentPlayerLocked() *Player {
	if g.current < 0 || g.current >= len(g.players) {
		return nil
	}
	return g.players[g.current]
}

func (g *Game) playerByIDLocked(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) logLocked(playerID, event, detail string) {
	g.logEntries = append(g.logEntries, LogEntry{
		Turn:     g.turn,
		PlayerID: playerID,
		Event:    event,
		Detail:   detail,
		At:       time.Now(),
	})
}

func (g *Game) legalMovesLocked() []int {
	p := g.currentPlayerLocked()
	if p == nil || g.phase != PhasePlaying || g.subPhase != SubIdle {
		return nil
	}
	if g.moveState != MoveTeleporting && g.remainingSteps == 0 {
		return nil
	}
	return legalNextSteps(g.board, moveQuery{
		pos:         p.Position,
		prev:        p.PreviousPosition,
		teleporting: g.moveState == MoveTeleporting,
		stack:       p.stack,
		stackIndex:  p.StackIndex,
	})
}

// RollDice starts the current player's movement. A positive override
// replaces the random roll (host-supplied manual dice).
func (g *Game) RollDice(playerID string, override int) bool {
	g.mu.Lock()
	ok := g.rollLocked(playerID, override)
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) rollLocked(playerID string, override int) bool {
	p := g.currentPlayerLocked()
	if p == nil || p.ID != playerID {
		return false
	}
	if g.phase != PhasePlaying || g.subPhase != SubIdle ||
		g.moveState != MoveIdle || g.remainingSteps != 0 {
		return false
	}

	if override >= 1 && override <= diceSides {
		g.diceValue = override
	} else {
		g.diceValue = 1 + g.rng.Intn(diceSides)
	}
	// Fog of war is a grid-mode rule; hex boards are fully visible.
	g.sightRange = 0
	if g.mode == ModeMBTI16 {
		g.sightRange = 1 + g.rng.Intn(2)
	}
	g.remainingSteps = g.diceValue

	// The per-turn cache is invalidated exactly once, here.
	g.cache = make(map[int]TaskSet)
	g.inflight = make(map[int]struct{})

	g.logLocked(p.ID, "rolled", fmt.Sprintf("%d", g.diceValue))
	g.bumpLocked()

	g.prefetchLocked(reachableInSteps(g.board, moveQuery{
		pos:        p.Position,
		prev:       p.PreviousPosition,
		stack:      p.stack,
		stackIndex: p.StackIndex,
	}, g.diceValue))

	return true
}

// SelectTile applies one movement step (or the teleport jump).
func (g *Game) SelectTile(playerID string, idx int) bool {
	g.mu.Lock()
	ok := g.stepLocked(playerID, idx)
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) stepLocked(playerID string, idx int) bool {
	p := g.currentPlayerLocked()
	if p == nil || p.ID != playerID {
		return false
	}
	if g.phase != PhasePlaying || g.subPhase != SubIdle {
		return false
	}
	if g.moveState != MoveTeleporting && (g.remainingSteps == 0 || g.moveState != MoveIdle) {
		return false
	}

	allowed := false
	for _, m := range g.legal {
		if m == idx {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	viaTeleport := g.moveState == MoveTeleporting

	p.PreviousPosition = p.Position
	p.Position = idx

	tile := g.board.Tiles[idx]
	if g.mode == ModeJung8 && tile.FunctionID != wildcardFunction {
		p.StackIndex = advanceStack(p.stack, p.StackIndex, tile.FunctionID)
	}

	// Teleport always ends movement regardless of the dice value. "Landed"
	// is decided here, not re-read from shared state afterwards.
	var landed bool
	if viaTeleport {
		g.remainingSteps = 0
		g.moveState = MoveIdle
		landed = true
	} else {
		g.remainingSteps--
		landed = g.remainingSteps == 0
	}

	g.bumpLocked()

	if !landed {
		g.prefetchLocked(reachableInSteps(g.board, moveQuery{
			pos:        p.Position,
			prev:       p.PreviousPosition,
			stack:      p.stack,
			stackIndex: p.StackIndex,
		}, g.remainingSteps))
		return true
	}

	g.resolveLandingLocked(p, tile, viaTeleport)
	return true
}

func (g *Game) resolveLandingLocked(p *Player, tile Tile, viaTeleport bool) {
	g.activeModifier = tile.Modifier

	// A bound substitute/companion helper survives the teleport landing;
	// the destination tile must not clobber the reward routing.
	helperAbility := g.helperID != "" &&
		(g.activeAbility == AbilitySubstitute || g.activeAbility == AbilityCompanion)
	if !helperAbility {
		g.activeAbility = tile.Ability
	}

	ability := tile.FunctionID == wildcardFunction && tile.Ability != AbilityNone &&
		!(g.board.IsHub(tile.Index) && viaTeleport)

	if ability {
		switch tile.Ability {
		case AbilityFreedom:
			g.moveState = MoveTeleporting
			g.logLocked(p.ID, "ability", "freedom")
			g.bumpLocked()
			return
		case AbilitySubstitute:
			if len(g.players) > 1 {
				g.subPhase = SubSelectingSubstitute
				g.logLocked(p.ID, "ability", "substitute")
				g.bumpLocked()
				return
			}
		case AbilityCompanion:
			if len(g.players) > 1 {
				g.subPhase = SubSelectingCompanion
				g.logLocked(p.ID, "ability", "companion")
				g.bumpLocked()
				return
			}
		}
	}

	g.subPhase = SubSelectingCard
	g.logLocked(p.ID, "landed", tile.FunctionID)
	g.bumpLocked()
}

// SelectHelper binds the helper for a substitute/companion branch or a
// voluntary ask-for-help.
func (g *Game) SelectHelper(playerID, targetID string) bool {
	g.mu.Lock()
	ok := g.helperLocked(playerID, targetID)
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) helperLocked(playerID, targetID string) bool {
	p := g.currentPlayerLocked()
	if p == nil || p.ID != playerID || targetID == playerID {
		return false
	}
	if g.playerByIDLocked(targetID) == nil {
		return false
	}

	switch g.subPhase {
	case SubSelectingSubstitute, SubSelectingCompanion:
		// The acting player still moves; rewards route to the helper.
		g.helperID = targetID
		g.subPhase = SubIdle
		g.moveState = MoveTeleporting
	case SubChoosingHelper:
		g.helperID = targetID
		g.subPhase = SubViewingTask
	default:
		return false
	}

	g.logLocked(p.ID, "helper_chosen", targetID)
	g.bumpLocked()
	return true
}

// SelectCategory picks one of the four task categories for the landed tile.
// A cache hit moves straight to viewing; a miss starts a live fetch that
// delivers through the same path.
func (g *Game) SelectCategory(playerID string, cat TaskCategory) bool {
	g.mu.Lock()
	ok := g.categoryLocked(playerID, cat)
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) categoryLocked(playerID string, cat TaskCategory) bool {
	p := g.currentPlayerLocked()
	if p == nil || p.ID != playerID || g.subPhase != SubSelectingCard {
		return false
	}

	valid := false
	for _, c := range taskCategories {
		if c == cat {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	g.logLocked(p.ID, "category_chosen", string(cat))

	if ts, ok := g.cache[p.Position]; ok {
		task := ts[cat]
		g.currentTask = &task
		g.pendingCategory = ""
		g.subPhase = SubViewingTask
		g.bumpLocked()
		return true
	}

	g.pendingCategory = cat
	g.bumpLocked()
	g.prefetchLocked([]int{p.Position})
	return true
}

// prefetchLocked starts fetches for any uncached, not-in-flight tiles.
func (g *Game) prefetchLocked(tiles []int) {
	for _, idx := range tiles {
		if _, ok := g.cache[idx]; ok {
			continue
		}
		if _, ok := g.inflight[idx]; ok {
			continue
		}
		g.inflight[idx] = struct{}{}
		go g.fetchTile(idx, g.turn)
	}
}

// fetchTile runs off the engine goroutine and merges by tile index. A result
// from a previous turn is discarded; concurrent duplicates for the same tile
// simply overwrite, which is harmless because task sets are equivalent.
func (g *Game) fetchTile(idx, turn int) {
	g.mu.Lock()
	functionID := g.board.Tiles[idx].FunctionID
	actor := PlayerInfo{}
	if p := g.currentPlayerLocked(); p != nil {
		actor = PlayerInfo{ID: p.ID, Name: p.Name, MBTI: p.MBTI}
	}
	infos := make([]PlayerInfo, 0, len(g.players))
	for _, p := range g.players {
		infos = append(infos, PlayerInfo{ID: p.ID, Name: p.Name, MBTI: p.MBTI})
	}
	recent := g.logEntries
	if len(recent) > logTail {
		recent = recent[len(recent)-logTail:]
	}
	timeout := 10 * time.Second
	if g.cfg != nil && g.cfg.taskTimeout > 0 {
		timeout = g.cfg.taskTimeout
	}
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ts, err := g.gen.GenerateTasks(ctx, functionID, infos, actor, recent)
	if err != nil || !ts.valid() {
		ts = fallbackTasks(functionID)
	}

	g.mu.Lock()
	delete(g.inflight, idx)
	if g.turn != turn {
		g.mu.Unlock()
		return
	}
	g.cache[idx] = ts

	deliver := false
	if p := g.currentPlayerLocked(); p != nil &&
		g.subPhase == SubSelectingCard && g.pendingCategory != "" && p.Position == idx {
		task := ts[g.pendingCategory]
		g.currentTask = &task
		g.pendingCategory = ""
		g.subPhase = SubViewingTask
		g.bumpLocked()
		deliver = true
	}
	g.mu.Unlock()

	if deliver {
		g.emit()
	}
}

// ReselectTask allows going back to category selection once per turn.
func (g *Game) ReselectTask(playerID string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubViewingTask && !g.reselected
	if ok {
		g.reselected = true
		g.currentTask = nil
		g.subPhase = SubSelectingCard
		g.logLocked(p.ID, "task_reselected", "")
		g.bumpLocked()
	}
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

// SkipTask ends the turn immediately with no scoring.
func (g *Game) SkipTask(playerID string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubViewingTask
	if ok {
		p.SkipUsed++
		g.logLocked(p.ID, "task_skipped", "")
		g.advanceTurnLocked()
	}
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

// AskForHelp opens voluntary helper selection, bounded per game.
func (g *Game) AskForHelp(playerID string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubViewingTask &&
		p.HelpUsed < maxHelpUses && g.helperID == "" && len(g.players) > 1
	if ok {
		p.HelpUsed++
		g.subPhase = SubChoosingHelper
		g.bumpLocked()
	}
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

// StartTask begins execution and arms the countdown. The countdown expiring
// force-completes through the same path as a manual "done".
func (g *Game) StartTask(playerID string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubViewingTask && g.currentTask != nil
	var seq uint64
	var d time.Duration
	if ok {
		g.subPhase = SubTaskExecution
		g.logLocked(p.ID, "task_started", g.currentTask.Title)
		g.bumpLocked()
		seq = g.seq
		d = time.Duration(g.currentTask.DurationSeconds) * time.Second
		g.taskTimer = time.AfterFunc(d, func() {
			g.forceComplete(seq)
		})
	}
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) forceComplete(seq uint64) {
	g.mu.Lock()
	if g.seq != seq {
		g.mu.Unlock()
		return
	}
	g.completeLocked("", nil)
	g.mu.Unlock()
	g.emit()
}

// MarkHighEnergy records the external audio-level signal crossing its
// threshold during execution.
func (g *Game) MarkHighEnergy(playerID string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubTaskExecution && !g.highEnergy
	if ok {
		g.highEnergy = true
	}
	g.mu.Unlock()
	return ok
}

// CompleteTask ends execution with the captured evidence payload.
func (g *Game) CompleteTask(playerID, transcript string, evidence []string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubTaskExecution
	if ok {
		g.completeLocked(transcript, evidence)
	}
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) completeLocked(transcript string, evidence []string) {
	if g.taskTimer != nil {
		g.taskTimer.Stop()
		g.taskTimer = nil
	}

	// The transcript lands in the log, which is what the task generator
	// sees as recent context on later turns.
	detail := strings.TrimSpace(transcript)
	if len(evidence) > 0 {
		detail = strings.TrimSpace(fmt.Sprintf("%s [%d attachments]", detail, len(evidence)))
	}

	p := g.currentPlayerLocked()
	g.logLocked(p.ID, "task_completed", detail)

	g.reviewQueue = g.reviewQueue[:0]
	for _, other := range g.players {
		if other.ID != p.ID {
			g.reviewQueue = append(g.reviewQueue, other.ID)
		}
	}
	g.reviewSum = 0
	g.reviewCount = 0

	if len(g.reviewQueue) == 0 {
		// Solo play: an automatic perfect rating.
		g.reviewSum = 5
		g.reviewCount = 1
		g.afterReviewLocked()
		return
	}

	g.subPhase = SubPeerReview
	g.bumpLocked()
}

// SubmitRating accepts the current reviewer's 1-5 star rating, or 0 to
// abstain. Abstains never touch the average. Reviewers go strictly in queue
// order; only the head of the queue may submit.
func (g *Game) SubmitRating(reviewerID string, rating int) bool {
	g.mu.Lock()
	ok := g.ratingLocked(reviewerID, rating)
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) ratingLocked(reviewerID string, rating int) bool {
	if g.subPhase != SubPeerReview || len(g.reviewQueue) == 0 {
		return false
	}
	if g.reviewQueue[0] != reviewerID || rating < 0 || rating > 5 {
		return false
	}

	if rating > 0 {
		g.reviewSum += rating
		g.reviewCount++
		if r := g.playerByIDLocked(reviewerID); r != nil {
			r.TotalRatingGiven += rating
		}
	}
	g.logLocked(reviewerID, "rating_submitted", fmt.Sprintf("%d", rating))

	g.reviewQueue = g.reviewQueue[1:]
	if len(g.reviewQueue) > 0 {
		g.bumpLocked()
		return true
	}

	g.afterReviewLocked()
	return true
}

// afterReviewLocked defers scoring when the active modifier still needs a
// target, otherwise finalizes the turn.
func (g *Game) afterReviewLocked() {
	// Helper routing wins over clone/transfer, so a bound helper makes
	// target selection moot.
	needsTarget := (g.activeModifier == ModifierClone || g.activeModifier == ModifierTransfer) &&
		g.scoreTargetID == "" && g.helperID == "" && len(g.players) > 1
	if needsTarget {
		g.subPhase = SubSelectingScoreTarget
		g.bumpLocked()
		return
	}
	g.finalizeTurnLocked()
}

// SelectTarget binds the clone/transfer recipient and finalizes.
func (g *Game) SelectTarget(playerID, targetID string) bool {
	g.mu.Lock()
	p := g.currentPlayerLocked()
	ok := p != nil && p.ID == playerID && g.subPhase == SubSelectingScoreTarget &&
		targetID != playerID && g.playerByIDLocked(targetID) != nil
	if ok {
		g.scoreTargetID = targetID
		g.logLocked(p.ID, "target_chosen", targetID)
		g.finalizeTurnLocked()
	}
	g.mu.Unlock()
	if ok {
		g.emit()
	}
	return ok
}

func (g *Game) finalizeTurnLocked() {
	p := g.currentPlayerLocked()
	tile := g.board.Tiles[p.Position]
	tension := tensionMultiplier(g.board, p, tile)

	awards := computeAwards(p.ID, scoreContext{
		task:        *g.currentTask,
		ratingSum:   g.reviewSum,
		ratingCount: g.reviewCount,
		modifier:    g.activeModifier,
		ability:     g.activeAbility,
		helperID:    g.helperID,
		targetID:    g.scoreTargetID,
		tension:     tension,
		highEnergy:  g.highEnergy,
	})

	for _, a := range awards {
		target := g.playerByIDLocked(a.PlayerID)
		if target == nil {
			continue
		}
		switch a.ScoreType {
		case ScoreTrust:
			target.TrustScore += a.Points
		case ScoreInsight:
			target.InsightScore += a.Points
		case ScoreExpression:
			target.ExpressionScore += a.Points
		}
		g.logLocked(a.PlayerID, "points_awarded", fmt.Sprintf("%s+%d", a.ScoreType, a.Points))
	}

	p.Stats.CategoryCounts[g.currentTask.Category]++
	p.Stats.CumulativeMultiplier += g.currentTask.Multiplier * tension
	if g.highEnergy {
		p.Stats.HighEnergyEvents++
	}
	if g.helperID != "" {
		p.Stats.HelpReceived++
		if h := g.playerByIDLocked(g.helperID); h != nil {
			h.Stats.HelpGiven++
		}
	}

	g.advanceTurnLocked()
}

func (g *Game) advanceTurnLocked() {
	if g.taskTimer != nil {
		g.taskTimer.Stop()
		g.taskTimer = nil
	}

	g.remainingSteps = 0
	g.diceValue = 0
	g.moveState = MoveIdle
	g.subPhase = SubIdle
	g.activeModifier = ModifierNormal
	g.activeAbility = AbilityNone
	g.helperID = ""
	g.scoreTargetID = ""
	g.reviewQueue = nil
	g.reviewSum = 0
	g.reviewCount = 0
	g.currentTask = nil
	g.pendingCategory = ""
	g.reselected = false
	g.highEnergy = false

	g.turn++
	g.current = (g.current + 1) % len(g.players)

	rounds := 5
	if g.cfg != nil && g.cfg.rounds > 0 {
		rounds = g.cfg.rounds
	}
	if g.turn >= rounds*len(g.players) {
		g.phase = PhaseAnalysis
		g.logLocked("", "game_over", "")
	}

	g.bumpLocked()
}

// PlayerView is the per-player slice of a snapshot.
type PlayerView struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	IsBot            bool          `json:"is_bot"`
	MBTI             string        `json:"mbti"`
	Position         int           `json:"position"`
	PreviousPosition int           `json:"previous_position"`
	StackIndex       int           `json:"stack_index"`
	TrustScore       int           `json:"trust_score"`
	InsightScore     int           `json:"insight_score"`
	ExpressionScore  int           `json:"expression_score"`
	Stats            BehaviorStats `json:"stats"`
}

// Snapshot is an immutable copy of the observable game state, used for
// broadcast, bot decisions, and tests.
type Snapshot struct {
	Mode            GameMode       `json:"mode"`
	Phase           Phase          `json:"phase"`
	SubPhase        SubPhase       `json:"sub_phase"`
	MoveState       MovementState  `json:"move_state"`
	Turn            int            `json:"turn"`
	CurrentID       string         `json:"current_id"`
	DiceValue       int            `json:"dice_value"`
	RemainingSteps  int            `json:"remaining_steps"`
	SightRange      int            `json:"sight_range"`
	ActiveModifier  ScoreModifier  `json:"active_modifier"`
	ActiveAbility   SpecialAbility `json:"active_ability"`
	HelperID        string         `json:"helper_id,omitempty"`
	ReviewerID      string         `json:"reviewer_id,omitempty"`
	LegalMoves      []int          `json:"legal_moves"`
	PendingCategory TaskCategory   `json:"pending_category,omitempty"`
	CurrentTask     *TaskOption    `json:"current_task,omitempty"`
	Players         []PlayerView   `json:"players"`
	Log             []LogEntry     `json:"log,omitempty"`
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		Mode:            g.mode,
		Phase:           g.phase,
		SubPhase:        g.subPhase,
		MoveState:       g.moveState,
		Turn:            g.turn,
		DiceValue:       g.diceValue,
		RemainingSteps:  g.remainingSteps,
		SightRange:      g.sightRange,
		ActiveModifier:  g.activeModifier,
		ActiveAbility:   g.activeAbility,
		HelperID:        g.helperID,
		LegalMoves:      append([]int(nil), g.legal...),
		PendingCategory: g.pendingCategory,
	}

	if p := g.currentPlayerLocked(); p != nil {
		snap.CurrentID = p.ID
	}
	if len(g.reviewQueue) > 0 {
		snap.ReviewerID = g.reviewQueue[0]
	}
	if g.currentTask != nil {
		task := *g.currentTask
		snap.CurrentTask = &task
	}

	for _, p := range g.players {
		snap.Players = append(snap.Players, PlayerView{
			ID:               p.ID,
			Name:             p.Name,
			IsBot:            p.IsBot,
			MBTI:             p.MBTI,
			Position:         p.Position,
			PreviousPosition: p.PreviousPosition,
			StackIndex:       p.StackIndex,
			TrustScore:       p.TrustScore,
			InsightScore:     p.InsightScore,
			ExpressionScore:  p.ExpressionScore,
			Stats:            p.Stats.clone(),
		})
	}

	logs := g.logEntries
	if len(logs) > logTail {
		logs = logs[len(logs)-logTail:]
	}
	snap.Log = append([]LogEntry(nil), logs...)

	return snap
}

// BoardTiles returns the immutable tile list for client rendering.
func (g *Game) BoardTiles() []Tile {
	return g.board.Tiles
}

// LogEntries returns a copy of the full append-only log.
func (g *Game) LogEntries() []LogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]LogEntry(nil), g.logEntries...)
}
