// Task generation contract and the built-in fallback pool.
//
// The engine only ever sees a TaskSet of all four categories. External
// generation happens over HTTP when --task-source is configured; any
// failure (network, status, malformed body) falls back to the local pool so
// the game always has something playable.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type TaskCategory string

const (
	CategoryStandard TaskCategory = "standard"
	CategoryTruth    TaskCategory = "truth"
	CategoryDare     TaskCategory = "dare"
	CategoryDeep     TaskCategory = "deep"
)

var taskCategories = [4]TaskCategory{
	CategoryStandard, CategoryTruth, CategoryDare, CategoryDeep,
}

const (
	ScoreTrust      = "trust"
	ScoreInsight    = "insight"
	ScoreExpression = "expression"
)

type TaskOption struct {
	Category        TaskCategory `json:"category"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	ScoreType       string       `json:"score_type"`
	DurationSeconds int          `json:"duration_seconds"`
	Multiplier      float64      `json:"multiplier"`
}

// TaskSet holds one option per category.
type TaskSet map[TaskCategory]TaskOption

func (ts TaskSet) valid() bool {
	for _, cat := range taskCategories {
		opt, ok := ts[cat]
		if !ok || opt.Title == "" || opt.Multiplier <= 0 || opt.DurationSeconds <= 0 {
			return false
		}
		switch opt.ScoreType {
		case ScoreTrust, ScoreInsight, ScoreExpression:
		default:
			return false
		}
	}
	return true
}

// TaskGenerator produces the four options offered on a tile. Implementations
// may block on the network; callers run them off the engine goroutine.
type TaskGenerator interface {
	GenerateTasks(ctx context.Context, functionID string, players []PlayerInfo, actor PlayerInfo, recent []LogEntry) (TaskSet, error)
}

// PlayerInfo is the subset of player state shared with the generator.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	MBTI string `json:"mbti"`
}

type taskRequest struct {
	FunctionID string       `json:"function_id"`
	Actor      PlayerInfo   `json:"actor"`
	Players    []PlayerInfo `json:"players"`
	RecentLogs []LogEntry   `json:"recent_logs"`
}

type httpTaskGenerator struct {
	endpoint string
	client   *http.Client
}

func newTaskGenerator(cfg *Config) TaskGenerator {
	if cfg.taskSource == "" {
		return fallbackGenerator{}
	}
	return &httpTaskGenerator{
		endpoint: cfg.taskSource,
		client:   &http.Client{Timeout: cfg.taskTimeout},
	}
}

func (g *httpTaskGenerator) GenerateTasks(ctx context.Context, functionID string, players []PlayerInfo, actor PlayerInfo, recent []LogEntry) (TaskSet, error) {
	body, err := json.Marshal(taskRequest{
		FunctionID: functionID,
		Actor:      actor,
		Players:    players,
		RecentLogs: recent,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("task source returned %s", resp.Status)
	}

	var ts TaskSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, err
	}
	if !ts.valid() {
		return nil, fmt.Errorf("task source returned an incomplete task set")
	}
	return ts, nil
}

// fallbackGenerator serves the deterministic local pool.
type fallbackGenerator struct{}

func (fallbackGenerator) GenerateTasks(_ context.Context, functionID string, _ []PlayerInfo, _ PlayerInfo, _ []LogEntry) (TaskSet, error) {
	return fallbackTasks(functionID), nil
}

// fallbackTasks builds a structurally valid set for any tile. The shape must
// match what the external generator returns; only the prose is generic.
func fallbackTasks(functionID string) TaskSet {
	theme := functionArchetypes[functionID]
	if theme == "" {
		theme = typeArchetypes[functionID]
	}
	if theme == "" {
		theme = "the Hub"
	}

	return TaskSet{
		CategoryStandard: {
			Category:        CategoryStandard,
			Title:           "Snapshot",
			Description:     fmt.Sprintf("Describe a recent moment where you acted like %s.", theme),
			ScoreType:       ScoreTrust,
			DurationSeconds: 60,
			Multiplier:      1.0,
		},
		CategoryTruth: {
			Category:        CategoryTruth,
			Title:           "Honest Answer",
			Description:     fmt.Sprintf("Answer honestly: when does %s feel most unlike you?", theme),
			ScoreType:       ScoreInsight,
			DurationSeconds: 90,
			Multiplier:      1.2,
		},
		CategoryDare: {
			Category:        CategoryDare,
			Title:           "Act It Out",
			Description:     fmt.Sprintf("Spend one minute playing %s as loudly as you can.", theme),
			ScoreType:       ScoreExpression,
			DurationSeconds: 60,
			Multiplier:      1.2,
		},
		CategoryDeep: {
			Category:        CategoryDeep,
			Title:           "Under the Surface",
			Description:     fmt.Sprintf("Tell the group about a time %s cost you something.", theme),
			ScoreType:       ScoreInsight,
			DurationSeconds: 120,
			Multiplier:      1.5,
		},
	}
}
