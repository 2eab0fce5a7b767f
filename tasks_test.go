package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackTasksAlwaysValid(t *testing.T) {
	subjects := []string{wildcardFunction, "bogus"}
	for _, f := range functionCodes {
		subjects = append(subjects, f)
	}
	for _, mbti := range mbtiTypes {
		subjects = append(subjects, mbti)
	}

	for _, f := range subjects {
		ts := fallbackTasks(f)
		require.True(t, ts.valid(), f)

		for cat, opt := range ts {
			assert.Equal(t, cat, opt.Category)
		}
	}
}

func TestTaskSetValid(t *testing.T) {
	ts := fallbackTasks("Ni")
	require.True(t, ts.valid())

	missing := fallbackTasks("Ni")
	delete(missing, CategoryDeep)
	assert.False(t, missing.valid())

	badType := fallbackTasks("Ni")
	opt := badType[CategoryTruth]
	opt.ScoreType = "charisma"
	badType[CategoryTruth] = opt
	assert.False(t, badType.valid())

	zeroDuration := fallbackTasks("Ni")
	opt = zeroDuration[CategoryDare]
	opt.DurationSeconds = 0
	zeroDuration[CategoryDare] = opt
	assert.False(t, zeroDuration.valid())
}

func TestHTTPTaskGenerator(t *testing.T) {
	var gotReq taskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(fallbackTasks("Ni"))
	}))
	defer srv.Close()

	gen := &httpTaskGenerator{endpoint: srv.URL, client: srv.Client()}

	players := []PlayerInfo{{ID: "a", Name: "Alice", MBTI: "INTJ"}}
	ts, err := gen.GenerateTasks(context.Background(), "Ni", players, players[0], nil)
	require.NoError(t, err)
	assert.True(t, ts.valid())

	assert.Equal(t, "Ni", gotReq.FunctionID)
	assert.Equal(t, "a", gotReq.Actor.ID)
	assert.Len(t, gotReq.Players, 1)
}

func TestHTTPTaskGeneratorBadResponses(t *testing.T) {
	errorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer errorSrv.Close()

	incompleteSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts := fallbackTasks("Ni")
		delete(ts, CategoryDeep)
		json.NewEncoder(w).Encode(ts)
	}))
	defer incompleteSrv.Close()

	for name, endpoint := range map[string]string{
		"status":     errorSrv.URL,
		"incomplete": incompleteSrv.URL,
	} {
		gen := &httpTaskGenerator{endpoint: endpoint, client: http.DefaultClient}
		_, err := gen.GenerateTasks(context.Background(), "Ni", nil, PlayerInfo{}, nil)
		assert.Error(t, err, name)
	}
}

func TestNewTaskGenerator(t *testing.T) {
	gen := newTaskGenerator(&Config{})
	_, ok := gen.(fallbackGenerator)
	assert.True(t, ok)

	gen = newTaskGenerator(&Config{taskSource: "http://localhost:9/tasks", taskTimeout: time.Second})
	_, ok = gen.(*httpTaskGenerator)
	assert.True(t, ok)
}
