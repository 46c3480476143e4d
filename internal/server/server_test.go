package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/elementsduel/duel-server-go/internal/game"
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/repository"
)

type testServer struct {
	server *Server
	router *gin.Engine
	stats  *repository.MemoryStats
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cat, err := catalog.Default()
	require.NoError(t, err)

	engine := game.NewEngine(zaptest.NewLogger(t), cat, game.Options{Seed: 3})
	stats := repository.NewMemoryStats()
	s := New(engine, stats, ai.Easy, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Hub().Run(ctx)
	return &testServer{server: s, router: s.Router(), stats: stats}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

type viewResponse struct {
	ID       string        `json:"id"`
	View     game.GameView `json:"view"`
	Checksum string        `json:"checksum"`
	Error    string        `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) viewResponse {
	t.Helper()
	var out viewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) createGame(t *testing.T) viewResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/games", gin.H{"difficulty": "medium", "elements": []string{"fire", "water"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateAndFetchGame(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createGame(t)

	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.View.Turn)
	assert.Equal(t, ai.Medium, created.View.Difficulty)
	assert.Equal(t, 7, created.View.Player(rules.SidePlayer).HandCount)
	assert.Len(t, created.View.Player(rules.SidePlayer).Hand, 7)
	assert.Empty(t, created.View.Player(rules.SideEnemy).Hand)
	assert.NotEmpty(t, created.Checksum)

	rec := ts.do(t, http.MethodGet, "/api/games/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Checksum, decode(t, rec).Checksum)

	rec = ts.do(t, http.MethodGet, "/api/games", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)
}

func TestCreateGameRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	bodies := []gin.H{
		{},
		{"elements": []string{"plasma"}},
		{"elements": []string{"fire", "water", "earth"}},
		{"elements": []string{"fire"}, "difficulty": "brutal"},
	}
	for _, body := range bodies {
		rec := ts.do(t, http.MethodPost, "/api/games", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%v", body)
	}
	assert.Empty(t, ts.server.engine.GameIDs())
}

func TestCreateGameRemovesGameOnIllegalElements(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/games", gin.H{"elements": []string{"fire", "fire"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, ts.server.engine.GameIDs())
}

func TestCommands(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGame(t).ID
	path := "/api/games/" + id + "/commands"

	rec := ts.do(t, http.MethodPost, path, Command{Command: "playLand", CardID: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "not in hand")

	rec = ts.do(t, http.MethodPost, path, Command{Command: "fly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, Command{Command: "tapLand", CardID: "x", Element: "plasma"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, Command{Command: "endTurn"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode(t, rec).View
	assert.Equal(t, 3, view.Turn)
	assert.Equal(t, rules.SidePlayer, view.Active)

	rec = ts.do(t, http.MethodPost, "/api/games/missing/commands", Command{Command: "endTurn"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGame(t).ID

	rec := ts.do(t, http.MethodGet, "/api/games/"+id+"/log?since=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Entries []game.LogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Entries)

	last := out.Entries[len(out.Entries)-1].Seq
	rec = ts.do(t, http.MethodGet, "/api/games/"+id+"/log?since="+itoa(last), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/games/"+id+"/log?since=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteGame(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGame(t).ID

	rec := ts.do(t, http.MethodDelete, "/api/games/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/games/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/games/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.server.recordResult(game.GameResult{GameID: "a", Winner: rules.SidePlayer, Difficulty: ai.Easy, Turns: 7, FinishedAt: time.Now()})
	ts.server.recordResult(game.GameResult{GameID: "b", Winner: rules.SideEnemy, Difficulty: ai.Hard, Turns: 12, FinishedAt: time.Now()})

	rec := ts.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Totals repository.Stats          `json:"totals"`
		Recent []repository.ResultRecord `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, repository.Stats{Wins: 1, Losses: 1, Total: 2}, out.Totals)
	require.Len(t, out.Recent, 2)
	assert.Equal(t, "b", out.Recent[0].GameID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(game.ErrGameNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(game.ErrGameOver))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(game.ErrBusy))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(rules.Illegal("no")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
