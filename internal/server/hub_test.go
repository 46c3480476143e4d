package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func dialGame(t *testing.T, ts *testServer, id string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	httpServer := httptest.NewServer(ts.router)
	t.Cleanup(httpServer.Close)
	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws/" + id
	return websocket.DefaultDialer.Dial(url, nil)
}

// readUntil skips frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Frame) bool) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}

func ofType(kind string) func(Frame) bool {
	return func(f Frame) bool { return f.Type == kind }
}

func TestWebsocketReceivesInitialState(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGame(t).ID

	conn, _, err := dialGame(t, ts, id)
	require.NoError(t, err)
	defer conn.Close()

	frame := readUntil(t, conn, ofType("state"))
	assert.Equal(t, id, frame.GameID)
	require.NotNil(t, frame.View)
	assert.Equal(t, 1, frame.View.Turn)
	assert.Len(t, frame.Checksum, 64)
	assert.Eventually(t, func() bool { return ts.server.Hub().ClientCount(id) == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebsocketCommands(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGame(t).ID

	conn, _, err := dialGame(t, ts, id)
	require.NoError(t, err)
	defer conn.Close()
	readUntil(t, conn, ofType("state"))

	require.NoError(t, conn.WriteJSON(Command{Type: "command", Command: "playLand", CardID: "nope"}))
	frame := readUntil(t, conn, ofType("error"))
	assert.Contains(t, frame.Error, "not in hand")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame = readUntil(t, conn, ofType("error"))
	assert.Equal(t, "malformed command", frame.Error)

	require.NoError(t, conn.WriteJSON(Command{Type: "command", Command: "endTurn"}))
	frame = readUntil(t, conn, func(f Frame) bool {
		return f.Type == "state" && f.View != nil && f.View.Turn == 3
	})
	assert.NotEmpty(t, frame.Checksum)

	readUntil(t, conn, ofType("log"))
}

func TestWebsocketUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := dialGame(t, ts, "missing")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketClientLeaves(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createGame(t).ID

	conn, _, err := dialGame(t, ts, id)
	require.NoError(t, err)
	readUntil(t, conn, ofType("state"))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return ts.server.Hub().ClientCount(id) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchSafelyRecoversPanic(t *testing.T) {
	s := &Server{logger: zaptest.NewLogger(t)} // no engine: every command panics

	var err error
	require.NotPanics(t, func() {
		err = s.dispatchSafely(context.Background(), "g1", Command{Command: "startGame"})
	})
	require.Error(t, err)
	assert.Equal(t, "startGame failed", err.Error())
}
