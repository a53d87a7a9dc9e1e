package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const readTimeout = 2 * time.Second

// tokenTable identifies players by a fixed token -> player table.
type tokenTable map[string]entity.Player

func (that tokenTable) Identify(_ context.Context, token string) (*entity.Player, error) {
	player, ok := that[token]
	if !ok {
		return nil, apperror.ErrInvalidToken
	}

	return &player, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	rooms := room.NewDirectory(logger, func() (string, error) { return "ROOM01", nil })
	router := usecase.NewRouter(logger, rooms, hub)

	players := tokenTable{
		"token-a": {ID: "u-alice", Name: "alice"},
		"token-b": {ID: "u-bob", Name: "bob"},
	}

	srv := httptest.NewServer(New(logger, hub, router, players, 0, 0).Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	data, err := encodeMessage(action, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// expect reads messages until one with the given action arrives and decodes its payload into out.
func expect(t *testing.T, conn *websocket.Conn, action string, out any) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", action)

		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))

		if msg.Action == action {
			if out != nil {
				require.NoError(t, json.Unmarshal(msg.Payload, out))
			}
			return
		}
	}
}

func TestServer_Authentication(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("Rejects an unknown token", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=nope"

		_, resp, err := websocket.DefaultDialer.Dial(url, nil)

		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Accepts a bearer header", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		header := http.Header{"Authorization": []string{"Bearer token-a"}}

		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()

		var rooms usecase.RoomListPayload
		expect(t, conn, usecase.ActionRoomList, &rooms)
		assert.Empty(t, rooms.Rooms)
	})
}

func TestServer_Game(t *testing.T) {
	// Given: two authenticated connections in the lobby
	srv, _ := newTestServer(t)
	connA := dial(t, srv, "token-a")
	connB := dial(t, srv, "token-b")
	expect(t, connA, usecase.ActionRoomList, nil)
	expect(t, connB, usecase.ActionRoomList, nil)

	// When: A creates a room
	send(t, connA, "createRoom", nil)

	// Then: A is X and B's lobby listing shows the room
	var joined usecase.JoinedRoomPayload
	expect(t, connA, usecase.ActionJoinedRoom, &joined)
	assert.Equal(t, usecase.JoinedRoomPayload{RoomID: "ROOM01", Role: entity.RoleX}, joined)

	var rooms usecase.RoomListPayload
	expect(t, connB, usecase.ActionRoomList, &rooms)
	require.Len(t, rooms.Rooms, 1)
	assert.False(t, rooms.Rooms[0].CreatedAt.IsZero())
	rooms.Rooms[0].CreatedAt = time.Time{}
	assert.Equal(t, []room.Info{{ID: "ROOM01", PlayerCount: 1, HasSpace: true}}, rooms.Rooms)

	// When: B joins with a typed code
	send(t, connB, "joinRoom", JoinRoomRequest{RoomID: "room01"})

	// Then: B is O
	expect(t, connB, usecase.ActionJoinedRoom, &joined)
	assert.Equal(t, entity.RoleO, joined.Role)

	var names usecase.PlayerNamesPayload
	expect(t, connA, usecase.ActionPlayerNames, &names)
	expect(t, connA, usecase.ActionPlayerNames, &names)
	assert.Equal(t, usecase.PlayerNamesPayload{XName: "alice", OName: "bob"}, names)

	// When: A plays the centre
	send(t, connA, "makeMove", map[string]int{"cell": 4})

	// Then: B sees it
	var state usecase.GameStatePayload
	for state.Board[4] != entity.PlayerX {
		expect(t, connB, usecase.ActionGameState, &state)
	}
	assert.Equal(t, entity.PlayerO, state.NextMark)

	// When: A disconnects
	require.NoError(t, connA.Close())

	// Then: B is left alone in the room
	leftNames := usecase.PlayerNamesPayload{XName: "alice"}
	for leftNames.XName != "" {
		expect(t, connB, usecase.ActionPlayerNames, &leftNames)
	}
	assert.Equal(t, "bob", leftNames.OName)

	var counts usecase.PlayerCountPayload
	expect(t, connB, usecase.ActionPlayerCountInfo, &counts)
	assert.Equal(t, usecase.PlayerCountPayload{PlayerCount: 1}, counts)
}

func TestServer_InvalidInput(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "token-a")
	expect(t, conn, usecase.ActionRoomList, nil)

	t.Run("Malformed join payload gets an error", func(t *testing.T) {
		send(t, conn, "joinRoom", map[string]int{"roomId": 1})

		var errPayload usecase.ErrorPayload
		expect(t, conn, usecase.ActionError, &errPayload)
		assert.Equal(t, "Invalid payload", errPayload.Message)
	})

	t.Run("Unknown room gets an error", func(t *testing.T) {
		send(t, conn, "joinRoom", JoinRoomRequest{RoomID: "NOPE99"})

		var errPayload usecase.ErrorPayload
		expect(t, conn, usecase.ActionError, &errPayload)
		assert.Equal(t, "Room not found", errPayload.Message)
	})

	t.Run("Unknown actions and garbage keep the connection open", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		send(t, conn, "fly", nil)
		send(t, conn, "getRooms", nil)

		expect(t, conn, usecase.ActionRoomList, nil)
	})
}

func TestHub_Send(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Unknown connection", func(t *testing.T) {
		hub := NewHub(logger)

		err := hub.Send("ghost", usecase.ActionLeftRoom, usecase.LeftRoomPayload{})

		require.ErrorIs(t, err, ErrClientNotFound)
	})

	t.Run("Queues an encoded envelope", func(t *testing.T) {
		hub := NewHub(logger)
		c := newClient("c1", nil, 1)
		hub.register(c)

		require.NoError(t, hub.Send("c1", usecase.ActionPlayerRole, usecase.PlayerRolePayload{Role: entity.RoleSpectator}))

		assert.JSONEq(t, `{"action":"playerRole","payload":{"role":"spectator"}}`, string(<-c.send))
	})

	t.Run("Drops a client whose queue is full", func(t *testing.T) {
		// Given: a client with room for one message
		hub := NewHub(logger)
		c := newClient("c1", nil, 1)
		hub.register(c)
		require.NoError(t, hub.Send("c1", usecase.ActionLeftRoom, usecase.LeftRoomPayload{}))

		// When: a second message arrives before the first is written
		err := hub.Send("c1", usecase.ActionLeftRoom, usecase.LeftRoomPayload{})

		// Then: the client is dropped and its queue closed
		require.ErrorIs(t, err, ErrClientTooSlow)
		assert.Equal(t, 0, hub.Len())
		<-c.send
		_, open := <-c.send
		assert.False(t, open)
	})
}
