package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
)

var ErrUnknownConnection = errors.New("unknown connection")

// notifier delivers one outbound message to one connection. Send must not block.
type notifier interface {
	Send(connID, action string, payload any) error
}

type directory interface {
	Create(connID string, player entity.Player) (*room.Room, room.Assignment, error)
	Join(roomID string, connID string, player entity.Player) (*room.Room, room.Assignment, error)
	QuickJoin(connID string, player entity.Player) (*room.Room, room.Assignment, error)
	Get(roomID string) (*room.Room, bool)
	RemoveIfEmpty(roomID string) bool
	List() []room.Info
}

// Session is the router's record of one connection. An empty RoomID means the
// connection is in the lobby.
type Session struct {
	ConnID string
	Player entity.Player
	RoomID string
}

// Router turns inbound intents of connections into room operations and fans out
// the resulting state to room members and the lobby.
type Router struct {
	logger   *slog.Logger
	rooms    directory
	notifier notifier

	mu       sync.Mutex
	sessions map[string]*Session

	// serialises roomList broadcasts
	lobbyMu sync.Mutex
}

func NewRouter(logger *slog.Logger, rooms directory, notifier notifier) *Router {
	return &Router{
		logger:   logger.With("component", "router"),
		rooms:    rooms,
		notifier: notifier,
		sessions: make(map[string]*Session),
	}
}

// Connect registers an authenticated connection in the lobby.
func (that *Router) Connect(connID string, player entity.Player) {
	that.mu.Lock()
	that.sessions[connID] = &Session{ConnID: connID, Player: player}
	that.mu.Unlock()

	that.logger.Info("session connected", "connID", connID, "playerID", player.ID)

	that.sendRoomList(connID)
}

// Disconnect forgets the connection and releases whatever it held.
func (that *Router) Disconnect(connID string) {
	that.mu.Lock()
	session, ok := that.sessions[connID]
	delete(that.sessions, connID)
	that.mu.Unlock()

	if !ok {
		return
	}

	that.logger.Info("session disconnected", "connID", connID, "roomID", session.RoomID)

	if session.RoomID != "" {
		that.leave(connID, session.RoomID)
	}
}

// Session returns a copy of the connection's session.
func (that *Router) Session(connID string) (Session, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[connID]
	if !ok {
		return Session{}, false
	}

	return *session, true
}

func (that *Router) CreateRoom(connID string) error {
	session, err := that.session(connID)
	if err != nil {
		return err
	}

	if session.RoomID != "" {
		that.leave(connID, session.RoomID)
	}

	joined, seated, err := that.rooms.Create(connID, session.Player)
	if err != nil {
		that.sendError(connID, msgRoomCreateFailure)
		return fmt.Errorf("failed to create room: %w", err)
	}

	that.enter(connID, joined, seated)

	return nil
}

// JoinRoom binds the connection to an existing room. An unknown id is reported
// to the requester and leaves its current binding as it was.
func (that *Router) JoinRoom(connID, roomID string) error {
	log := that.logger.With("method", "JoinRoom", "connID", connID)

	session, err := that.session(connID)
	if err != nil {
		return err
	}

	roomID = room.NormalizeID(roomID)

	if session.RoomID != "" && session.RoomID == roomID {
		if current, ok := that.rooms.Get(roomID); ok {
			if role := current.RoleOf(connID); role != entity.RoleNone {
				that.sendJoined(connID, roomID, role)
				that.sendState(connID, current.State())
				return nil
			}
		}
	}

	if _, ok := that.rooms.Get(roomID); !ok {
		log.Debug("room not found", "roomID", roomID)
		that.sendError(connID, msgRoomNotFound)
		return nil
	}

	if session.RoomID != "" {
		that.leave(connID, session.RoomID)
	}

	joined, seated, err := that.rooms.Join(roomID, connID, session.Player)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		log.Debug("room vanished before join", "roomID", roomID)
		that.sendError(connID, msgRoomNotFound)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	that.enter(connID, joined, seated)

	return nil
}

// QuickPlay seats the connection in the oldest room with a free mark or in a new one.
func (that *Router) QuickPlay(connID string) error {
	session, err := that.session(connID)
	if err != nil {
		return err
	}

	if session.RoomID != "" {
		that.leave(connID, session.RoomID)
	}

	joined, seated, err := that.rooms.QuickJoin(connID, session.Player)
	if err != nil {
		that.sendError(connID, msgRoomCreateFailure)
		return fmt.Errorf("failed to quick join: %w", err)
	}

	that.enter(connID, joined, seated)

	return nil
}

func (that *Router) LeaveRoom(connID string) error {
	session, err := that.session(connID)
	if err != nil {
		return err
	}

	if session.RoomID != "" {
		that.leave(connID, session.RoomID)
	}

	that.send(connID, ActionLeftRoom, LeftRoomPayload{})

	return nil
}

// MakeMove applies a move for the connection's mark. Rejected moves are dropped
// without a reply.
func (that *Router) MakeMove(connID string, cell int) error {
	current, err := that.boundRoom(connID)
	if err != nil || current == nil {
		return err
	}

	if current.MakeMove(connID, cell) {
		that.publishRoom(current)
	}

	return nil
}

func (that *Router) Reset(connID string) error {
	current, err := that.boundRoom(connID)
	if err != nil || current == nil {
		return err
	}

	if current.Reset(connID) {
		that.publishRoom(current)
	}

	return nil
}

func (that *Router) GetRooms(connID string) error {
	if _, err := that.session(connID); err != nil {
		return err
	}

	that.sendRoomList(connID)

	return nil
}

// leave removes the connection from the room, hands its seat on, drops the room
// once nobody is left and refreshes everyone who can see the change.
func (that *Router) leave(connID, roomID string) {
	log := that.logger.With("method", "leave", "connID", connID, "roomID", roomID)

	current, ok := that.rooms.Get(roomID)
	if !ok {
		that.unbind(connID, roomID)
		log.Warn("bound room no longer exists")
		return
	}

	removal := current.RemovePlayer(connID)
	that.unbind(connID, roomID)

	if removal.Promoted != "" {
		that.send(removal.Promoted, ActionPlayerRole, PlayerRolePayload{Role: removal.Role})
	}

	if that.rooms.RemoveIfEmpty(roomID) {
		log.Info("left room, room closed", "role", removal.Role)
	} else {
		log.Info("left room", "role", removal.Role, "promoted", removal.Promoted)
		that.publishRoom(current)
	}

	that.broadcastRoomList()
}

// enter binds the connection to the room it was seated in. A connection that
// lost its seat to the same player on a new connection goes back to the lobby.
func (that *Router) enter(connID string, joined *room.Room, seated room.Assignment) {
	that.bind(connID, joined.ID())

	that.logger.Info("entered room", "connID", connID, "roomID", joined.ID(), "role", seated.Role)

	if seated.Displaced != "" && that.unbind(seated.Displaced, joined.ID()) {
		that.logger.Info("seat taken over by reconnect", "connID", seated.Displaced, "roomID", joined.ID())
		that.send(seated.Displaced, ActionLeftRoom, LeftRoomPayload{})
	}

	that.sendJoined(connID, joined.ID(), seated.Role)
	that.publishRoom(joined)
	that.broadcastRoomList()
}

func (that *Router) session(connID string) (Session, error) {
	session, ok := that.Session(connID)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}

	return session, nil
}

// boundRoom returns nil without an error when the connection is in the lobby.
func (that *Router) boundRoom(connID string) (*room.Room, error) {
	session, err := that.session(connID)
	if err != nil {
		return nil, err
	}

	if session.RoomID == "" {
		return nil, nil
	}

	current, ok := that.rooms.Get(session.RoomID)
	if !ok {
		return nil, nil
	}

	return current, nil
}

func (that *Router) bind(connID, roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if session, ok := that.sessions[connID]; ok {
		session.RoomID = roomID
	}
}

// unbind reports whether the connection was bound to roomID.
func (that *Router) unbind(connID, roomID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[connID]
	if !ok || session.RoomID != roomID {
		return false
	}

	session.RoomID = ""

	return true
}

func (that *Router) lobby() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	connIDs := make([]string, 0, len(that.sessions))
	for connID, session := range that.sessions {
		if session.RoomID == "" {
			connIDs = append(connIDs, connID)
		}
	}

	return connIDs
}

func (that *Router) publishRoom(target *room.Room) {
	target.Publish(func(state room.State, members []string) {
		for _, connID := range members {
			that.sendState(connID, state)
		}
	})
}

func (that *Router) broadcastRoomList() {
	that.lobbyMu.Lock()
	defer that.lobbyMu.Unlock()

	payload := RoomListPayload{Rooms: that.rooms.List()}
	for _, connID := range that.lobby() {
		that.send(connID, ActionRoomList, payload)
	}
}

func (that *Router) sendRoomList(connID string) {
	that.lobbyMu.Lock()
	defer that.lobbyMu.Unlock()

	that.send(connID, ActionRoomList, RoomListPayload{Rooms: that.rooms.List()})
}

func (that *Router) sendJoined(connID, roomID string, role entity.Role) {
	that.send(connID, ActionJoinedRoom, JoinedRoomPayload{RoomID: roomID, Role: role})
	that.send(connID, ActionPlayerRole, PlayerRolePayload{Role: role})
}

func (that *Router) sendState(connID string, state room.State) {
	that.send(connID, ActionGameState, GameStatePayload{
		Board:    state.Board,
		NextMark: state.Next,
		Winner:   state.Winner,
		IsTie:    state.IsTie,
	})
	that.send(connID, ActionPlayerNames, PlayerNamesPayload{XName: state.XName, OName: state.OName})
	that.send(connID, ActionPlayerCountInfo, PlayerCountPayload{
		PlayerCount:    state.PlayerCount,
		SpectatorCount: state.SpectatorCount,
	})
}

func (that *Router) sendError(connID, message string) {
	that.send(connID, ActionError, ErrorPayload{Message: message})
}

func (that *Router) send(connID, action string, payload any) {
	if err := that.notifier.Send(connID, action, payload); err != nil {
		that.logger.Warn("failed to deliver message", "connID", connID, "action", action, "error", err)
	}
}
