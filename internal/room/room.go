// Package room holds the in-memory rooms and the directory that owns them.
//
// A Room guards its game and membership with its own mutex, so operations on
// different rooms never contend. The Directory serialises create, remove and
// list against each other.
package room

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const maxPlayers = 2

// seat binds a transient connection to a durable identity.
type seat struct {
	ConnID string
	Player entity.Player
}

func (that *seat) empty() bool {
	return that.ConnID == ""
}

// Assignment describes the outcome of AssignRole. Displaced is the connection
// that held a reclaimed seat before the player came back on a new one.
type Assignment struct {
	Role      entity.Role
	Displaced string
}

// Removal describes the outcome of RemovePlayer.
type Removal struct {
	Role     entity.Role
	Promoted string
}

// State is a read-only snapshot of a room for broadcasting.
type State struct {
	Board          entity.Board
	Next           entity.Mark
	XName          string
	OName          string
	PlayerCount    int
	SpectatorCount int
	Winner         entity.Mark
	IsTie          bool
}

// Info is the directory listing entry of a room.
type Info struct {
	ID             string    `json:"id"`
	PlayerCount    int       `json:"playerCount"`
	SpectatorCount int       `json:"spectatorCount"`
	HasSpace       bool      `json:"hasSpace"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Room struct {
	logger *slog.Logger

	id        string
	createdAt time.Time

	mu         sync.Mutex
	game       *entity.Game
	x          seat
	o          seat
	spectators []seat
}

func New(logger *slog.Logger, id string) *Room {
	return &Room{
		logger:    logger.With("component", "room", "roomID", id),
		id:        id,
		createdAt: time.Now().UTC(),
		game:      entity.NewGame(),
	}
}

func (that *Room) ID() string {
	return that.id
}

func (that *Room) RoleOf(connID string) entity.Role {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roleOf(connID)
}

func (that *Room) roleOf(connID string) entity.Role {
	if connID == "" {
		return entity.RoleNone
	}

	switch connID {
	case that.x.ConnID:
		return entity.RoleX
	case that.o.ConnID:
		return entity.RoleO
	}

	if that.spectatorIndex(connID) >= 0 {
		return entity.RoleSpectator
	}

	return entity.RoleNone
}

// AssignRole seats a connection. A player who already holds a mark gets it back
// on the new connection; otherwise X is filled before O, and everyone else
// queues as a spectator.
func (that *Room) AssignRole(connID string, player entity.Player) Assignment {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch {
	case !that.x.empty() && that.x.Player.ID == player.ID:
		return Assignment{Role: entity.RoleX, Displaced: that.rebind(&that.x, connID)}
	case !that.o.empty() && that.o.Player.ID == player.ID:
		return Assignment{Role: entity.RoleO, Displaced: that.rebind(&that.o, connID)}
	}

	if role := that.roleOf(connID); role != entity.RoleNone {
		return Assignment{Role: role}
	}

	switch {
	case that.x.empty():
		that.x = seat{ConnID: connID, Player: player}
		return Assignment{Role: entity.RoleX}
	case that.o.empty():
		that.o = seat{ConnID: connID, Player: player}
		return Assignment{Role: entity.RoleO}
	}

	that.spectators = append(that.spectators, seat{ConnID: connID, Player: player})

	return Assignment{Role: entity.RoleSpectator}
}

// rebind moves a held seat to connID and returns the connection it replaced.
func (that *Room) rebind(held *seat, connID string) string {
	previous := held.ConnID
	held.ConnID = connID
	that.dropSpectator(connID)

	if previous == connID {
		return ""
	}

	that.logger.Info("seat reclaimed", "connID", connID, "displaced", previous)

	return previous
}

// MakeMove reports whether the move was applied.
func (that *Room) MakeMove(connID string, cell int) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	role := that.roleOf(connID)
	if !role.IsPlayer() {
		that.logger.Debug("move rejected", "connID", connID, "role", role)
		return false
	}

	if err := that.game.MakeTurn(role.Mark(), cell); err != nil {
		that.logger.Debug("move rejected", "connID", connID, "cell", cell, "reason", err)
		return false
	}

	return true
}

// Reset clears the board. Only mark holders may reset.
func (that *Room) Reset(connID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.roleOf(connID).IsPlayer() {
		return false
	}

	that.game.Reset()

	return true
}

// RemovePlayer drops a connection from the room. A vacated seat is handed to the
// longest waiting spectator together with that spectator's identity.
func (that *Room) RemovePlayer(connID string) Removal {
	that.mu.Lock()
	defer that.mu.Unlock()

	role := that.roleOf(connID)

	var vacated, other *seat
	switch role {
	case entity.RoleX:
		vacated, other = &that.x, &that.o
	case entity.RoleO:
		vacated, other = &that.o, &that.x
	case entity.RoleSpectator:
		that.dropSpectator(connID)
		return Removal{Role: role}
	default:
		return Removal{Role: role}
	}

	*vacated = seat{}

	i := that.nextPromotable(other)
	if i < 0 {
		return Removal{Role: role}
	}

	next := that.spectators[i]
	that.spectators = append(that.spectators[:i], that.spectators[i+1:]...)
	*vacated = next

	that.logger.Info("spectator promoted", "connID", next.ConnID, "role", role)

	return Removal{Role: role, Promoted: next.ConnID}
}

func (that *Room) IsEmpty() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.isEmpty()
}

func (that *Room) isEmpty() bool {
	return that.x.empty() && that.o.empty() && len(that.spectators) == 0
}

func (that *Room) PlayerCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.playerCount()
}

func (that *Room) playerCount() int {
	count := 0
	if !that.x.empty() {
		count++
	}
	if !that.o.empty() {
		count++
	}

	return count
}

func (that *Room) SpectatorCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.spectators)
}

func (that *Room) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state()
}

func (that *Room) state() State {
	return State{
		Board:          that.game.Board,
		Next:           that.game.Turn,
		XName:          that.x.Player.Name,
		OName:          that.o.Player.Name,
		PlayerCount:    that.playerCount(),
		SpectatorCount: len(that.spectators),
		Winner:         that.game.Winner(),
		IsTie:          that.game.IsTie(),
	}
}

func (that *Room) Info() Info {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.info()
}

func (that *Room) info() Info {
	players := that.playerCount()

	return Info{
		ID:             that.id,
		PlayerCount:    players,
		SpectatorCount: len(that.spectators),
		HasSpace:       players < maxPlayers,
		CreatedAt:      that.createdAt,
	}
}

// Members returns connection ids of players followed by spectators in queue order.
func (that *Room) Members() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.members()
}

func (that *Room) members() []string {
	members := make([]string, 0, maxPlayers+len(that.spectators))
	for _, s := range []seat{that.x, that.o} {
		if !s.empty() {
			members = append(members, s.ConnID)
		}
	}
	for _, s := range that.spectators {
		members = append(members, s.ConnID)
	}

	return members
}

// Publish hands a consistent snapshot and its audience to fn while the room is
// locked. fn must not block and must not call back into the room.
func (that *Room) Publish(fn func(state State, members []string)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	fn(that.state(), that.members())
}

// nextPromotable returns the first queued spectator that does not already hold
// the other seat under the same identity, or -1.
func (that *Room) nextPromotable(other *seat) int {
	for i, s := range that.spectators {
		if other.empty() || s.Player.ID != other.Player.ID {
			return i
		}
	}

	return -1
}

func (that *Room) spectatorIndex(connID string) int {
	for i, s := range that.spectators {
		if s.ConnID == connID {
			return i
		}
	}

	return -1
}

func (that *Room) dropSpectator(connID string) {
	if i := that.spectatorIndex(connID); i >= 0 {
		that.spectators = append(that.spectators[:i], that.spectators[i+1:]...)
	}
}
