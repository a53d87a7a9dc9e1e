package usecase

import (
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
)

// Outbound actions.
const (
	ActionJoinedRoom      = "joinedRoom"
	ActionPlayerRole      = "playerRole"
	ActionGameState       = "gameState"
	ActionPlayerNames     = "playerNames"
	ActionPlayerCountInfo = "playerCountInfo"
	ActionRoomList        = "roomList"
	ActionLeftRoom        = "leftRoom"
	ActionError           = "error"
)

const (
	msgRoomNotFound      = "Room not found"
	msgRoomCreateFailure = "Failed to create room"
)

type JoinedRoomPayload struct {
	RoomID string      `json:"roomId"`
	Role   entity.Role `json:"role"`
}

type PlayerRolePayload struct {
	Role entity.Role `json:"role"`
}

type GameStatePayload struct {
	Board    entity.Board `json:"board"`
	NextMark entity.Mark  `json:"nextMark"`
	Winner   entity.Mark  `json:"winner"`
	IsTie    bool         `json:"isTie"`
}

type PlayerNamesPayload struct {
	XName string `json:"xName"`
	OName string `json:"oName"`
}

type PlayerCountPayload struct {
	PlayerCount    int `json:"playerCount"`
	SpectatorCount int `json:"spectatorCount"`
}

type RoomListPayload struct {
	Rooms []room.Info `json:"rooms"`
}

type LeftRoomPayload struct{}

type ErrorPayload struct {
	Message string `json:"message"`
}
