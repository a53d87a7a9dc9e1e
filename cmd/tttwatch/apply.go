package main

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
	ws "github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

// apply folds one server message into the view and redraws what changed. The
// board is redrawn on playerCountInfo, the last message of every room update.
func apply(current *view, msg *ws.Message, display *Display) error {
	switch msg.Action {
	case usecase.ActionJoinedRoom:
		var payload usecase.JoinedRoomPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		*current = view{RoomID: payload.RoomID, Role: payload.Role}
		display.Info("joined room %s as %s", payload.RoomID, payload.Role)

	case usecase.ActionPlayerRole:
		var payload usecase.PlayerRolePayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		if current.Role != payload.Role && current.Role != entity.RoleNone {
			display.Info("you are now %s", payload.Role)
		}
		current.Role = payload.Role

	case usecase.ActionGameState:
		return decode(msg, &current.State)

	case usecase.ActionPlayerNames:
		return decode(msg, &current.Names)

	case usecase.ActionPlayerCountInfo:
		if err := decode(msg, &current.Counts); err != nil {
			return err
		}
		display.Room(*current)

	case usecase.ActionRoomList:
		var payload usecase.RoomListPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		display.Rooms(payload.Rooms)

	case usecase.ActionLeftRoom:
		*current = view{}
		display.Info("back in the lobby")

	case usecase.ActionError:
		var payload usecase.ErrorPayload
		if err := decode(msg, &payload); err != nil {
			return err
		}
		display.Error(payload.Message)
	}

	return nil
}

func decode(msg *ws.Message, out any) error {
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("bad %s payload: %w", msg.Action, err)
	}

	return nil
}
