package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const msgInvalidPayload = "Invalid payload"

func (that *Server) handleCreateRoom(_ context.Context, connID string, _ *Message) error {
	return that.router.CreateRoom(connID)
}

func (that *Server) handleJoinRoom(_ context.Context, connID string, msg *Message) error {
	var payloadReq JoinRoomRequest

	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil || payloadReq.RoomID == "" {
		that.sendErrorResponse(connID, msgInvalidPayload)
		return fmt.Errorf("invalid joinRoom payload: %s", msg.Payload)
	}

	return that.router.JoinRoom(connID, payloadReq.RoomID)
}

func (that *Server) handleQuickPlay(_ context.Context, connID string, _ *Message) error {
	return that.router.QuickPlay(connID)
}

func (that *Server) handleLeaveRoom(_ context.Context, connID string, _ *Message) error {
	return that.router.LeaveRoom(connID)
}

func (that *Server) handleMakeMove(_ context.Context, connID string, msg *Message) error {
	var payloadReq MakeMoveRequest

	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil || payloadReq.Cell == nil {
		that.sendErrorResponse(connID, msgInvalidPayload)
		return fmt.Errorf("invalid makeMove payload: %s", msg.Payload)
	}

	return that.router.MakeMove(connID, *payloadReq.Cell)
}

func (that *Server) handleReset(_ context.Context, connID string, _ *Message) error {
	return that.router.Reset(connID)
}

func (that *Server) handleGetRooms(_ context.Context, connID string, _ *Message) error {
	return that.router.GetRooms(connID)
}

func (that *Server) sendErrorResponse(connID, message string) {
	if err := that.hub.Send(connID, usecase.ActionError, usecase.ErrorPayload{Message: message}); err != nil {
		that.logger.Warn("failed to send error response", "connID", connID, "error", err)
	}
}
