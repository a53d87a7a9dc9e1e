package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
)

const maxBodySize = 1 << 10

type RegisterRequest struct {
	Name string `json:"name"`
}

type RegisterResponse struct {
	Player *entity.Player `json:"player"`
	Token  string         `json:"token"`
}

type RoomsResponse struct {
	Rooms []room.Info `json:"rooms"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// registerPlayer creates a guest identity and returns the token to open the socket with.
func (that *Server) registerPlayer(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "registerPlayer")

	var req RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}

	player, token, err := that.players.Register(r.Context(), req.Name)
	if errors.Is(err, apperror.ErrInvalidName) {
		that.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Name must be 1 to 20 characters"})
		return
	}

	if err != nil {
		log.Error("failed to register player", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"})
		return
	}

	log.Info("player registered", "playerID", player.ID)

	that.writeJSON(w, http.StatusCreated, RegisterResponse{Player: player, Token: token})
}

func (that *Server) listRooms(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, RoomsResponse{Rooms: that.rooms.List()})
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Warn("failed to write response", "error", err)
	}
}
