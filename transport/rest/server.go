package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
)

const shutdownTimeout = 5 * time.Second

type playerService interface {
	Register(ctx context.Context, name string) (*entity.Player, string, error)
}

type roomLister interface {
	List() []room.Info
}

type Server struct {
	logger  *slog.Logger
	players playerService
	rooms   roomLister
}

func New(logger *slog.Logger, players playerService, rooms roomLister) *Server {
	return &Server{
		logger:  logger.With("component", "rest"),
		players: players,
		rooms:   rooms,
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", pingHandler)
	mux.HandleFunc("POST /api/players", that.registerPlayer)
	mux.HandleFunc("GET /api/rooms", that.listRooms)

	return mux
}

// Start - starts HTTP server and blocks until ctx is done or the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
