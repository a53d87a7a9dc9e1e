package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	DefaultReadLimit  = 512
	DefaultSendBuffer = 256

	shutdownTimeout = 5 * time.Second
)

type identifier interface {
	Identify(ctx context.Context, token string) (*entity.Player, error)
}

type router interface {
	Connect(connID string, player entity.Player)
	Disconnect(connID string)
	CreateRoom(connID string) error
	JoinRoom(connID, roomID string) error
	QuickPlay(connID string) error
	LeaveRoom(connID string) error
	MakeMove(connID string, cell int) error
	Reset(connID string) error
	GetRooms(connID string) error
}

type Server struct {
	logger *slog.Logger

	hub      *Hub
	router   router
	identity identifier
	upgrader websocket.Upgrader

	readLimit  int64
	sendBuffer int

	handlers map[string]func(ctx context.Context, connID string, message *Message) error
}

func New(logger *slog.Logger, hub *Hub, router router, identity identifier, readLimit int64, sendBuffer int) *Server {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}

	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}

	server := &Server{
		logger:   logger.With("component", "websocket"),
		hub:      hub,
		router:   router,
		identity: identity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// browser clients are served from another origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		readLimit:  readLimit,
		sendBuffer: sendBuffer,
		handlers:   make(map[string]func(context.Context, string, *Message) error),
	}

	server.handlers["createRoom"] = server.handleCreateRoom
	server.handlers["joinRoom"] = server.handleJoinRoom
	server.handlers["quickPlay"] = server.handleQuickPlay
	server.handlers["leaveRoom"] = server.handleLeaveRoom
	server.handlers["makeMove"] = server.handleMakeMove
	server.handlers["reset"] = server.handleReset
	server.handlers["getRooms"] = server.handleGetRooms

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server and blocks until ctx is done or the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}

		// hijacked connections are not closed by Shutdown
		that.hub.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS authenticates the request, upgrades it and serves the connection
// until the peer goes away.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	player, err := that.identity.Identify(req.Context(), bearerToken(req))
	if err != nil {
		log.Info("authentication failed", "remote", req.RemoteAddr, "error", err)
		http.Error(writer, "Authentication error", http.StatusUnauthorized)
		return
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		// the upgrader has already replied
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn, that.sendBuffer)
	log = log.With("connID", c.connID, "playerID", player.ID)

	that.hub.register(c)
	go that.writePump(c)

	log.Info("client connected")
	that.router.Connect(c.connID, *player)

	that.readPump(req.Context(), c)

	that.router.Disconnect(c.connID)
	that.hub.unregister(c)

	log.Info("client disconnected")
}

func (that *Server) dispatch(ctx context.Context, connID string, msg *Message) {
	log := that.logger.With("method", "dispatch", "connID", connID, "action", msg.Action)

	handler, ok := that.handlers[msg.Action]
	if !ok {
		log.Warn("unknown action")
		return
	}

	if err := handler(ctx, connID, msg); err != nil {
		log.Error("failed to handle message", "error", err)
	}
}

// bearerToken reads the token from the query string or the Authorization header.
func bearerToken(req *http.Request) string {
	if token := req.URL.Query().Get("token"); token != "" {
		return token
	}

	return strings.TrimSpace(strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
}
