// Command tttwatch is a terminal client: it registers a guest, browses the
// lobby and plays or watches a room.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	ws "github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

const usage = `commands: 1-9 move | c create | j CODE join | q quick play | r reset | l leave | ls rooms | exit`

var errUnknownCommand = errors.New("unknown command")

var (
	apiAddr = flag.String("api", "http://localhost:9090", "REST API base URL")
	wsAddr  = flag.String("ws", "ws://localhost:8080/ws", "websocket endpoint")
	name    = flag.String("name", "guest", "display name")
	roomID  = flag.String("room", "", "room code to join on start")
)

func main() {
	flag.Parse()

	display := NewDisplay(os.Stdout)

	if err := run(display); err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

func run(display *Display) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registered, err := register(ctx, *apiAddr, *name)
	if err != nil {
		return err
	}

	display.Info("registered as %s", registered.Player.Name)

	header := http.Header{"Authorization": []string{"Bearer " + registered.Token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *wsAddr, header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if *roomID != "" {
		if err = send(conn, "joinRoom", ws.JoinRoomRequest{RoomID: *roomID}); err != nil {
			return err
		}
	}

	go readInput(ctx, conn, display)

	display.Info(usage)

	return readLoop(conn, display)
}

func register(ctx context.Context, apiAddr, name string) (*rest.RegisterResponse, error) {
	body, err := json.Marshal(rest.RegisterRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiAddr, "/")+"/api/players", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var errResp rest.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		return nil, fmt.Errorf("failed to register: status %d: %s", resp.StatusCode, errResp.Message)
	}

	var registered rest.RegisterResponse
	if err = json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		return nil, fmt.Errorf("failed to decode registration: %w", err)
	}

	return &registered, nil
}

func readLoop(conn *websocket.Conn, display *Display) error {
	var current view

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}

			return fmt.Errorf("connection lost: %w", err)
		}

		var msg ws.Message
		if err = json.Unmarshal(data, &msg); err != nil {
			display.Error("unreadable message from server")
			continue
		}

		if err = apply(&current, &msg, display); err != nil {
			display.Error(err.Error())
		}
	}
}

func readInput(ctx context.Context, conn *websocket.Conn, display *Display) {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "exit" {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}

		action, payload, err := parseCommand(line)
		if err != nil {
			display.Error(err.Error())
			display.Info(usage)
			continue
		}

		if err = send(conn, action, payload); err != nil {
			display.Error(err.Error())
			return
		}
	}
}

// parseCommand maps a typed line to an outbound action. Cells are typed 1-9.
func parseCommand(line string) (string, any, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, errUnknownCommand
	}

	if cell, err := strconv.Atoi(fields[0]); err == nil {
		if cell < 1 || cell > 9 {
			return "", nil, fmt.Errorf("cell must be between 1 and 9, got %d", cell)
		}

		index := cell - 1

		return "makeMove", ws.MakeMoveRequest{Cell: &index}, nil
	}

	switch strings.ToLower(fields[0]) {
	case "c", "create":
		return "createRoom", nil, nil
	case "j", "join":
		if len(fields) < 2 {
			return "", nil, fmt.Errorf("%w: join needs a room code", errUnknownCommand)
		}
		return "joinRoom", ws.JoinRoomRequest{RoomID: fields[1]}, nil
	case "q", "quick":
		return "quickPlay", nil, nil
	case "r", "reset":
		return "reset", nil, nil
	case "l", "leave":
		return "leaveRoom", nil, nil
	case "ls", "rooms":
		return "getRooms", nil, nil
	}

	return "", nil, fmt.Errorf("%w: %s", errUnknownCommand, fields[0])
}

func send(conn *websocket.Conn, action string, payload any) error {
	msg := ws.Message{Action: action}

	if payload != nil {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		msg.Payload = payloadJSON
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", action, err)
	}

	return nil
}
