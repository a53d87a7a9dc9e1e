package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

// view is the client's picture of the room it is in.
type view struct {
	RoomID string
	Role   entity.Role
	State  usecase.GameStatePayload
	Names  usecase.PlayerNamesPayload
	Counts usecase.PlayerCountPayload
}

type Display struct {
	out io.Writer

	xColor     *color.Color
	oColor     *color.Color
	cellColor  *color.Color
	infoColor  *color.Color
	lobbyColor *color.Color
	winColor   *color.Color
	errorColor *color.Color
}

func NewDisplay(out io.Writer) *Display {
	return &Display{
		out:        out,
		xColor:     color.New(color.FgCyan, color.Bold),
		oColor:     color.New(color.FgMagenta, color.Bold),
		cellColor:  color.New(color.FgHiBlack),
		infoColor:  color.New(color.FgWhite),
		lobbyColor: color.New(color.FgYellow),
		winColor:   color.New(color.FgGreen, color.Bold),
		errorColor: color.New(color.FgRed, color.Bold),
	}
}

// Room prints the board, whose turn it is and who is watching.
func (that *Display) Room(v view) {
	that.infoColor.Fprintf(that.out, "room %s  you: %s  players: %d  spectators: %d\n",
		v.RoomID, roleLabel(v.Role), v.Counts.PlayerCount, v.Counts.SpectatorCount)

	for row := 0; row < 3; row++ {
		cells := make([]string, 3)
		for col := 0; col < 3; col++ {
			i := row*3 + col
			cells[col] = that.cell(i, v.State.Board[i])
		}

		fmt.Fprintf(that.out, " %s\n", strings.Join(cells, " | "))
		if row < 2 {
			fmt.Fprintln(that.out, "---+---+---")
		}
	}

	switch {
	case v.State.Winner != entity.EmptyCell:
		that.winColor.Fprintf(that.out, "%s wins!\n", that.player(v.State.Winner, v.Names))
	case v.State.IsTie:
		that.winColor.Fprintln(that.out, "It's a tie.")
	default:
		that.infoColor.Fprintf(that.out, "next: %s\n", that.player(v.State.NextMark, v.Names))
	}
}

// Rooms prints the lobby listing.
func (that *Display) Rooms(rooms []room.Info) {
	if len(rooms) == 0 {
		that.lobbyColor.Fprintln(that.out, "no open rooms")
		return
	}

	that.lobbyColor.Fprintln(that.out, "rooms:")
	for _, info := range rooms {
		status := "full"
		if info.HasSpace {
			status = "open"
		}

		that.lobbyColor.Fprintf(that.out, "  %s  %d/2 players  %d watching  %s\n",
			info.ID, info.PlayerCount, info.SpectatorCount, status)
	}
}

func (that *Display) Info(format string, args ...any) {
	that.infoColor.Fprintf(that.out, format+"\n", args...)
}

func (that *Display) Error(message string) {
	that.errorColor.Fprintf(that.out, "error: %s\n", message)
}

func (that *Display) cell(i int, mark entity.Mark) string {
	switch mark {
	case entity.PlayerX:
		return that.xColor.Sprint("X")
	case entity.PlayerO:
		return that.oColor.Sprint("O")
	default:
		return that.cellColor.Sprint(strconv.Itoa(i + 1))
	}
}

func (that *Display) player(mark entity.Mark, names usecase.PlayerNamesPayload) string {
	name := names.XName
	c := that.xColor
	if mark == entity.PlayerO {
		name = names.OName
		c = that.oColor
	}

	if name == "" {
		return c.Sprint(string(mark))
	}

	return c.Sprintf("%s (%s)", mark, name)
}

func roleLabel(role entity.Role) string {
	if role == entity.RoleNone {
		return "-"
	}

	return string(role)
}
