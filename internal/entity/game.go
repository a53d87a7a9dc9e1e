package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const BoardSize = 9

var (
	ErrInvalidCell = errors.New("invalid cell index")

	// WinCombos are checked in this order; the first full line decides the winner.
	WinCombos = [8][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

type Board [BoardSize]Mark

// Winner returns the mark of the first completed line, or EmptyCell.
func Winner(board Board) Mark {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return EmptyCell
}

func IsFull(board Board) bool {
	for _, cell := range board {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Game is the board of a single room together with whose turn it is.
type Game struct {
	Board    Board `json:"board"`
	Turn     Mark  `json:"player_turn"`
	Starting Mark  `json:"starting"`
}

func NewGame() *Game {
	return &Game{
		Turn:     PlayerX,
		Starting: PlayerX,
	}
}

func (that *Game) Winner() Mark {
	return Winner(that.Board)
}

func (that *Game) IsTie() bool {
	return IsFull(that.Board) && that.Winner() == EmptyCell
}

func (that *Game) IsFinished() bool {
	return that.Winner() != EmptyCell || IsFull(that.Board)
}

// MakeTurn places mark on cell. The game is left untouched on error.
func (that *Game) MakeTurn(mark Mark, cell int) error {
	if that.Winner() != EmptyCell {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", ErrInvalidCell, cell)
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = mark
	that.Turn = mark.Opponent()

	return nil
}

// Reset clears the board and hands the first move to the other side.
func (that *Game) Reset() {
	that.Board = Board{}
	that.Starting = that.Starting.Opponent()
	that.Turn = that.Starting
}
