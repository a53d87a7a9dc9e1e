package entity

// Mark is a symbol placed on the board.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

// Opponent returns the other player's mark. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

// Role is the capacity a connection holds in a room.
type Role string

const (
	RoleNone      Role = ""
	RoleX         Role = "X"
	RoleO         Role = "O"
	RoleSpectator Role = "spectator"
)

// RoleFor maps a mark to the role that places it.
func RoleFor(mark Mark) Role {
	switch mark {
	case PlayerX:
		return RoleX
	case PlayerO:
		return RoleO
	default:
		return RoleNone
	}
}

// Mark returns the mark placed by this role, EmptyCell for spectators.
func (that Role) Mark() Mark {
	switch that {
	case RoleX:
		return PlayerX
	case RoleO:
		return PlayerO
	default:
		return EmptyCell
	}
}

func (that Role) IsPlayer() bool {
	return that == RoleX || that == RoleO
}
