package rules

import "fmt"

// Side identifies one of the two seats at the table.
type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

// Sides lists both seats, human first.
var Sides = []Side{SidePlayer, SideEnemy}

// Opponent returns the other seat.
func (s Side) Opponent() Side {
	if s == SidePlayer {
		return SideEnemy
	}
	return SidePlayer
}

// Valid reports whether s is one of the two seats.
func (s Side) Valid() bool {
	return s == SidePlayer || s == SideEnemy
}

// ParseSide converts a string to a Side.
func ParseSide(s string) (Side, error) {
	side := Side(s)
	if !side.Valid() {
		return "", fmt.Errorf("unknown side: %q", s)
	}
	return side, nil
}
