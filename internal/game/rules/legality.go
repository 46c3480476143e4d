package rules

import (
	"errors"
	"fmt"
)

// ErrIllegalAction marks a command rejected by the rules: wrong phase or
// turn, insufficient mana, land limit reached, unknown card and so on.
// Rejected commands leave the game untouched.
var ErrIllegalAction = errors.New("illegal action")

// IllegalActionError carries the player-facing reason for a rejection.
type IllegalActionError struct {
	Reason string
}

func (e *IllegalActionError) Error() string {
	return e.Reason
}

// Is lets errors.Is match ErrIllegalAction.
func (e *IllegalActionError) Is(target error) bool {
	return target == ErrIllegalAction
}

// Illegal builds an illegal-action error with a formatted reason.
func Illegal(format string, args ...interface{}) error {
	return &IllegalActionError{Reason: fmt.Sprintf(format, args...)}
}

// Reason extracts the player-facing reason from err, falling back to
// err.Error() when err is not an illegal-action error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var illegal *IllegalActionError
	if errors.As(err, &illegal) {
		return illegal.Reason
	}
	return err.Error()
}
