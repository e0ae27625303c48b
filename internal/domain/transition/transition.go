package transition

import (
	"errors"
	"fmt"
)

// ErrInvalid is matched by every rejected status transition.
var ErrInvalid = errors.New("invalid status transition")

// Table lists, per source status, the statuses it may move to.
type Table[S ~string] map[S][]S

func (t Table[S]) Allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns an *Error when from -> to is not in the table.
func (t Table[S]) Check(entity string, from, to S) error {
	if t.Allows(from, to) {
		return nil
	}
	return &Error{Entity: entity, From: string(from), To: string(to)}
}

// Sources returns every status that may move to `to`.
func (t Table[S]) Sources(to S) []S {
	var out []S
	for from, nexts := range t {
		for _, n := range nexts {
			if n == to {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

type Error struct {
	Entity string
	From   string
	To     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *Error) Unwrap() error { return ErrInvalid }
