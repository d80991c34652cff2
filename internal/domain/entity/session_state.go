package entity

import (
	"fmt"

	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
)

// transitions lists every forward edge of the session state machine.
var transitions = map[model.SessionStatus][]model.SessionStatus{
	model.SessionStatusPending: {
		model.SessionStatusProcessing,
		model.SessionStatusFailed,
	},
	model.SessionStatusProcessing: {
		model.SessionStatusCompleted,
		model.SessionStatusFailed,
		model.SessionStatusExpired,
	},
}

// CanTransition reports whether a session in from may be written to.
// Rewriting the same terminal state is an idempotent overwrite and allowed.
func CanTransition(from, to model.SessionStatus) bool {
	if from == to && from.IsTerminal() {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition wrapped with both states when
// the edge is not defined.
func CheckTransition(from, to model.SessionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, from, to)
}
