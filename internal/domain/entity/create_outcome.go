package entity

import "github.com/wekeepgrowing/momo-checkout/internal/domain/model"

// CreateKind tags the result of session creation.
type CreateKind int

const (
	// Fresh is a new session with no in-flight predecessor.
	Fresh CreateKind = iota
	// LiveDuplicate is an existing session still inside the active window.
	LiveDuplicate
	// Superseded is a new session that replaced one or more stale ones.
	Superseded
)

func (k CreateKind) String() string {
	switch k {
	case Fresh:
		return "fresh"
	case LiveDuplicate:
		return "live_duplicate"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// CreateOutcome is returned by session creation.
type CreateOutcome struct {
	Kind    CreateKind
	Session *model.PaymentSession
	// SupersededIDs holds sessions failed with reason timeout by this call.
	SupersededIDs []string
}

func (o CreateOutcome) IsDuplicate() bool {
	return o.Kind == LiveDuplicate
}
