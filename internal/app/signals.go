package service

import (
	"github.com/google/uuid"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Outcome is the user-facing result of one submission attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Signal is emitted exactly once per submission attempt.
type Signal struct {
	Session   uuid.UUID
	Player    model.Player
	Outcome   Outcome
	Request   model.SubmissionRequest
	Reference model.Reference // zero when the write was never accepted
	Message   string          // user-facing failure text
	Err       error
}

// Notifier delivers signals to whatever presents them.
type Notifier interface {
	Notify(Signal)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Signal)

func (f NotifierFunc) Notify(s Signal) { f(s) }

type discard struct{}

func (discard) Notify(Signal) {}
