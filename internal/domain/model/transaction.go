package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Reference is the opaque handle assigned when a write is accepted.
// The zero value means "not assigned yet".
type Reference = common.Hash

// Phase is the lifecycle position of one submission attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhasePending
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhasePending:
		return "pending"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// TransactionState is a snapshot of one submission attempt.
type TransactionState struct {
	Phase     Phase
	Reference Reference // zero until the write is accepted
	Err       error     // set only in PhaseFailed
	Receipt   Receipt   // set once settled by the ledger
}

// HasReference reports whether the ledger accepted the write.
func (s TransactionState) HasReference() bool {
	return s.Reference != (Reference{})
}

// Status is the ledger-side settlement status of a reference.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "pending":
		return StatusPending, true
	case "confirmed":
		return StatusConfirmed, true
	case "failed":
		return StatusFailed, true
	}
	return StatusPending, false
}

// Receipt reports the settlement of a reference.
type Receipt struct {
	Reference Reference
	Status    Status
	Reason    string // revert reason when failed
	Block     uint64
	Timestamp uint64
}

// Transaction is a write as it travels through the ledger's mempool.
type Transaction struct {
	Reference  Reference
	From       Player
	Score      uint64
	GameName   string
	Nonce      uint64
	AcceptedAt time.Time
}
