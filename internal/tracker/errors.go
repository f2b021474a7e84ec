package tracker

import (
	"errors"

	"github.com/okian/ledgerboard/internal/domain/model"
)

var (
	// ErrAbandoned is returned by Await when the caller stops observing a
	// pending reference. The write may still settle on the ledger.
	ErrAbandoned = errors.New("tracking abandoned")

	errPending = errors.New("settlement pending")
)

// retryable reports whether a settlement lookup is worth repeating. Only a
// pending receipt, a reference the ledger does not know yet, or a ledger
// that cannot be reached can still turn into a settlement.
func retryable(err error) bool {
	return errors.Is(err, errPending) ||
		errors.Is(err, model.ErrUnknownReference) ||
		errors.Is(err, model.ErrUnavailable)
}
