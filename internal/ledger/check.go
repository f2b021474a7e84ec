package ledger

import (
	"strings"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// MsgNoIdentity is returned when a write has no sender.
const MsgNoIdentity = "no authenticated identity"

// CheckSubmission applies the synchronous write checks every Writer performs
// before accepting: a positive score, a non-blank game name and a sender.
func CheckSubmission(op string, from model.Player, req model.SubmissionRequest) error {
	if req.Score == 0 {
		return model.Validation(op, model.MsgInvalidScore)
	}
	if strings.TrimSpace(req.GameName) == "" {
		return model.Validation(op, model.MsgMissingGameName)
	}
	if from == (model.Player{}) {
		return model.NewKind(op, model.ErrUnavailable, MsgNoIdentity)
	}
	return nil
}

// CheckCount rejects non-positive table reads.
func CheckCount(op string, count int) error {
	if count <= 0 {
		return model.InvalidArgument(op, "count must be positive")
	}
	return nil
}
