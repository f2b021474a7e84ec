package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Error codes carried in Error.Code. They match model.KindLabel.
const (
	CodeValidation       = "validation"
	CodePrecondition     = "precondition"
	CodeInvalidArgument  = "invalid_argument"
	CodeSettlement       = "settlement"
	CodeTimeout          = "timeout"
	CodeUnknownReference = "unknown_reference"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal"
)

var codeKinds = map[string]error{
	CodeValidation:       model.ErrValidation,
	CodePrecondition:     model.ErrPrecondition,
	CodeInvalidArgument:  model.ErrInvalidArgument,
	CodeSettlement:       model.ErrSettlement,
	CodeTimeout:          model.ErrTimeout,
	CodeUnknownReference: model.ErrUnknownReference,
	CodeUnavailable:      model.ErrUnavailable,
}

// ErrorOf renders err for the wire.
func ErrorOf(err error) Error {
	code := model.KindLabel(err)
	if _, ok := codeKinds[code]; !ok {
		code = CodeInternal
	}
	return Error{Code: code, Message: model.Message(err)}
}

// Err rebuilds a taxonomy error from a wire error. Unknown codes map to
// model.ErrUnavailable.
func (e Error) Err(op string) error {
	kind, ok := codeKinds[e.Code]
	if !ok {
		kind = model.ErrUnavailable
	}
	return model.NewKind(op, kind, e.Message)
}

// ParsePlayer decodes a hex account address.
func ParsePlayer(s string) (model.Player, error) {
	if !common.IsHexAddress(s) {
		return model.Player{}, model.InvalidArgument("types.parse_player", fmt.Sprintf("invalid player %q", s))
	}
	return common.HexToAddress(s), nil
}

// ParseReference decodes a 0x-prefixed 32-byte reference.
func ParseReference(s string) (model.Reference, error) {
	b, err := hexutil.Decode(s)
	if err == nil && len(b) != common.HashLength {
		err = errors.New("wrong length")
	}
	if err != nil {
		return model.Reference{}, model.InvalidArgument("types.parse_reference", fmt.Sprintf("invalid reference %q: %v", s, err))
	}
	return common.BytesToHash(b), nil
}

// FromEntry converts a table entry for the wire.
func FromEntry(e model.ScoreEntry) Entry {
	return Entry{Player: e.Player.Hex(), Score: e.Score, GameName: e.GameName, Timestamp: e.Timestamp}
}

// Model converts a wire entry back.
func (e Entry) Model() (model.ScoreEntry, error) {
	p, err := ParsePlayer(e.Player)
	if err != nil {
		return model.ScoreEntry{}, err
	}
	return model.ScoreEntry{Player: p, Score: e.Score, GameName: e.GameName, Timestamp: e.Timestamp}, nil
}

// FromRank converts a rank for the wire.
func FromRank(p model.Player, r model.Rank) Rank {
	if !r.Ranked() {
		return Rank{Player: p.Hex(), Rank: -1}
	}
	return Rank{Player: p.Hex(), Rank: int(r), Ranked: true}
}

// Model converts a wire rank back.
func (r Rank) Model() model.Rank {
	if !r.Ranked || r.Rank < 0 {
		return model.Unranked
	}
	return model.Rank(r.Rank)
}

// FromReceipt converts a receipt for the wire.
func FromReceipt(r model.Receipt) Receipt {
	return Receipt{
		Reference: r.Reference.Hex(),
		Status:    r.Status.String(),
		Reason:    r.Reason,
		Block:     r.Block,
		Timestamp: r.Timestamp,
	}
}

// Model converts a wire receipt back.
func (r Receipt) Model() (model.Receipt, error) {
	ref, err := ParseReference(r.Reference)
	if err != nil {
		return model.Receipt{}, err
	}
	st, ok := model.ParseStatus(r.Status)
	if !ok {
		return model.Receipt{}, model.InvalidArgument("types.receipt", fmt.Sprintf("unknown status %q", r.Status))
	}
	return model.Receipt{Reference: ref, Status: st, Reason: r.Reason, Block: r.Block, Timestamp: r.Timestamp}, nil
}
