package loadgen

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Plan is the scripted input of one simulated player.
type Plan struct {
	Player      model.Player              `json:"player"`
	Submissions []model.SubmissionRequest `json:"submissions"`
}

// PlayerAddress derives a stable identity from seed and index.
func PlayerAddress(seed uint64, index int) model.Player {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seed)
	binary.BigEndian.PutUint64(buf[8:], uint64(index)) //nolint:gosec // index is non-negative
	return common.BytesToAddress(crypto.Keccak256(buf[:])[12:])
}

// Generate builds one plan per player. The same config always yields the
// same plans.
func Generate(cfg Config) []Plan {
	cfg.normalize()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // simulation input

	plans := make([]Plan, cfg.Players)
	for i := range plans {
		subs := make([]model.SubmissionRequest, cfg.Rounds)
		for j := range subs {
			subs[j] = model.SubmissionRequest{
				Score:    1 + rng.Uint64N(cfg.MaxScore),
				GameName: cfg.GameNames[rng.IntN(len(cfg.GameNames))],
			}
		}
		plans[i] = Plan{Player: PlayerAddress(cfg.Seed, i), Submissions: subs}
	}
	return plans
}

// WritePlans encodes plans as indented JSON.
func WritePlans(w io.Writer, plans []Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plans)
}

func scoreText(s uint64) string { return strconv.FormatUint(s, 10) }
