package loadgen_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/ledgerboard/internal/adapters/chain"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/loadgen"
	"github.com/okian/ledgerboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := loadgen.Config{Players: 4, Rounds: 3, MaxScore: 10, GameNames: []string{"Go"}, Seed: 7}

		Convey("Plans are reproducible", func() {
			So(loadgen.Generate(cfg), ShouldResemble, loadgen.Generate(cfg))
		})

		Convey("Plans respect the bounds", func() {
			plans := loadgen.Generate(cfg)
			So(plans, ShouldHaveLength, 4)
			seen := map[model.Player]bool{}
			for _, p := range plans {
				So(seen[p.Player], ShouldBeFalse)
				seen[p.Player] = true
				So(p.Submissions, ShouldHaveLength, 3)
				for _, s := range p.Submissions {
					So(s.Score, ShouldBeBetweenOrEqual, 1, 10)
					So(s.GameName, ShouldEqual, "Go")
				}
			}
		})

		Convey("A different seed yields different players", func() {
			other := cfg
			other.Seed = 8
			So(loadgen.Generate(other)[0].Player, ShouldNotEqual, loadgen.Generate(cfg)[0].Player)
		})

		Convey("Plans encode as JSON", func() {
			var buf bytes.Buffer
			So(loadgen.WritePlans(&buf, loadgen.Generate(cfg)), ShouldBeNil)
			var decoded []map[string]any
			So(json.Unmarshal(buf.Bytes(), &decoded), ShouldBeNil)
			So(decoded, ShouldHaveLength, 4)
		})
	})
}

func TestRun(t *testing.T) {
	n, err := chain.NewNode(chain.WithBlockTime(0, time.Millisecond), chain.WithCapacity(5), chain.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	n.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = n.Stop(ctx)
	}()

	cfg := loadgen.Config{
		Players:    20,
		Rounds:     3,
		Workers:    8,
		MaxScore:   50,
		Seed:       42,
		Timeout:    5 * time.Second,
		Poll:       time.Millisecond,
		OutputFile: filepath.Join(t.TempDir(), "plans", "run.json"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := loadgen.Run(ctx, n, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.OK() {
		t.Fatalf("report not ok: %+v", report)
	}
	if report.Submitted != 60 || report.Confirmed != 60 {
		t.Fatalf("submitted %d confirmed %d, want 60/60", report.Submitted, report.Confirmed)
	}
	if report.TableSize != 5 || report.Capacity != 5 {
		t.Fatalf("table %d/%d, want 5/5", report.TableSize, report.Capacity)
	}
}

// tableReader serves a fixed, possibly inconsistent, ledger view.
type tableReader struct {
	table []model.ScoreEntry
	best  map[model.Player]uint64
	rank  map[model.Player]model.Rank
}

func (r tableReader) TopScores(_ context.Context, n int) ([]model.ScoreEntry, error) {
	return r.table[:min(n, len(r.table))], nil
}

func (r tableReader) PlayerBestScore(_ context.Context, p model.Player) (uint64, error) {
	return r.best[p], nil
}

func (r tableReader) PlayerRank(_ context.Context, p model.Player) (model.Rank, error) {
	if rank, ok := r.rank[p]; ok {
		return rank, nil
	}
	return model.Unranked, nil
}

func (r tableReader) TopScoresCount(context.Context) (int, error) { return len(r.table), nil }

func TestVerify(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	c := common.HexToAddress("0x0c")

	Convey("Given ledger views", t, func() {
		ctx := context.Background()
		good := tableReader{
			table: []model.ScoreEntry{{Player: a, Score: 30, Timestamp: 1}, {Player: b, Score: 20, Timestamp: 2}},
			best:  map[model.Player]uint64{a: 30, b: 20, c: 10},
			rank:  map[model.Player]model.Rank{a: 0, b: 1},
		}

		Convey("A consistent full table passes", func() {
			v, err := loadgen.Verify(ctx, good, 2, map[model.Player]uint64{a: 30, b: 20, c: 10})
			So(err, ShouldBeNil)
			So(v, ShouldBeEmpty)
		})

		Convey("An unranked player in a table with free slots is flagged", func() {
			v, err := loadgen.Verify(ctx, good, 3, map[model.Player]uint64{c: 10})
			So(err, ShouldBeNil)
			So(v, ShouldHaveLength, 1)
		})

		Convey("A best below a confirmed score is flagged", func() {
			v, err := loadgen.Verify(ctx, good, 2, map[model.Player]uint64{a: 31})
			So(err, ShouldBeNil)
			So(v, ShouldHaveLength, 1)
		})

		Convey("A rank pointing at someone else is flagged", func() {
			bad := good
			bad.rank = map[model.Player]model.Rank{a: 1, b: 1}
			v, err := loadgen.Verify(ctx, bad, 2, map[model.Player]uint64{a: 30})
			So(err, ShouldBeNil)
			So(v, ShouldHaveLength, 1)
		})

		Convey("A disordered table is flagged", func() {
			bad := good
			bad.table = []model.ScoreEntry{{Player: b, Score: 20}, {Player: a, Score: 30}}
			v, err := loadgen.Verify(ctx, bad, 2, nil)
			So(err, ShouldBeNil)
			So(v, ShouldHaveLength, 1)
		})
	})
}
