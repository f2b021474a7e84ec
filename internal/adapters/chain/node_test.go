package chain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/ledgerboard/internal/adapters/chain"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/ranking"
	"github.com/okian/ledgerboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const ownerHex = "0x00000000000000000000000000000000000000aa"

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	owner = common.HexToAddress(ownerHex)
)

func newNode(t *testing.T, opts ...chain.Option) *chain.Node {
	t.Helper()
	base := []chain.Option{
		chain.WithBlockTime(0, 0),
		chain.WithLogger(logger.Nop()),
		chain.WithOwner(ownerHex),
	}
	n, err := chain.NewNode(append(base, opts...)...)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	n.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = n.Stop(ctx)
	})
	return n
}

func settle(n *chain.Node, from model.Player, score uint64, game string) (model.Receipt, error) {
	ctx := context.Background()
	ref, err := n.SubmitScore(ctx, from, model.SubmissionRequest{Score: score, GameName: game})
	if err != nil {
		return model.Receipt{}, err
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r, err := n.Settlement(ctx, ref)
		if err != nil {
			return model.Receipt{}, err
		}
		if r.Status != model.StatusPending {
			return r, nil
		}
		time.Sleep(time.Millisecond)
	}
	return model.Receipt{}, errors.New("reference " + ref.Hex() + " never settled")
}

func submitAndSettle(t *testing.T, n *chain.Node, from model.Player, score uint64, game string) model.Receipt {
	t.Helper()
	r, err := settle(n, from, score, game)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNode_Submissions(t *testing.T) {
	Convey("Given a running ledger node", t, func() {
		n := newNode(t, chain.WithCapacity(3))
		ctx := context.Background()

		Convey("When a player submits a first score", func() {
			r := submitAndSettle(t, n, alice, 100, "Chess")

			Convey("Then best score, table and rank reflect it", func() {
				So(r.Status, ShouldEqual, model.StatusConfirmed)
				So(r.Block, ShouldBeGreaterThan, 0)
				best, _ := n.PlayerBestScore(ctx, alice)
				So(best, ShouldEqual, 100)
				top, _ := n.TopScores(ctx, 10)
				So(len(top), ShouldEqual, 1)
				So(top[0].Player, ShouldEqual, alice)
				So(top[0].GameName, ShouldEqual, "Chess")
				So(top[0].Timestamp, ShouldEqual, r.Timestamp)
				rank, _ := n.PlayerRank(ctx, alice)
				So(rank, ShouldEqual, 0)
			})
		})

		Convey("When a player submits a lower score later", func() {
			submitAndSettle(t, n, alice, 100, "Chess")
			r := submitAndSettle(t, n, alice, 50, "Chess")

			Convey("Then the write confirms but nothing changes", func() {
				So(r.Status, ShouldEqual, model.StatusConfirmed)
				best, _ := n.PlayerBestScore(ctx, alice)
				So(best, ShouldEqual, 100)
				top, _ := n.TopScores(ctx, 10)
				So(top[0].Score, ShouldEqual, 100)
			})
		})

		Convey("When the table is full and a low score arrives", func() {
			for i, p := range []model.Player{alice, bob, carol} {
				submitAndSettle(t, n, p, uint64(90-10*i), "g")
			}
			dave := common.HexToAddress("0xda7e")
			submitAndSettle(t, n, dave, 10, "g")

			Convey("Then the table is unchanged but the best updates", func() {
				count, _ := n.TopScoresCount(ctx)
				So(count, ShouldEqual, 3)
				best, _ := n.PlayerBestScore(ctx, dave)
				So(best, ShouldEqual, 10)
				rank, _ := n.PlayerRank(ctx, dave)
				So(rank.Ranked(), ShouldBeFalse)
			})
		})

		Convey("When the game name is too long", func() {
			r := submitAndSettle(t, n, alice, 10, strings.Repeat("x", 65))

			Convey("Then the write is accepted and later reverts", func() {
				So(r.Status, ShouldEqual, model.StatusFailed)
				So(r.Reason, ShouldEqual, chain.ReasonGameNameTooLong)
				best, _ := n.PlayerBestScore(ctx, alice)
				So(best, ShouldEqual, 0)
			})
		})

		Convey("When input is invalid", func() {
			_, errScore := n.SubmitScore(ctx, alice, model.SubmissionRequest{Score: 0, GameName: "g"})
			_, errName := n.SubmitScore(ctx, alice, model.SubmissionRequest{Score: 1, GameName: " "})
			_, errFrom := n.SubmitScore(ctx, model.Player{}, model.SubmissionRequest{Score: 1, GameName: "g"})
			_, errCount := n.TopScores(ctx, 0)

			Convey("Then it fails synchronously", func() {
				So(errors.Is(errScore, model.ErrValidation), ShouldBeTrue)
				So(errors.Is(errName, model.ErrValidation), ShouldBeTrue)
				So(errors.Is(errFrom, model.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(errCount, model.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When an unknown reference is observed", func() {
			_, err := n.Settlement(ctx, common.HexToHash("0xdead"))

			Convey("Then it is reported as unknown", func() {
				So(errors.Is(err, model.ErrUnknownReference), ShouldBeTrue)
			})
		})
	})
}

func TestNode_ResetAndEvents(t *testing.T) {
	Convey("Given a node with subscribers", t, func() {
		n := newNode(t, chain.WithCapacity(2))
		ctx := context.Background()

		var mu sync.Mutex
		var events []model.Event
		unsubscribe := n.Subscribe(func(ev model.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		})
		defer unsubscribe()

		submitAndSettle(t, n, alice, 50, "g")
		submitAndSettle(t, n, bob, 60, "g")
		submitAndSettle(t, n, carol, 70, "g")

		Convey("Then each write emits a submission event and rank changes are announced", func() {
			mu.Lock()
			defer mu.Unlock()
			submitted, evictedAlice := 0, false
			for _, ev := range events {
				if ev.Kind == model.EventScoreSubmitted {
					submitted++
				}
				if ev.Kind == model.EventLeaderboardUpdated && ev.Player == alice && !ev.NewRank.Ranked() {
					evictedAlice = true
				}
			}
			So(submitted, ShouldEqual, 3)
			So(evictedAlice, ShouldBeTrue)
		})

		Convey("When a stranger resets", func() {
			err := n.Reset(ctx, alice)

			Convey("Then it is refused", func() {
				So(errors.Is(err, model.ErrPrecondition), ShouldBeTrue)
				count, _ := n.TopScoresCount(ctx)
				So(count, ShouldEqual, 2)
			})
		})

		Convey("When the owner resets", func() {
			So(n.Reset(ctx, owner), ShouldBeNil)

			Convey("Then the table empties and bests persist", func() {
				count, _ := n.TopScoresCount(ctx)
				So(count, ShouldEqual, 0)
				best, _ := n.PlayerBestScore(ctx, carol)
				So(best, ShouldEqual, 70)
				capacity, _ := n.Capacity(ctx)
				So(capacity, ShouldEqual, 2)
			})
		})
	})
}

func TestNode_ConcurrentWritersKeepInvariants(t *testing.T) {
	n := newNode(t, chain.WithCapacity(5))
	ctx := context.Background()

	players := make([]model.Player, 12)
	for i := range players {
		players[i] = common.BytesToAddress([]byte{0x10, byte(i)})
	}
	var wg sync.WaitGroup
	for i, p := range players {
		wg.Add(1)
		go func(i int, p model.Player) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := settle(n, p, uint64((i*7+j*13)%50+1), "g"); err != nil {
					t.Error(err)
					return
				}
			}
		}(i, p)
	}
	wg.Wait()

	top, err := n.TopScores(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if err := ranking.VerifyTable(top, 5); err != nil {
		t.Fatal(err)
	}
	for _, p := range players {
		rank, _ := n.PlayerRank(ctx, p)
		best, _ := n.PlayerBestScore(ctx, p)
		if err := ranking.VerifyRank(p, rank, best, top); err != nil {
			t.Fatal(err)
		}
	}
	st := n.Stats(ctx)
	if st.Pending != 0 || st.TableSize != 5 || st.Players != len(players) {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestNode_Lifecycle(t *testing.T) {
	Convey("Given a stopped node", t, func() {
		n, err := chain.NewNode(chain.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		So(n.Stop(context.Background()), ShouldBeNil)

		Convey("Then writes are refused as unavailable", func() {
			_, err := n.SubmitScore(context.Background(), alice, model.SubmissionRequest{Score: 1, GameName: "g"})
			So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given an invalid owner", t, func() {
		_, err := chain.NewNode(chain.WithOwner("nobody"), chain.WithLogger(logger.Nop()))
		So(err, ShouldNotBeNil)
	})

	Convey("Given a full mempool on a node that is not producing blocks", t, func() {
		n, err := chain.NewNode(chain.WithMempoolSize(1), chain.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		ctx := context.Background()
		_, err = n.SubmitScore(ctx, alice, model.SubmissionRequest{Score: 1, GameName: "g"})
		So(err, ShouldBeNil)

		_, err = n.SubmitScore(ctx, alice, model.SubmissionRequest{Score: 2, GameName: "g"})
		So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
		So(n.Stats(ctx).Pending, ShouldEqual, 1)
	})

	Convey("Given a write waiting out a long block time", t, func() {
		n, err := chain.NewNode(chain.WithBlockTime(time.Hour, time.Hour), chain.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		ctx := context.Background()
		n.Start(ctx)
		ref, err := n.SubmitScore(ctx, alice, model.SubmissionRequest{Score: 9, GameName: "g"})
		So(err, ShouldBeNil)

		Convey("When Stop gives up waiting", func() {
			stopCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_ = n.Stop(stopCtx)

			Convey("Then the write is settled rather than left pending", func() {
				r, err := n.Settlement(ctx, ref)
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, model.StatusConfirmed)
				So(n.Stats(ctx).Pending, ShouldEqual, 0)
			})
		})
	})
}

// snapshot is every read the node offers for one player.
type snapshot struct {
	top   []model.ScoreEntry
	best  uint64
	rank  model.Rank
	count int
}

func readAll(ctx context.Context, n *chain.Node, p model.Player) (snapshot, error) {
	var s snapshot
	var err error
	if s.top, err = n.TopScores(ctx, 10); err != nil {
		return s, err
	}
	if s.best, err = n.PlayerBestScore(ctx, p); err != nil {
		return s, err
	}
	if s.rank, err = n.PlayerRank(ctx, p); err != nil {
		return s, err
	}
	s.count, err = n.TopScoresCount(ctx)
	return s, err
}

func TestNode_RepeatedReadsAgree(t *testing.T) {
	Convey("Given a node with settled writes", t, func() {
		n := newNode(t, chain.WithCapacity(2))
		ctx := context.Background()
		submitAndSettle(t, n, alice, 100, "Chess")
		submitAndSettle(t, n, bob, 100, "Go")
		submitAndSettle(t, n, carol, 40, "Go")

		Convey("Reading twice without a write in between gives the same answers", func() {
			for _, p := range []model.Player{alice, bob, carol, owner} {
				first, err := readAll(ctx, n, p)
				So(err, ShouldBeNil)
				second, err := readAll(ctx, n, p)
				So(err, ShouldBeNil)
				So(second, ShouldResemble, first)
			}
		})
	})
}
