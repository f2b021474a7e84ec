package dedupe_test

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/okian/ledgerboard/internal/domain/dedupe"
	"github.com/okian/ledgerboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ref(s string) model.Reference { return crypto.Keccak256Hash([]byte(s)) }

func TestDeduper(t *testing.T) {
	Convey("Given a deduper", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(3))

		Convey("When a reference is recorded twice", func() {
			first := d.SeenAndRecord(ref("a"))
			second := d.SeenAndRecord(ref("a"))

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When more references than the window are recorded", func() {
			for _, s := range []string{"a", "b", "c", "d"} {
				So(d.SeenAndRecord(ref(s)), ShouldBeFalse)
			}

			Convey("Then the oldest one is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ref("d")), ShouldBeTrue)
				So(d.SeenAndRecord(ref("a")), ShouldBeFalse)
			})
		})

		Convey("When a reference is unrecorded", func() {
			d.SeenAndRecord(ref("a"))
			d.Unrecord(ref("a"))

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ref("a")), ShouldBeFalse)
			})
		})

		Convey("When an unrecorded reference is re-added and its old slot is evicted", func() {
			d.SeenAndRecord(ref("a"))
			d.Unrecord(ref("a"))
			d.SeenAndRecord(ref("b"))
			d.SeenAndRecord(ref("c"))
			d.SeenAndRecord(ref("a"))

			Convey("Then the newer record survives", func() {
				So(d.SeenAndRecord(ref("a")), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper under concurrent use", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(0))
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _, s := range []string{"x", "y", "z"} {
					if !d.SeenAndRecord(ref(s)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each reference is fresh exactly once", func() {
			So(fresh, ShouldEqual, 3)
			So(d.Size(), ShouldEqual, 3)
		})
	})
}
