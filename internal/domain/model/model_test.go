package model_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/ledgerboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseSubmission(t *testing.T) {
	Convey("Given raw form input", t, func() {
		Convey("When score and game name are valid", func() {
			req, err := model.ParseSubmission(" 100 ", "  Chess ")

			Convey("Then the request is trimmed and parsed", func() {
				So(err, ShouldBeNil)
				So(req.Score, ShouldEqual, 100)
				So(req.GameName, ShouldEqual, "Chess")
			})
		})

		for _, raw := range []string{"", "0", "-5", "abc", "12abc", "1.5"} {
			raw := raw
			Convey("When the score is "+`"`+raw+`"`, func() {
				_, err := model.ParseSubmission(raw, "Chess")

				Convey("Then it is rejected as an invalid score", func() {
					So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
					So(model.Message(err), ShouldEqual, model.MsgInvalidScore)
				})
			})
		}

		Convey("When the game name is only whitespace", func() {
			_, err := model.ParseSubmission("10", " \t ")

			Convey("Then it is rejected as a missing game name", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				So(model.Message(err), ShouldEqual, model.MsgMissingGameName)
			})
		})
	})
}

func TestErrorTaxonomy(t *testing.T) {
	Convey("Given errors of every kind", t, func() {
		cause := errors.New("dial tcp: connection refused")

		Convey("Then kinds and causes are both visible to errors.Is", func() {
			err := model.Unavailable("ledger.top_scores", cause)
			So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(model.KindOf(err), ShouldEqual, model.ErrUnavailable)
			So(err.Error(), ShouldEqual, "ledger.top_scores: dial tcp: connection refused")
			So(model.Message(err), ShouldEqual, cause.Error())
		})

		Convey("Then settlement failures carry the backend reason", func() {
			err := model.SettlementFailure("tracker.await", "game name too long")
			So(errors.Is(err, model.ErrSettlement), ShouldBeTrue)
			So(model.Message(err), ShouldEqual, "game name too long")
		})

		Convey("Then an empty revert reason gets a default message", func() {
			So(model.Message(model.SettlementFailure("op", "")), ShouldEqual, "transaction reverted")
		})

		Convey("Then timeouts keep the context error", func() {
			err := model.Timeout("tracker.await", context.DeadlineExceeded)
			So(errors.Is(err, model.ErrTimeout), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("Then foreign errors have no kind", func() {
			So(model.KindOf(cause), ShouldBeNil)
			So(model.KindLabel(cause), ShouldEqual, "other")
			So(model.KindLabel(nil), ShouldEqual, "")
			So(model.Message(nil), ShouldEqual, "")
		})

		Convey("Then every kind has a label", func() {
			So(model.KindLabel(model.Validation("op", "x")), ShouldEqual, "validation")
			So(model.KindLabel(model.Precondition("op", "x")), ShouldEqual, "precondition")
			So(model.KindLabel(model.InvalidArgument("op", "x")), ShouldEqual, "invalid_argument")
			So(model.KindLabel(model.SettlementFailure("op", "")), ShouldEqual, "settlement")
			So(model.KindLabel(model.Timeout("op", nil)), ShouldEqual, "timeout")
			So(model.KindLabel(model.Unavailable("op", nil)), ShouldEqual, "unavailable")
			So(model.KindLabel(model.WrapKind("op", model.ErrUnknownReference, cause)), ShouldEqual, "unknown_reference")
		})
	})
}

func TestPhaseAndRank(t *testing.T) {
	Convey("Given transaction phases", t, func() {
		So(model.PhaseIdle.Terminal(), ShouldBeFalse)
		So(model.PhaseSubmitting.Terminal(), ShouldBeFalse)
		So(model.PhasePending.Terminal(), ShouldBeFalse)
		So(model.PhaseConfirmed.Terminal(), ShouldBeTrue)
		So(model.PhaseFailed.Terminal(), ShouldBeTrue)
		So(model.PhasePending.String(), ShouldEqual, "pending")
	})

	Convey("Given ranks", t, func() {
		So(model.Rank(0).Ranked(), ShouldBeTrue)
		So(model.Rank(0).Position(), ShouldEqual, 1)
		So(model.Unranked.Ranked(), ShouldBeFalse)
		So(model.Unranked.Position(), ShouldEqual, 0)
	})

	Convey("Given settlement statuses", t, func() {
		for _, s := range []model.Status{model.StatusPending, model.StatusConfirmed, model.StatusFailed} {
			parsed, ok := model.ParseStatus(s.String())
			So(ok, ShouldBeTrue)
			So(parsed, ShouldEqual, s)
		}
		_, ok := model.ParseStatus("reverted")
		So(ok, ShouldBeFalse)
	})
}
