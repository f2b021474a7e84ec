package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/ledgerboard/internal/config"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/types"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("LEDGERBOARD_ADDR", ":8088")
	t.Setenv("LEDGERBOARD_TABLE_CAPACITY", "7")
	t.Setenv("LEDGERBOARD_BLOCK_TIME_MIN_MS", "0")
	t.Setenv("LEDGERBOARD_BLOCK_TIME_MAX_MS", "0")

	convey.Convey("Given environment overrides", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the node is built with them", func() {
			node, err := newNode(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
			convey.So(node.Stats(context.Background()).Capacity, convey.ShouldEqual, 7)
		})
	})
}

func TestInvalidOwnerIsRejected(t *testing.T) {
	convey.Convey("Given an owner that is not an address", t, func() {
		cfg := config.New()
		cfg.Owner = "nobody"

		convey.Convey("Then the node cannot be built", func() {
			_, err := newNode(cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestGatewayRoutes(t *testing.T) {
	convey.Convey("Given a started node behind the gateway", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := config.New()
		cfg.TableCapacity = 4
		cfg.BlockTimeMinMS, cfg.BlockTimeMaxMS = 0, 0
		node, err := newNode(cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		node.Start(ctx)
		defer func() { _ = node.Stop(context.Background()) }()

		srv := httptest.NewServer(newHandler(ctx, node, logger.Nop()))
		defer srv.Close()

		convey.Convey("Then the count reports the configured capacity", func() {
			resp, err := http.Get(srv.URL + "/v1/scores/count")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			var c types.Count
			convey.So(json.NewDecoder(resp.Body).Decode(&c), convey.ShouldBeNil)
			convey.So(c.Count, convey.ShouldEqual, 0)
			convey.So(c.Capacity, convey.ShouldEqual, 4)
		})

		convey.Convey("Then health serves metrics", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the API document is served", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(resp.Header.Get("Content-Type"), convey.ShouldStartWith, "application/yaml")
		})

		convey.Convey("Then the metric updaters do not panic", func() {
			convey.So(func() { updateNodeMetrics(ctx, node) }, convey.ShouldNotPanic)
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() {
				logEvent(ctx, logger.Nop(), model.Event{Kind: model.EventScoreSubmitted, Score: 1})
				logEvent(ctx, logger.Nop(), model.Event{Kind: model.EventLeaderboardUpdated, NewRank: model.Unranked})
			}, convey.ShouldNotPanic)
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a running daemon", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.BlockTimeMinMS, cfg.BlockTimeMaxMS = 0, 0

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		convey.Convey("Then it shuts down cleanly when the context ends", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return")
			}
		})
	})
}
