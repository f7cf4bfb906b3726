package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/intramurals/internal/config"
	"github.com/okian/intramurals/pkg/logger"
)

const seedFixture = `
teams:
  - id: red
    name: Red Dragons
  - id: blue
    name: Blue Sharks
events:
  - id: relay
    name: Relay
    date: 2025-04-29T10:00:00Z
    competition_points: 500
    criteria:
      - name: Time
        max_points: 100
    results:
      - team: red
        scores: {Time: 90}
      - team: blue
        scores: {Time: 70}
`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("INTRAMURALS_ADDR", ":8080")
			_ = os.Setenv("INTRAMURALS_QUEUE_SIZE", "1000")
			_ = os.Setenv("INTRAMURALS_FACILITATOR_TEAM_ID", "staff")
			defer func() {
				_ = os.Unsetenv("INTRAMURALS_ADDR")
				_ = os.Unsetenv("INTRAMURALS_QUEUE_SIZE")
				_ = os.Unsetenv("INTRAMURALS_FACILITATOR_TEAM_ID")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CommandQueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.FacilitatorTeamID, convey.ShouldEqual, "staff")
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("INTRAMURALS_ADDR", "")
			defer func() { _ = os.Unsetenv("INTRAMURALS_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the baseline is malformed", func() {
			cfg := config.New()
			store, err := openStore(context.Background(), cfg)
			convey.So(err, convey.ShouldBeNil)
			cfg.CompetitionStart = "April"

			convey.Convey("Then the service is not built", func() {
				svc, err := newService(store, cfg, logger.Get())
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(svc, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a configured application", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.StoreDriver = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "main.db")
		cfg.SeedFile = filepath.Join(t.TempDir(), "seed.yaml")
		convey.So(os.WriteFile(cfg.SeedFile, []byte(seedFixture), 0o600), convey.ShouldBeNil)

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		svc, err := newService(store, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(context.Background())

		convey.Convey("When the seed file is applied twice", func() {
			convey.So(applySeed(ctx, svc, cfg.SeedFile, logger.Get()), convey.ShouldBeNil)
			convey.So(applySeed(ctx, svc, cfg.SeedFile, logger.Get()), convey.ShouldBeNil)

			convey.Convey("Then the standings reflect a single import", func() {
				board, err := svc.Leaderboard(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(board, convey.ShouldHaveLength, 2)
				convey.So(board[0].ID, convey.ShouldEqual, "red")
				convey.So(board[0].Score, convey.ShouldEqual, 500)
				convey.So(board[1].Score, convey.ShouldEqual, 400)
			})

			convey.Convey("Then the router serves the API and the docs", func() {
				h := newRouter(svc, cfg, logger.Get())
				for _, path := range []string{"/healthz", "/leaderboard", "/teams/red/history", "/api-docs", "/openapi.yaml"} {
					w := httptest.NewRecorder()
					h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})
		})

		convey.Convey("When a missing seed file is configured", func() {
			err := applySeed(ctx, svc, filepath.Join(t.TempDir(), "missing.yaml"), logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the metrics updater runs until cancelled", func() {
			short, stop := context.WithTimeout(ctx, 50*time.Millisecond)
			defer stop()

			convey.So(func() { startServiceMetricsUpdater(short, svc) }, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("When notifications are forwarded to an unreachable broker", func() {
			fwd, stop := context.WithCancel(ctx)
			err := startKafkaForwarder(fwd, svc, []string{"127.0.0.1:1"}, "test", logger.Get())
			stop()
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestUnknownStoreDriver(t *testing.T) {
	convey.Convey("Given an unknown store driver", t, func() {
		cfg := config.New()
		cfg.StoreDriver = "mongo"
		_, err := openStore(context.Background(), cfg)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(strings.Contains(err.Error(), "mongo"), convey.ShouldBeTrue)
	})
}
