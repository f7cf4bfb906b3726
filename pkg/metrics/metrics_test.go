package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "intramurals")
				So(manager.subsystem, ShouldEqual, "scoring")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("league"),
				WithSubsystem("board"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"season": "2025"}),
				WithPrometheusRegistry(registry),
			)
			manager.totalTeams.Set(4)

			Convey("Then metrics carry the custom names and labels", func() {
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				expected := `
# HELP league_board_teams_total Number of teams, facilitator included
# TYPE league_board_teams_total gauge
league_board_teams_total{season="2025"} 4
`
				So(testutil.GatherAndCompare(registry, strings.NewReader(expected), "league_board_teams_total"), ShouldBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording write path metrics", func() {
			before := testutil.ToFloat64(globalManager.commandsProcessed.WithLabelValues("submit_results"))
			RecordCommandProcessed("submit_results")
			RecordCommandProcessed("submit_results")

			Convey("Then the counter advances", func() {
				after := testutil.ToFloat64(globalManager.commandsProcessed.WithLabelValues("submit_results"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording a recompute", func() {
			RecordRecompute(3.5, 1_700_000_000)

			Convey("Then the snapshot timestamp is exposed", func() {
				So(testutil.ToFloat64(globalManager.snapshotLastUnix), ShouldEqual, 1_700_000_000)
			})
		})

		Convey("When updating standings gauges", func() {
			UpdateStandings(7, 3, 2)
			So(testutil.ToFloat64(globalManager.totalTeams), ShouldEqual, 7)
			So(testutil.ToFloat64(globalManager.totalEvents), ShouldEqual, 3)
			So(testutil.ToFloat64(globalManager.completedEvents), ShouldEqual, 2)
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordCommandFailed("add_point_log")
				RecordCommandDuplicate()
				RecordCommandLatency(1.2)
				RecordNotification()
				UpdateQueueSize(3)
				UpdateQueueCapacity(1024)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueBackpressure()
				RecordStoreLatency("memory", "put", 0.1)
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 2.0)
				RecordRateLimited()
				RecordErrorByComponent("api", "not_found")
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
