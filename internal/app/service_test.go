package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/okian/intramurals/internal/adapters/repository"
	service "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/pkg/logger"
)

var baseline = time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return baseline.AddDate(0, 0, n) }

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newService(t *testing.T, kv repository.KV, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithBaseline(baseline),
		service.WithFacilitator("facilitators"),
		service.WithClock(func() time.Time { return day(10) }),
		service.WithTracer(noop.NewTracerProvider().Tracer("test")),
	}
	svc := service.New(repository.NewRecords(kv), append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc
}

func mustTeams(ctx context.Context, svc *service.Service, ids ...string) {
	for _, id := range ids {
		if _, err := svc.CreateTeam(ctx, service.TeamInput{ID: id, Name: "Team " + id}); err != nil {
			panic(err)
		}
	}
}

func scored(teamID string, score float64) model.EventResult {
	return model.EventResult{TeamID: teamID, CriteriaScores: map[string]model.Points{"Performance": model.Points(score)}}
}

func scoreboard(teams []model.Team) map[string][2]int {
	out := make(map[string][2]int, len(teams))
	for _, t := range teams {
		out[t.ID] = [2]int{t.Rank, t.Score}
	}
	return out
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(repository.NewRecords(repository.NewMemoryKV()))

		Convey("Then mutations are refused", func() {
			_, err := svc.CreateTeam(context.Background(), service.TeamInput{Name: "Red"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then reads see an empty board", func() {
			board, err := svc.Leaderboard(context.Background())
			So(err, ShouldBeNil)
			So(board, ShouldBeEmpty)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("Then stopping is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given a started service", t, func() {
		svc := newService(t, repository.NewMemoryKV())

		Convey("Then stats report the store and queue", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["store"], ShouldEqual, "memory")
			So(stats, ShouldContainKey, "queueLength")
		})
	})
}

func TestService_SubmitEventResults(t *testing.T) {
	Convey("Given three teams and a 1000 point event", t, func() {
		ctx := context.Background()
		svc := newService(t, repository.NewMemoryKV())
		mustTeams(ctx, svc, "a", "b", "c", "facilitators")
		ev, err := svc.CreateEvent(ctx, service.EventInput{
			ID:                "dance",
			Name:              "Dance Off",
			Date:              day(1),
			CompetitionPoints: 1000,
			Criteria:          []model.Criterion{{Name: "Performance", MaxPoints: 100}},
		})
		So(err, ShouldBeNil)
		So(ev.Status, ShouldEqual, model.StatusUpcoming)

		Convey("When two teams tie on raw score", func() {
			ev, err := svc.SubmitEventResults(ctx, "dance", []model.EventResult{
				scored("a", 90), scored("b", 90), scored("c", 70),
			})
			So(err, ShouldBeNil)

			Convey("Then the tied teams share placement and points", func() {
				So(ev.Status, ShouldEqual, model.StatusCompleted)
				board, err := svc.Leaderboard(ctx)
				So(err, ShouldBeNil)
				So(board, ShouldHaveLength, 3)
				So(scoreboard(board), ShouldResemble, map[string][2]int{
					"a": {1, 1000},
					"b": {1, 1000},
					"c": {3, 800},
				})
				c, err := svc.Team(ctx, "c")
				So(err, ShouldBeNil)
				So(c.EventScores, ShouldHaveLength, 1)
				So(c.EventScores[0].Placement, ShouldEqual, 2)
			})

			Convey("Then the facilitator is tracked but unranked", func() {
				f, err := svc.Team(ctx, "facilitators")
				So(err, ShouldBeNil)
				So(f.Rank, ShouldEqual, 0)
				teams, err := svc.Teams(ctx)
				So(err, ShouldBeNil)
				So(teams, ShouldHaveLength, 4)
				So(teams[3].ID, ShouldEqual, "facilitators")
			})

			Convey("Then a scores notification is in the feed", func() {
				feed, err := svc.Notifications(ctx, time.Time{})
				So(err, ShouldBeNil)
				So(feed, ShouldNotBeEmpty)
				So(feed[0].Title, ShouldEqual, "Scores Finalized")
				So(feed[0].Link, ShouldEqual, "/leaderboard")
			})

			Convey("And the same results are submitted again", func() {
				before, _ := svc.Leaderboard(ctx)
				_, err := svc.SubmitEventResults(ctx, "dance", []model.EventResult{
					scored("a", 90), scored("b", 90), scored("c", 70),
				})
				So(err, ShouldBeNil)

				Convey("Then standings are unchanged", func() {
					after, _ := svc.Leaderboard(ctx)
					So(scoreboard(after), ShouldResemble, scoreboard(before))
				})
			})

			Convey("And the event is deleted", func() {
				So(svc.DeleteEvent(ctx, "dance"), ShouldBeNil)

				Convey("Then its awards disappear", func() {
					board, _ := svc.Leaderboard(ctx)
					for _, tm := range board {
						So(tm.Score, ShouldEqual, 0)
						So(tm.Rank, ShouldEqual, 1)
					}
					_, err := svc.Event(ctx, "dance")
					So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("And the pool is changed", func() {
				pool := 500
				_, err := svc.UpdateEvent(ctx, "dance", service.EventPatch{CompetitionPoints: &pool})
				So(err, ShouldBeNil)

				Convey("Then awards are re-derived", func() {
					board, _ := svc.Leaderboard(ctx)
					So(scoreboard(board)["c"], ShouldResemble, [2]int{3, 400})
				})
			})
		})

		Convey("When a submission is invalid", func() {
			_, errUnknownEvent := svc.SubmitEventResults(ctx, "nope", []model.EventResult{scored("a", 1)})
			_, errUnknownTeam := svc.SubmitEventResults(ctx, "dance", []model.EventResult{scored("zzz", 1)})
			_, errDuplicate := svc.SubmitEventResults(ctx, "dance", []model.EventResult{scored("a", 1), scored("a", 2)})
			_, errEmpty := svc.SubmitEventResults(ctx, "dance", []model.EventResult{scored(" ", 1)})

			Convey("Then the right error kinds come back and nothing is written", func() {
				So(errors.Is(errUnknownEvent, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errUnknownTeam, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errDuplicate, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errEmpty, service.ErrInvalidInput), ShouldBeTrue)

				ev, err := svc.Event(ctx, "dance")
				So(err, ShouldBeNil)
				So(ev.Results, ShouldBeEmpty)
				So(ev.Status, ShouldEqual, model.StatusUpcoming)
			})
		})
	})
}

func TestService_History(t *testing.T) {
	Convey("Given a team that wins an event and collects logs", t, func() {
		ctx := context.Background()
		svc := newService(t, repository.NewMemoryKV())
		mustTeams(ctx, svc, "a", "b")
		_, err := svc.CreateEvent(ctx, service.EventInput{
			ID: "relay", Name: "Relay", Date: day(1), CompetitionPoints: 1000,
			Criteria: []model.Criterion{{Name: "Performance", MaxPoints: 100}},
		})
		So(err, ShouldBeNil)
		_, err = svc.SubmitEventResults(ctx, "relay", []model.EventResult{scored("a", 10), scored("b", 5)})
		So(err, ShouldBeNil)

		meritAt, demeritAt := day(2), day(3)
		merit, err := svc.AddPointLog(ctx, service.PointLogInput{
			TeamID: "a", Kind: model.KindMerit, Points: 50, Reason: "Cleanup", Author: "judge", Timestamp: &meritAt,
		})
		So(err, ShouldBeNil)
		demerit, err := svc.AddPointLog(ctx, service.PointLogInput{
			TeamID: "a", Kind: model.KindDemerit, Points: 30, Reason: "Late", Author: "judge",
			ResponsiblePerson: "Sam", Timestamp: &demeritAt,
		})
		So(err, ShouldBeNil)
		So(demerit.ResponsiblePerson, ShouldEqual, "Sam")
		So(demerit.Seq, ShouldBeGreaterThan, merit.Seq)

		Convey("Then the detailed history walks the ledger", func() {
			h, err := svc.TeamHistory(ctx, "a")
			So(err, ShouldBeNil)
			scores := make([]int, len(h.Detailed))
			for i, p := range h.Detailed {
				scores[i] = p.Score
			}
			So(cmp.Diff([]int{0, 1000, 1050, 1020}, scores), ShouldBeEmpty)
			So(h.Score, ShouldEqual, 1020)
			So(h.Daily[len(h.Daily)-1].Score, ShouldEqual, h.Score)
		})

		Convey("Then the merit and demerit are announced", func() {
			feed, _ := svc.Notifications(ctx, time.Time{})
			So(feed[0].Title, ShouldEqual, "Demerit Issued")
			So(feed[0].Type, ShouldEqual, model.NotifyWarning)
			So(feed[1].Title, ShouldEqual, "Merit Awarded")
			So(feed[1].Message, ShouldEqual, "Team Team a received 50 points for: Cleanup")
		})

		Convey("When the demerit is updated", func() {
			pts := 10
			l, err := svc.UpdatePointLog(ctx, demerit.ID, "a", model.PointLogPatch{Points: &pts})
			So(err, ShouldBeNil)
			So(l.Points, ShouldEqual, 10)

			Convey("Then the total follows", func() {
				a, _ := svc.Team(ctx, "a")
				So(a.Score, ShouldEqual, 1040)
			})
		})

		Convey("When the merit is deleted", func() {
			So(svc.DeletePointLog(ctx, merit.ID, "a", model.KindMerit), ShouldBeNil)

			Convey("Then the total follows", func() {
				a, _ := svc.Team(ctx, "a")
				So(a.Score, ShouldEqual, 970)
				So(a.PlacementStats.Merits, ShouldEqual, 0)
			})
		})

		Convey("When logs are addressed wrongly", func() {
			pts := 1
			_, errUnknownLog := svc.UpdatePointLog(ctx, "missing", "a", model.PointLogPatch{Points: &pts})
			errWrongKind := svc.DeletePointLog(ctx, merit.ID, "a", model.KindDemerit)
			errBadKind := svc.DeletePointLog(ctx, merit.ID, "a", "bonus")
			_, errUnknownTeam := svc.AddPointLog(ctx, service.PointLogInput{TeamID: "zzz", Kind: model.KindMerit, Points: 1, Reason: "x"})
			_, errNegative := svc.AddPointLog(ctx, service.PointLogInput{TeamID: "a", Kind: model.KindMerit, Points: -1, Reason: "x"})

			Convey("Then each is rejected", func() {
				So(errors.Is(errUnknownLog, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errWrongKind, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errBadKind, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errUnknownTeam, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errNegative, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When history is requested for an unknown team", func() {
			_, err := svc.TeamHistory(ctx, "zzz")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Idempotency(t *testing.T) {
	Convey("Given a team", t, func() {
		ctx := context.Background()
		svc := newService(t, repository.NewMemoryKV())
		mustTeams(ctx, svc, "a")

		Convey("When the same merit is retried with one key", func() {
			keyed := service.WithIdempotencyKey(ctx, "req-1")
			in := service.PointLogInput{TeamID: "a", Kind: model.KindMerit, Points: 5, Reason: "Help"}
			first, err1 := svc.AddPointLog(keyed, in)
			second, err2 := svc.AddPointLog(keyed, in)

			Convey("Then it is applied once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.ID, ShouldEqual, first.ID)
				a, _ := svc.Team(ctx, "a")
				So(a.Merits, ShouldHaveLength, 1)
				So(a.Score, ShouldEqual, 5)
			})
		})

		Convey("When a team id is reused", func() {
			_, err := svc.CreateTeam(ctx, service.TeamInput{ID: "a", Name: "Again"})
			So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
		})
	})
}

func TestService_Persistence(t *testing.T) {
	Convey("Given records written by one service", t, func() {
		ctx := context.Background()
		kv := repository.NewMemoryKV()
		first := newService(t, kv)
		mustTeams(ctx, first, "a", "b")
		_, err := first.CreateEvent(ctx, service.EventInput{
			ID: "quiz", Name: "Quiz", Date: day(1), CompetitionPoints: 100,
			Criteria: []model.Criterion{{Name: "Performance"}},
		})
		So(err, ShouldBeNil)
		_, err = first.SubmitEventResults(ctx, "quiz", []model.EventResult{scored("a", 1), scored("b", 2)})
		So(err, ShouldBeNil)
		log, err := first.AddPointLog(ctx, service.PointLogInput{TeamID: "a", Kind: model.KindMerit, Points: 3, Reason: "Spirit"})
		So(err, ShouldBeNil)
		want, _ := first.Leaderboard(ctx)
		So(first.Stop(ctx), ShouldBeNil)

		Convey("When a new service starts over the same store", func() {
			second := newService(t, kv)

			Convey("Then standings and the feed are restored", func() {
				got, _ := second.Leaderboard(ctx)
				So(scoreboard(got), ShouldResemble, scoreboard(want))
				feed, _ := second.Notifications(ctx, time.Time{})
				So(feed, ShouldNotBeEmpty)
			})

			Convey("Then sequence numbers keep increasing", func() {
				next, err := second.AddPointLog(ctx, service.PointLogInput{TeamID: "b", Kind: model.KindMerit, Points: 1, Reason: "Tidy"})
				So(err, ShouldBeNil)
				So(next.Seq, ShouldBeGreaterThan, log.Seq)
			})
		})

		Convey("When records change behind the service and it recomputes", func() {
			second := newService(t, kv)
			So(repository.NewRecords(kv).PutTeam(ctx, model.TeamRecord{ID: "c", Name: "Late entry"}), ShouldBeNil)
			So(second.Recompute(ctx), ShouldBeNil)

			Convey("Then the new team is visible", func() {
				c, err := second.Team(ctx, "c")
				So(err, ShouldBeNil)
				So(c.Rank, ShouldEqual, 3)
			})
		})
	})
}

func TestService_Notifications(t *testing.T) {
	Convey("Given a service with a small feed", t, func() {
		ctx := context.Background()
		svc := newService(t, repository.NewMemoryKV(), service.WithNotificationLimit(2))

		sub, err := svc.Subscribe(ctx)
		So(err, ShouldBeNil)

		for _, id := range []string{"e1", "e2", "e3"} {
			_, err := svc.CreateEvent(ctx, service.EventInput{ID: id, Name: id, Date: day(1)})
			So(err, ShouldBeNil)
		}

		Convey("Then the feed keeps the newest entries", func() {
			feed, _ := svc.Notifications(ctx, time.Time{})
			So(feed, ShouldHaveLength, 2)
			So(feed[0].Link, ShouldEqual, "/events?eventId=e3")
			So(feed[1].Link, ShouldEqual, "/events?eventId=e2")
		})

		Convey("Then entries after a timestamp can be polled", func() {
			later, err := svc.Notifications(ctx, day(11))
			So(err, ShouldBeNil)
			So(later, ShouldBeEmpty)
		})

		Convey("Then subscribers receive them", func() {
			select {
			case n := <-sub:
				So(n.Title, ShouldEqual, "New Event Added")
			case <-time.After(2 * time.Second):
				So("no notification", ShouldBeEmpty)
			}
		})
	})
}
