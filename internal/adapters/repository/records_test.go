package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/intramurals/internal/domain/model"
)

func TestRecords(t *testing.T) {
	Convey("Given records over an in-memory store", t, func() {
		ctx := context.Background()
		r := NewRecords(NewMemoryKV())
		defer r.Close()

		at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

		Convey("When a team is stored", func() {
			team := model.TeamRecord{
				ID:        "red",
				Name:      "Red Ravens",
				CreatedAt: at,
				Seq:       1,
				Merits:    []model.PointLog{{ID: "m1", Points: 50, Reason: "Cleanup", Author: "Admin", Timestamp: at, Seq: 3}},
			}
			So(r.PutTeam(ctx, team), ShouldBeNil)

			Convey("Then it reads back with its point logs", func() {
				got, err := r.Team(ctx, "red")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, team.Name)
				So(got.Merits, ShouldHaveLength, 1)
				So(got.Merits[0].Timestamp.Equal(at), ShouldBeTrue)
			})

			Convey("Then an unknown team is not found", func() {
				_, err := r.Team(ctx, "blue")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an event is stored next to a team", func() {
			So(r.PutTeam(ctx, model.TeamRecord{ID: "red", Name: "Red", CreatedAt: at, Seq: 1}), ShouldBeNil)
			ev := model.Event{
				ID: "e1", Name: "Cheerdance", Date: at, CompetitionPoints: 1000, Seq: 2, Status: model.StatusCompleted,
				Criteria: []model.Criterion{{Name: "Routine", MaxPoints: 100}},
				Results:  []model.EventResult{{TeamID: "red", CriteriaScores: map[string]model.Points{"Routine": 88.5}}},
			}
			So(r.PutEvent(ctx, ev), ShouldBeNil)

			Convey("Then Load returns both", func() {
				all, err := r.Load(ctx)
				So(err, ShouldBeNil)
				So(all.Teams, ShouldHaveLength, 1)
				So(all.Events, ShouldHaveLength, 1)
				So(all.Events[0].Results[0].CriteriaScores["Routine"], ShouldEqual, model.Points(88.5))
			})

			Convey("Then deleting it removes it", func() {
				So(r.DeleteEvent(ctx, "e1"), ShouldBeNil)
				_, err := r.Event(ctx, "e1")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(r.Driver(), ShouldEqual, "memory")
			})
		})

		Convey("The notification feed starts empty and round trips", func() {
			feed, err := r.Notifications(ctx)
			So(err, ShouldBeNil)
			So(feed, ShouldBeEmpty)

			want := []model.Notification{{ID: "n1", Title: "Scores Finalized", Type: model.NotifySuccess}}
			So(r.PutNotifications(ctx, want), ShouldBeNil)
			feed, err = r.Notifications(ctx)
			So(err, ShouldBeNil)
			So(feed[0].Title, ShouldEqual, "Scores Finalized")
		})
	})

	Convey("Given a store holding a value that is not JSON", t, func() {
		ctx := context.Background()
		kv := NewMemoryKV()
		So(kv.Put(ctx, "teams/bad", []byte("{not json")), ShouldBeNil)
		r := NewRecords(kv)

		Convey("Then reads report corruption", func() {
			_, err := r.Load(ctx)
			So(errors.Is(err, ErrCorrupt), ShouldBeTrue)
			_, err = r.Team(ctx, "bad")
			So(errors.Is(err, ErrCorrupt), ShouldBeTrue)
		})
	})
}
