package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type capturePublisher struct {
	mu   sync.Mutex
	got  []model.Notification
	fail bool
	done chan struct{}
}

func (c *capturePublisher) Publish(_ context.Context, n model.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broker down")
	}
	c.got = append(c.got, n)
	if c.done != nil && len(c.got) == 2 {
		close(c.done)
	}
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestFeed(t *testing.T) {
	Convey("Given a feed at its cap", t, func() {
		base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		var feed []model.Notification
		for i := 0; i < 5; i++ {
			feed = Prepend(feed, New(base.Add(time.Duration(i)*time.Minute), model.NotifyInfo, fmt.Sprintf("n%d", i), "", ""), 3)
		}

		Convey("Then only the newest entries are kept, newest first", func() {
			So(len(feed), ShouldEqual, 3)
			So(feed[0].Title, ShouldEqual, "n4")
			So(feed[2].Title, ShouldEqual, "n2")
		})

		Convey("Then Since filters by timestamp", func() {
			So(len(Since(feed, base.Add(3*time.Minute))), ShouldEqual, 1)
			So(len(Since(feed, time.Time{})), ShouldEqual, 3)
		})

		Convey("Then a non-positive limit falls back to the default", func() {
			So(len(Prepend(nil, model.Notification{}, 0)), ShouldEqual, 1)
		})
	})
}

func TestChannelBus(t *testing.T) {
	Convey("Given a channel bus with a subscriber", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bus := NewChannelBus(16)
		defer bus.Close()

		sub, err := bus.Subscribe(ctx)
		So(err, ShouldBeNil)

		Convey("When notifications are published", func() {
			n := New(time.Now(), model.NotifySuccess, "Scores Finalized", `Results for "Quiz Bee" are in!`, "/leaderboard")
			So(bus.Publish(ctx, n), ShouldBeNil)

			Convey("Then the subscriber receives them decoded", func() {
				select {
				case got := <-sub:
					So(got.ID, ShouldEqual, n.ID)
					So(got.Title, ShouldEqual, "Scores Finalized")
					So(got.Type, ShouldEqual, model.NotifySuccess)
				case <-time.After(2 * time.Second):
					So("timeout", ShouldBeEmpty)
				}
			})
		})

		Convey("When the subscription is forwarded to another publisher", func() {
			dst := &capturePublisher{done: make(chan struct{})}
			go Forward(ctx, sub, dst, logger.Get())

			So(bus.Publish(ctx, New(time.Now(), model.NotifyInfo, "a", "", "")), ShouldBeNil)
			So(bus.Publish(ctx, New(time.Now(), model.NotifyInfo, "b", "", "")), ShouldBeNil)

			Convey("Then every notification reaches it", func() {
				select {
				case <-dst.done:
				case <-time.After(2 * time.Second):
				}
				dst.mu.Lock()
				defer dst.mu.Unlock()
				So(len(dst.got), ShouldEqual, 2)
				titles := []string{dst.got[0].Title, dst.got[1].Title}
				So(titles, ShouldContain, "a")
				So(titles, ShouldContain, "b")
			})
		})
	})
}

func TestForwardSurvivesFailures(t *testing.T) {
	Convey("Given a failing destination", t, func() {
		src := make(chan model.Notification, 2)
		src <- model.Notification{ID: "1"}
		src <- model.Notification{ID: "2"}
		close(src)

		Convey("Then forwarding drains the source without stopping", func() {
			So(func() { Forward(context.Background(), src, &capturePublisher{fail: true}, logger.Get()) }, ShouldNotPanic)
		})
	})
}
