//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresKV(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("intramurals"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	Convey("Given a postgres store in a container", t, func() {
		dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
		So(err, ShouldBeNil)

		kv, err := OpenPostgres(ctx, dsn)
		So(err, ShouldBeNil)
		defer kv.Close()

		Convey("It satisfies the store contract", func() {
			exerciseKV(kv)
		})
	})
}
