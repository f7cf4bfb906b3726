package repository

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// shouldEqualJSON compares a stored value with a JSON literal by content, so
// backends that normalise JSON (jsonb) still match.
func shouldEqualJSON(actual any, expected ...any) string {
	var got, want any
	if err := json.Unmarshal(actual.([]byte), &got); err != nil {
		return "stored value is not JSON: " + err.Error()
	}
	if err := json.Unmarshal([]byte(expected[0].(string)), &want); err != nil {
		return "expected value is not JSON: " + err.Error()
	}
	return ShouldResemble(got, want)
}

// exerciseKV runs the shared contract every KV backend must satisfy. It must
// be called from inside a Convey block.
func exerciseKV(kv KV) {
	ctx := context.Background()

	_, err := kv.Get(ctx, "teams/missing")
	So(errors.Is(err, ErrNotFound), ShouldBeTrue)

	So(kv.Put(ctx, "teams/b", []byte(`{"id":"b"}`)), ShouldBeNil)
	So(kv.Put(ctx, "teams/a", []byte(`{"id":"a"}`)), ShouldBeNil)
	So(kv.Put(ctx, "events/e1", []byte(`{"id":"e1"}`)), ShouldBeNil)

	got, err := kv.Get(ctx, "teams/a")
	So(err, ShouldBeNil)
	So(got, shouldEqualJSON, `{"id":"a"}`)

	So(kv.Put(ctx, "teams/a", []byte(`{"id":"a","name":"Alpha"}`)), ShouldBeNil)
	got, err = kv.Get(ctx, "teams/a")
	So(err, ShouldBeNil)
	So(got, shouldEqualJSON, `{"id":"a","name":"Alpha"}`)

	pairs, err := kv.List(ctx, "teams/")
	So(err, ShouldBeNil)
	So(pairs, ShouldHaveLength, 2)
	So(pairs[0].Key, ShouldEqual, "teams/a")
	So(pairs[1].Key, ShouldEqual, "teams/b")

	none, err := kv.List(ctx, "nothing/")
	So(err, ShouldBeNil)
	So(none, ShouldBeEmpty)

	So(kv.Delete(ctx, "teams/b"), ShouldBeNil)
	So(kv.Delete(ctx, "teams/b"), ShouldBeNil)
	_, err = kv.Get(ctx, "teams/b")
	So(errors.Is(err, ErrNotFound), ShouldBeTrue)

	So(kv.Driver(), ShouldNotBeEmpty)
}

func TestMemoryKV(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		kv := NewMemoryKV()

		Convey("It satisfies the store contract and refuses use after close", func() {
			exerciseKV(kv)

			So(kv.Close(), ShouldBeNil)
			_, err := kv.Get(context.Background(), "teams/a")
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})

		Convey("It keeps its own copy of stored values", func() {
			ctx := context.Background()
			buf := []byte(`{"id":"a"}`)
			So(kv.Put(ctx, "k", buf), ShouldBeNil)
			buf[2] = 'X'

			got, err := kv.Get(ctx, "k")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, `{"id":"a"}`)
		})
	})
}

func TestSQLiteKV(t *testing.T) {
	Convey("Given a sqlite store on disk", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "league.db")
		kv, err := OpenSQLite(ctx, path, WithTable("kv_records"))
		So(err, ShouldBeNil)

		Convey("It satisfies the store contract and survives a reopen", func() {
			exerciseKV(kv)
			So(kv.Close(), ShouldBeNil)

			kv, err = OpenSQLite(ctx, path, WithTable("kv_records"))
			So(err, ShouldBeNil)
			defer kv.Close()
			got, err := kv.Get(ctx, "events/e1")
			So(err, ShouldBeNil)
			So(got, shouldEqualJSON, `{"id":"e1"}`)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given a driver name", t, func() {
		ctx := context.Background()

		Convey("memory opens an in-memory store", func() {
			mem, err := Open(ctx, DriverMemory, "")
			So(err, ShouldBeNil)
			So(mem.Driver(), ShouldEqual, "memory")
			So(mem.Close(), ShouldBeNil)
		})

		Convey("sqlite opens a file store", func() {
			lite, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
			So(err, ShouldBeNil)
			So(lite.Driver(), ShouldEqual, "sqlite")
			So(lite.Close(), ShouldBeNil)
		})

		Convey("an unknown driver is refused", func() {
			_, err := Open(ctx, "mongo", "")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown store driver")
		})
	})
}
