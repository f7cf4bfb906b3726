package repository

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns Records over the named driver. target is the SQLite path or
// the Postgres DSN and is ignored for the memory driver.
func Open(ctx context.Context, driver, target string, opts ...Option) (*Records, error) {
	var (
		kv  KV
		err error
	)
	switch driver {
	case DriverMemory, "":
		kv = NewMemoryKV()
	case DriverSQLite:
		kv, err = OpenSQLite(ctx, target, opts...)
	case DriverPostgres:
		kv, err = OpenPostgres(ctx, target, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return NewRecords(kv), nil
}
