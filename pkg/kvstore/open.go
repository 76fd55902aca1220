package kvstore

import (
	"context"
	"fmt"

	pkgch "github.com/antonbeski0/Predflux/pkg/clickhouse"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend    string
	Layered    bool
	Badger     BadgerConfig
	Redis      []RedisOption
	SQLite     SQLiteConfig
	ClickHouse ClickHouseConfig
	// CH is required by the clickhouse backend.
	CH *pkgch.Client
}

// Open builds the store named by o.Backend. With Layered set, durable
// backends get an in-memory front layer.
func Open(ctx context.Context, o Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch o.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendBadger:
		s, err = NewBadgerStore(o.Badger)
	case BackendRedis:
		s, err = NewRedisStore(o.Redis...)
	case BackendSQLite:
		s, err = NewSQLiteStore(ctx, o.SQLite)
	case BackendClickHouse:
		if o.CH == nil {
			return nil, fmt.Errorf("clickhouse backend: client not configured")
		}
		s, err = NewClickHouseStore(ctx, o.CH, o.ClickHouse)
	default:
		return nil, fmt.Errorf("unknown store backend %q", o.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", o.Backend, err)
	}
	if o.Layered {
		return NewLayeredStore(s), nil
	}
	return s, nil
}
