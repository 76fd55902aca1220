// Package kvstore provides byte-oriented key-value backends used to persist
// model artifacts: in-memory, Badger, Redis, SQLite and ClickHouse, plus a
// layered store combining an in-memory front with a durable back.
package kvstore

import (
	"context"
	"fmt"
)

// Store is the minimal persistent map the model store needs.
// Get reports found=false, with a nil error, for absent keys.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory     = "memory"
	BackendBadger     = "badger"
	BackendRedis      = "redis"
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
)

// GenerateKey creates a namespaced key.
func GenerateKey(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s:%s", prefix, id)
}
