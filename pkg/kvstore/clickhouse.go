package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgch "github.com/antonbeski0/Predflux/pkg/clickhouse"
)

// ClickHouseStore implements Store on a ReplacingMergeTree keyed by name;
// reads pick the most recent version so the last write wins before merges.
type ClickHouseStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseStore ensures the artifact table exists.
func NewClickHouseStore(ctx context.Context, ch *pkgch.Client, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Table == "" {
		cfg.Table = "predflux.model_artifacts"
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name String,
		payload String,
		saved_at DateTime64(3)
	) ENGINE = ReplacingMergeTree(saved_at)
	ORDER BY name`, cfg.Table)
	if err := ch.InitSchema(ctx, []string{stmt}); err != nil {
		return nil, err
	}
	return &ClickHouseStore{db: ch.DB(), table: cfg.Table}, nil
}

func (s *ClickHouseStore) Put(ctx context.Context, key string, value []byte) error {
	q := fmt.Sprintf(`INSERT INTO %s (name, payload, saved_at) VALUES (?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, q, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("clickhouse put %s: %w", key, err)
	}
	return nil
}

func (s *ClickHouseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	q := fmt.Sprintf(`SELECT payload FROM %s WHERE name = ? ORDER BY saved_at DESC LIMIT 1`, s.table)
	var payload string
	err := s.db.QueryRowContext(ctx, q, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("clickhouse get %s: %w", key, err)
	}
	return []byte(payload), true, nil
}

// Close is a no-op; the shared client owns the pool.
func (s *ClickHouseStore) Close() error { return nil }
