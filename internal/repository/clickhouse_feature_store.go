package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	pkgch "github.com/antonbeski0/Predflux/pkg/clickhouse"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// CHFeatureStore reads candle history from ClickHouse and serves candle
// closes as forecasting input.
type CHFeatureStore struct {
	db       *sql.DB
	database string
	tf       domrepo.Timeframe
	l        *applogger.Logger
}

// NewCHFeatureStore reads from tables in database at timeframe tf.
func NewCHFeatureStore(ch *pkgch.Client, database string, tf domrepo.Timeframe) *CHFeatureStore {
	if database == "" {
		database = "default"
	}
	return &CHFeatureStore{db: ch.DB(), database: database, tf: domrepo.NormalizeTimeframe(string(tf)), l: applogger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *CHFeatureStore) SetLogger(l *applogger.Logger) { s.l = l }

// LatestValues returns the last n candle closes for symbol, oldest first.
func (s *CHFeatureStore) LatestValues(ctx context.Context, symbol string, n int) ([]float64, error) {
	candles, err := s.GetLatestNCandles(ctx, symbol, n, s.tf)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out, nil
}

// GetLatestNCandles returns up to n most recent candles in ascending time order.
func (s *CHFeatureStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	logFields := []applogger.Field{
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("limit", n),
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, table), symbol, n)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error", append(logFields, applogger.Error(err))...)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.l.Error("clickhouse latest_candles scan error", append(logFields, applogger.Error(err))...)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse latest_candles rows error", append(logFields, applogger.Error(err))...)
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverseCandles(out)
	s.l.Debug("clickhouse latest_candles ok", append(logFields,
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)...)
	return out, nil
}

func (s *CHFeatureStore) tableForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1s:
		return s.database + ".rt_candles_1s", nil
	case domrepo.TF1m, domrepo.TF5m:
		// 5m is folded onto the 1m table
		return s.database + ".rt_candles_1m", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

func reverseCandles(c []models.Candle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

var _ domrepo.SeriesSource = (*CHFeatureStore)(nil)
