package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/antonbeski0/Predflux/internal/domain/repository"
	domsvc "github.com/antonbeski0/Predflux/internal/domain/service"
	"github.com/antonbeski0/Predflux/internal/handler/api"
	mid "github.com/antonbeski0/Predflux/internal/middleware"
	internalrepo "github.com/antonbeski0/Predflux/internal/repository"
	"github.com/antonbeski0/Predflux/internal/service/finnhub"
	"github.com/antonbeski0/Predflux/internal/service/ratelimit"
	"github.com/antonbeski0/Predflux/internal/services/forecast"
	"github.com/antonbeski0/Predflux/internal/services/sentiment"
	"github.com/antonbeski0/Predflux/internal/usecase"
	pkgch "github.com/antonbeski0/Predflux/pkg/clickhouse"
	"github.com/antonbeski0/Predflux/pkg/config"
	xhttp "github.com/antonbeski0/Predflux/pkg/http"
	pkgkafka "github.com/antonbeski0/Predflux/pkg/kafka"
	"github.com/antonbeski0/Predflux/pkg/kvstore"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
	"github.com/antonbeski0/Predflux/pkg/metrics"
)

const serviceName = "predflux"

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the service logger. When Kafka and a logs topic are
// configured, warn and error entries are also aggregated and shipped there.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("service", serviceName), applogger.String("env", cfg.Environment))
	if producer == nil || cfg.Kafka.LogsTopic == "" {
		return l, func() {}, nil
	}
	c := applogger.NewCollector(applogger.CollectorConfig{
		Topic:     cfg.Kafka.LogsTopic,
		Source:    serviceName,
		Publisher: producer,
	})
	l.AttachCollector(c)
	return l, c.Close, nil
}

// ProvideMetrics registers the forecasting metrics on the default registry.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer, cfg.Store.Backend)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKVStore opens the configured artifact backend.
func ProvideKVStore(cfg *config.Config, ch *pkgch.Client) (kvstore.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sc := cfg.Store
	host, port, err := splitAddr(sc.Redis.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("store.redis.addr: %w", err)
	}
	s, err := kvstore.Open(ctx, kvstore.Options{
		Backend: sc.Backend,
		Layered: sc.Layered,
		Badger:  kvstore.BadgerConfig{Path: sc.Badger.Path, SyncWrites: sc.Badger.SyncWrites},
		Redis: []kvstore.RedisOption{
			kvstore.WithRedisHost(host),
			kvstore.WithRedisPort(port),
			kvstore.WithRedisPassword(sc.Redis.Password),
			kvstore.WithRedisDB(sc.Redis.DB),
			kvstore.WithRedisPool(sc.Redis.PoolSize, 1, 5*time.Second),
			kvstore.WithRedisPrefix(sc.Redis.Prefix),
		},
		SQLite:     kvstore.SQLiteConfig{Path: sc.SQLite.Path, Table: sc.SQLite.Table},
		ClickHouse: kvstore.ClickHouseConfig{Table: sc.ClickHouse.Table},
		CH:         ch,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

func splitAddr(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// ProvideModelStore wraps the byte store with artifact encoding.
func ProvideModelStore(kv kvstore.Store, l *applogger.Logger, m repository.Metrics) *internalrepo.ModelStore {
	return internalrepo.NewModelStore(kv,
		internalrepo.WithStoreLogger(l),
		internalrepo.WithStoreMetrics(m),
	)
}

// ProvideEventSink publishes lifecycle events when Kafka is enabled.
func ProvideEventSink(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) *usecase.EventSink {
	var pub repository.EventPublisher
	if producer != nil {
		pub = producer
	}
	return usecase.NewEventSink(pub, cfg.Kafka.EventsTopic, l)
}

func engineConfig(p config.ForecastParams, seed int64) forecast.Config {
	return forecast.Config{
		Lookback:     p.Lookback,
		Horizon:      p.Horizon,
		Epochs:       p.Epochs,
		BatchSize:    p.BatchSize,
		Units:        p.Units,
		HeadUnits:    p.HeadUnits,
		LearningRate: p.LearningRate,
		Shuffle:      p.Shuffle,
		Seed:         seed,
	}
}

// ProvideSingleEngine creates the single-asset engine.
func ProvideSingleEngine(
	cfg *config.Config,
	store *internalrepo.ModelStore,
	l *applogger.Logger,
	m repository.Metrics,
	events *usecase.EventSink,
) *forecast.SingleAssetEngine {
	return forecast.NewSingleAssetEngine(store,
		forecast.WithConfig(engineConfig(cfg.Forecast.Single, cfg.Forecast.Seed)),
		forecast.WithLogger(l),
		forecast.WithMetrics(m),
		forecast.WithObserver(events),
	)
}

// ProvideMultiEngine creates the multi-asset engine.
func ProvideMultiEngine(
	cfg *config.Config,
	store *internalrepo.ModelStore,
	l *applogger.Logger,
	m repository.Metrics,
	events *usecase.EventSink,
) *forecast.MultiAssetEngine {
	return forecast.NewMultiAssetEngine(store,
		forecast.WithConfig(engineConfig(cfg.Forecast.Multi, cfg.Forecast.Seed)),
		forecast.WithLogger(l),
		forecast.WithMetrics(m),
		forecast.WithObserver(events),
	)
}

// ProvideSentiment creates the headline sentiment source, or nil when news
// lookups are disabled.
func ProvideSentiment(cfg *config.Config, l *applogger.Logger) domsvc.SentimentSource {
	if !cfg.News.Enabled {
		return nil
	}
	news := sentiment.NewNewsClient(sentiment.NewsConfig{
		BaseURL:  cfg.News.BaseURL,
		APIKey:   cfg.News.APIKey,
		PageSize: cfg.News.PageSize,
		Timeout:  cfg.News.Timeout,
	})
	return sentiment.NewService(news, sentiment.DefaultLexicon(), cfg.News.CacheTTL, l)
}

// ProvideSeriesBuffers holds the most recent live prices per symbol.
func ProvideSeriesBuffers(cfg *config.Config) *usecase.SeriesBuffers {
	return usecase.NewSeriesBuffers(cfg.Finnhub.History)
}

// ProvideSeriesSource reads live buffers first and ClickHouse candles second.
func ProvideSeriesSource(cfg *config.Config, buffers *usecase.SeriesBuffers, ch *pkgch.Client, l *applogger.Logger) repository.SeriesSource {
	src := usecase.ChainSource{buffers}
	if ch != nil {
		fs := internalrepo.NewCHFeatureStore(ch, cfg.ClickHouse.Database, repository.NormalizeTimeframe(cfg.ClickHouse.Timeframe))
		fs.SetLogger(l)
		src = append(src, fs)
	}
	return src
}

// ProvideLiveCollector streams Finnhub trades into the series buffers, or
// returns nil when the stream is disabled.
func ProvideLiveCollector(
	cfg *config.Config,
	buffers *usecase.SeriesBuffers,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.LiveCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(finnhub.Config{
		APIKey:         cfg.Finnhub.APIKey,
		WebsocketURL:   cfg.Finnhub.WebSocketURL,
		Symbols:        cfg.Finnhub.Symbols,
		ReconnectDelay: cfg.Finnhub.ReconnectDelay,
		PingInterval:   cfg.Finnhub.PingInterval,
		BufferSize:     cfg.Finnhub.BufferSize,
	}, l)
	pipe := mid.NewRealtimePipeline(buffers, m, mid.WithMaxRPS(cfg.Finnhub.MaxRPS))
	return usecase.NewLiveCollector(stream, pipe, buffers, m, l)
}

// ProvideRateLimiter limits forecast requests per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := cfg.Server.RateLimit
	if rl.PerSecond <= 0 {
		return nil
	}
	return ratelimit.New(rl.PerSecond, rl.Burst)
}

// ProvideHTTPHandler registers the forecast API.
func ProvideHTTPHandler(
	l *applogger.Logger,
	runner *usecase.ForecastRunner,
	limiter *ratelimit.Limiter,
	store *internalrepo.ModelStore,
) xhttp.Handler {
	return api.NewForecastEchoHandler(l, runner, limiter, store)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	)
}

// ProvideKafkaConsumer creates the request consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRequestHandler handles forecast jobs from the requests topic.
func ProvideRequestHandler(
	cfg *config.Config,
	runner *usecase.ForecastRunner,
	m repository.Metrics,
	l *applogger.Logger,
) pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewForecastRequestHandler(cfg.Kafka.RequestsTopic, runner, m, l)
}
