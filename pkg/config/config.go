package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/antonbeski0/Predflux/pkg/util"
)

// ForecastParams are the hyperparameters of one engine.
type ForecastParams struct {
	Lookback     int     `yaml:"lookback" validate:"gte=1"`
	Horizon      int     `yaml:"horizon" validate:"gte=1"`
	Epochs       int     `yaml:"epochs" validate:"gte=1"`
	BatchSize    int     `yaml:"batch_size" default:"8" validate:"gte=1"`
	Units        int     `yaml:"units" default:"32" validate:"gte=1"`
	HeadUnits    int     `yaml:"head_units" default:"64" validate:"gte=1"`
	LearningRate float64 `yaml:"learning_rate" default:"0.001" validate:"gt=0"`
	Shuffle      bool    `yaml:"shuffle" default:"true"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"30s"`
		CORS            bool          `yaml:"cors" default:"true"`
		RateLimit       struct {
			PerSecond float64 `yaml:"per_second" default:"0.2"`
			Burst     int     `yaml:"burst" default:"3"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Forecast struct {
		Seed   int64          `yaml:"seed" default:"42"`
		Single ForecastParams `yaml:"single"`
		Multi  ForecastParams `yaml:"multi"`
	} `yaml:"forecast"`
	Store struct {
		Backend string `yaml:"backend" default:"badger" validate:"oneof=memory badger redis sqlite clickhouse"`
		Layered bool   `yaml:"layered" default:"true"`
		Badger  struct {
			Path       string `yaml:"path" default:"data/models"`
			SyncWrites bool   `yaml:"sync_writes" default:"true"`
		} `yaml:"badger"`
		Redis struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			Prefix   string `yaml:"prefix" default:"predflux"`
		} `yaml:"redis"`
		SQLite struct {
			Path  string `yaml:"path" default:"data/models.db"`
			Table string `yaml:"table" default:"model_artifacts"`
		} `yaml:"sqlite"`
		ClickHouse struct {
			Table string `yaml:"table" default:"model_artifacts"`
		} `yaml:"clickhouse"`
	} `yaml:"store"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		Timeframe        string        `yaml:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers" validate:"required_if=Enabled true"`
		EventsTopic   string   `yaml:"events_topic" default:"predflux.events"`
		RequestsTopic string   `yaml:"requests_topic" default:"predflux.requests"`
		LogsTopic     string   `yaml:"logs_topic"`
		RequiredAcks  int      `yaml:"required_acks" default:"1"`
		Compression   string   `yaml:"compression" default:"snappy"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"predflux"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key" validate:"required_if=Enabled true"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
		BufferSize     int           `yaml:"buffer_size" default:"1024"`
		MaxRPS         float64       `yaml:"max_rps" default:"5"`
		History        int           `yaml:"history" default:"2000" validate:"gte=2"`
	} `yaml:"finnhub"`
	News struct {
		Enabled  bool          `yaml:"enabled"`
		APIKey   string        `yaml:"api_key" validate:"required_if=Enabled true"`
		BaseURL  string        `yaml:"base_url" default:"https://newsapi.org"`
		PageSize int           `yaml:"page_size" default:"20"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"15m"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"news"`
}

// Default returns a config with every default applied and the stock
// engine hyperparameters.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	_ = defaults.Set(c)
	setParams(&c.Forecast.Single, 8, 20, 60)
	setParams(&c.Forecast.Multi, 60, 120, 100)
}

func setParams(p *ForecastParams, lookback, horizon, epochs int) {
	if p.Lookback == 0 {
		p.Lookback = lookback
	}
	if p.Horizon == 0 {
		p.Horizon = horizon
	}
	if p.Epochs == 0 {
		p.Epochs = epochs
	}
}

// Load reads and parses a YAML configuration file. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present) and the YAML file, then applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
		c.Finnhub.Enabled = true
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = util.SplitList(v)
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.News.APIKey = v
		c.News.Enabled = true
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("PORT"), c.Server.Port)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return err
	}
	if c.Store.Backend == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("store.backend clickhouse requires clickhouse.enabled")
	}
	return nil
}
