package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Model struct {
		Backend           string        `yaml:"backend"` // onnx or http
		Path              string        `yaml:"path"`
		Name              string        `yaml:"name"`
		ServingURL        string        `yaml:"serving_url"`
		SharedLibraryPath string        `yaml:"shared_library_path"`
		InputName         string        `yaml:"input_name"`
		OutputName        string        `yaml:"output_name"`
		Classes           int           `yaml:"classes"`
		BatchSize         int           `yaml:"batch_size"`
		Timeout           time.Duration `yaml:"timeout"`
		Retries           int           `yaml:"retries"`
	} `yaml:"model"`
	Pipeline struct {
		SequenceLen      int           `yaml:"sequence_len"`
		PredictionOffset int           `yaml:"prediction_offset"`
		RSIWindow        int           `yaml:"rsi_window"`
		MinHistory       int           `yaml:"min_history"`
		Indicators       []string      `yaml:"indicators"`
		BuildTimeout     time.Duration `yaml:"build_timeout"`
		Warmup           []string      `yaml:"warmup"`
	} `yaml:"pipeline"`
	Validation struct {
		RequiredFields []string      `yaml:"required_fields"`
		RetryAfter     time.Duration `yaml:"retry_after"`
	} `yaml:"validation"`
	Market struct {
		Source        string        `yaml:"source"` // yahoo or clickhouse
		BaseURL       string        `yaml:"base_url"`
		CookieURL     string        `yaml:"cookie_url"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerMinute int           `yaml:"rate_per_minute"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
		Table         string        `yaml:"table"`
	} `yaml:"market"`
	Cache struct {
		Backend       string `yaml:"backend"` // memory, redis or layered
		MemoryMaxSize int    `yaml:"memory_max_size"`
		Redis         struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("MARKET_SOURCE"); v != "" {
		c.Market.Source = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if p, err := strconv.Atoi(port); ok && err == nil {
			c.Cache.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Model.Backend == "" {
		c.Model.Backend = "onnx"
	}
	if c.Model.Name == "" {
		c.Model.Name = "trend"
	}
	if c.Model.InputName == "" {
		c.Model.InputName = "input"
	}
	if c.Model.OutputName == "" {
		c.Model.OutputName = "output"
	}
	if c.Model.Classes == 0 {
		c.Model.Classes = 2
	}
	if c.Model.BatchSize == 0 {
		c.Model.BatchSize = 256
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = 30 * time.Second
	}

	if c.Pipeline.SequenceLen == 0 {
		c.Pipeline.SequenceLen = 60
	}
	if c.Pipeline.PredictionOffset == 0 {
		c.Pipeline.PredictionOffset = 20
	}
	if c.Pipeline.RSIWindow == 0 {
		c.Pipeline.RSIWindow = 14
	}
	if c.Pipeline.MinHistory == 0 {
		c.Pipeline.MinHistory = 120
	}
	if len(c.Pipeline.Indicators) == 0 {
		c.Pipeline.Indicators = []string{"QQQ", "^TNX", "^VIX", "CL=F"}
	}
	if c.Pipeline.BuildTimeout == 0 {
		c.Pipeline.BuildTimeout = 2 * time.Minute
	}

	if len(c.Validation.RequiredFields) == 0 {
		c.Validation.RequiredFields = []string{"symbol", "underlyingSymbol", "previousClose", "regularMarketPreviousClose"}
	}
	if c.Validation.RetryAfter == 0 {
		c.Validation.RetryAfter = 5 * time.Minute
	}

	if c.Market.Source == "" {
		c.Market.Source = "yahoo"
	}
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = "https://query2.finance.yahoo.com"
	}
	if c.Market.CookieURL == "" {
		c.Market.CookieURL = "https://fc.yahoo.com"
	}
	if c.Market.Timeout == 0 {
		c.Market.Timeout = 15 * time.Second
	}
	if c.Market.RatePerMinute == 0 {
		c.Market.RatePerMinute = 120
	}
	if c.Market.CacheTTL == 0 {
		c.Market.CacheTTL = 6 * time.Hour
	}
	if c.Market.Table == "" {
		c.Market.Table = "daily_bars"
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.MemoryMaxSize == 0 {
		c.Cache.MemoryMaxSize = 1024
	}
	if c.Cache.Redis.Port == 0 {
		c.Cache.Redis.Port = 6379
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "trendlens"
	}

	if c.Cache.Redis.PoolSize == 0 {
		c.Cache.Redis.PoolSize = 10
	}

	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "market"
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "trendlens.predictors"
	}
	if c.Kafka.RequiredAcks == 0 {
		c.Kafka.RequiredAcks = -1
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "gzip"
	}
	if c.Kafka.Producer.MaxAttempts == 0 {
		c.Kafka.Producer.MaxAttempts = 3
	}
	if c.Kafka.Producer.Linger == 0 {
		c.Kafka.Producer.Linger = 100 * time.Millisecond
	}
	if c.Kafka.Producer.BatchSize == 0 {
		c.Kafka.Producer.BatchSize = 100
	}
	if c.Kafka.Producer.BatchBytes == 0 {
		c.Kafka.Producer.BatchBytes = 1 << 20
	}
	if c.Kafka.Producer.WriteTimeout == 0 {
		c.Kafka.Producer.WriteTimeout = 10 * time.Second
	}
	if c.Kafka.Producer.ReadTimeout == 0 {
		c.Kafka.Producer.ReadTimeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Model.Backend {
	case "onnx":
		if c.Model.Path == "" {
			return fmt.Errorf("model.path is required for the onnx backend")
		}
	case "http":
		if c.Model.ServingURL == "" {
			return fmt.Errorf("model.serving_url is required for the http backend")
		}
	default:
		return fmt.Errorf("model.backend must be 'onnx' or 'http', got '%s'", c.Model.Backend)
	}
	if c.Model.Classes < 2 {
		return fmt.Errorf("model.classes must be at least 2")
	}
	if c.Pipeline.SequenceLen < 1 {
		return fmt.Errorf("pipeline.sequence_len must be positive")
	}
	if c.Pipeline.MinHistory <= c.Pipeline.PredictionOffset+c.Pipeline.RSIWindow {
		return fmt.Errorf("pipeline.min_history must exceed prediction_offset + rsi_window")
	}
	switch c.Market.Source {
	case "yahoo":
		if c.Market.BaseURL == "" {
			return fmt.Errorf("market.base_url is required for the yahoo source")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse source")
		}
	default:
		return fmt.Errorf("market.source must be 'yahoo' or 'clickhouse', got '%s'", c.Market.Source)
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis", "layered":
		if c.Cache.Redis.Host == "" {
			return fmt.Errorf("cache.redis.host is required for the %s cache", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis', 'layered' or 'none', got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
