package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"StockHolo/internal/services/encoder"
	"StockHolo/internal/services/market"
	"StockHolo/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"500ms"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Market struct {
		// Symbols picks the seed watchlist; symbols outside the seed list are
		// added with simulated data. Empty keeps the full seed list.
		Symbols       []string `yaml:"symbols" validate:"max=50,dive,required,max=10"`
		RandomSeed    int64    `yaml:"random_seed"`
		market.Config `yaml:",inline"`
	} `yaml:"market"`
	Encoder encoder.Config `yaml:"encoder"`
	Refresh struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		DriftInterval time.Duration `yaml:"drift_interval" default:"3s" validate:"gte=100ms"`
		QuoteInterval time.Duration `yaml:"quote_interval" default:"30s" validate:"gte=1s"`
		QuoteTimeout  time.Duration `yaml:"quote_timeout" default:"8s"`
	} `yaml:"refresh"`
	Finnhub struct {
		Enabled           bool          `yaml:"enabled"`
		APIKey            string        `yaml:"api_key"`
		BaseURL           string        `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"url"`
		WebSocketURL      string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		Stream            bool          `yaml:"stream"`
		Timeout           time.Duration `yaml:"timeout" default:"10s"`
		RequestsPerSecond float64       `yaml:"requests_per_second" default:"1" validate:"gt=0"`
		Burst             int           `yaml:"burst" default:"5" validate:"gte=1"`
		BreakerFailures   uint32        `yaml:"breaker_failures" default:"3" validate:"gte=1"`
		BreakerCooldown   time.Duration `yaml:"breaker_cooldown" default:"30s"`
		ReconnectDelay    time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval      time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"finnhub"`
	News struct {
		Enabled     bool          `yaml:"enabled" default:"true"`
		Interval    time.Duration `yaml:"interval" default:"60s" validate:"gte=1s"`
		Days        int           `yaml:"days" default:"7" validate:"gte=1,lte=30"`
		BlendWeight float64       `yaml:"blend_weight" default:"0.8" validate:"gte=0,lte=1"`
		HistorySize int           `yaml:"history_size" default:"20" validate:"gte=1"`
		CacheTTL    time.Duration `yaml:"cache_ttl" default:"30s"`
	} `yaml:"news"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"stockholo:"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		FramesTopic  string   `yaml:"frames_topic" default:"stockholo.frames"`
		QuotesTopic  string   `yaml:"quotes_topic" default:"stockholo.quotes"`
		RequiredAcks int      `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchSize    int           `yaml:"batch_size" default:"50"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled" default:"true"`
			GroupID    string        `yaml:"group_id" default:"stockholo"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MaxRPS     int           `yaml:"max_rps" default:"5"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Render struct {
		WebSocketPath   string        `yaml:"websocket_path" default:"/ws"`
		ClientBuffer    int           `yaml:"client_buffer" default:"8" validate:"gte=1"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"5s"`
		Console         bool          `yaml:"console"`
		ConsoleInterval time.Duration `yaml:"console_interval" default:"5s"`
	} `yaml:"render"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
		c.Finnhub.Enabled = true
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Market.Symbols = splitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Finnhub.Enabled && c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required when finnhub is enabled")
	}
	if c.Finnhub.Stream && !c.Finnhub.Enabled {
		return fmt.Errorf("finnhub.stream requires finnhub.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
