package config

import (
	"encoding/json"
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
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Store struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"store"`
	Upstream struct {
		URL          string            `yaml:"url"`
		Headers      map[string]string `yaml:"headers"`
		FixedOffset  string            `yaml:"fixed_offset"`
		Timeout      time.Duration     `yaml:"timeout"`
		SyncInterval time.Duration     `yaml:"sync_interval"`
	} `yaml:"upstream"`
	RateLimit struct {
		Max       int `yaml:"max"`
		WindowSec int `yaml:"window_sec"`
	} `yaml:"rate_limit"`
	Auth struct {
		ClientIDs   []string      `yaml:"client_ids"`
		AccessTTL   time.Duration `yaml:"access_ttl"`
		RefreshTTL  time.Duration `yaml:"refresh_ttl"`
		SigningKeys []SigningKey  `yaml:"signing_keys"`
	} `yaml:"auth"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
	Cache struct {
		Enabled   bool          `yaml:"enabled"`
		LatestTTL time.Duration `yaml:"latest_ttl"`
		Redis     struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// SigningKey is one entry of the signing key set. Key material is PEM-encoded
// RSA; validity bounds are unix seconds. Keys are provisioned out-of-band and
// never mutated by the service.
type SigningKey struct {
	ID      string `yaml:"id" json:"id"`
	Private string `yaml:"private" json:"private"`
	Public  string `yaml:"public" json:"public"`
	Start   int64  `yaml:"start" json:"start"`
	Expire  int64  `yaml:"expire" json:"expire"`
	Revoked bool   `yaml:"revoked" json:"revoked"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

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

	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		c.Upstream.URL = v
	}
	if v := os.Getenv("UPSTREAM_HEADERS"); v != "" {
		headers := map[string]string{}
		if err := json.Unmarshal([]byte(v), &headers); err != nil {
			return nil, fmt.Errorf("parse UPSTREAM_HEADERS: %w", err)
		}
		c.Upstream.Headers = headers
	}
	if v := os.Getenv("CLIENT_IDS"); v != "" {
		c.Auth.ClientIDs = strings.Split(v, ",")
	}
	if v := os.Getenv("SIGNING_KEYS"); v != "" {
		var keys []SigningKey
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			return nil, fmt.Errorf("parse SIGNING_KEYS: %w", err)
		}
		c.Auth.SigningKeys = keys
	}
	if v := os.Getenv("RATE_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse RATE_MAX: %w", err)
		}
		c.RateLimit.Max = n
	}
	if v := os.Getenv("RATE_WINDOW_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse RATE_WINDOW_SEC: %w", err)
		}
		c.RateLimit.WindowSec = n
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		if err := json.Unmarshal([]byte(v), &origins); err != nil {
			return nil, fmt.Errorf("parse ALLOWED_ORIGINS: %w", err)
		}
		c.CORS.AllowedOrigins = origins
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = "data"
	}
	if c.Upstream.FixedOffset == "" {
		c.Upstream.FixedOffset = "+10:00"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Upstream.SyncInterval == 0 {
		c.Upstream.SyncInterval = 5 * time.Minute
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 60
	}
	if c.RateLimit.WindowSec == 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL == 0 {
		c.Auth.RefreshTTL = 14 * 24 * time.Hour
	}
	if c.Cache.LatestTTL == 0 {
		c.Cache.LatestTTL = 15 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	if _, err := ParseOffset(c.Upstream.FixedOffset); err != nil {
		return fmt.Errorf("upstream.fixed_offset: %w", err)
	}
	if c.RateLimit.Max <= 0 {
		return fmt.Errorf("rate_limit.max must be positive")
	}
	if c.RateLimit.WindowSec <= 0 {
		return fmt.Errorf("rate_limit.window_sec must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// ParseOffset validates a fixed UTC offset of the form "+10:00" or "-05:30"
// and returns it as a duration east of UTC.
func ParseOffset(s string) (time.Duration, error) {
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return 0, fmt.Errorf("offset must look like \"+10:00\", got %q", s)
	}
	h, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, fmt.Errorf("offset hours: %w", err)
	}
	m, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0, fmt.Errorf("offset minutes: %w", err)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	if s[0] == '-' {
		d = -d
	}
	return d, nil
}
