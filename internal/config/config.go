// Package config loads OFSCP's runtime configuration from a YAML file with
// environment-variable overrides, following the singleton-with-overrides
// pattern the ocx backend used for its own, differently-sectioned config.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/ofscp/server/internal/domain"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Federation FederationConfig `yaml:"federation"`
	Signature  SignatureConfig  `yaml:"signature"`
	Security   SecurityConfig   `yaml:"security"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	Env             string `yaml:"env"`
	Interface       string `yaml:"interface"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_sec"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_sec"`
}

// StoreConfig selects and configures the persistence façade backend.
type StoreConfig struct {
	Backend  string `yaml:"backend"` // "memory" | "redis" | "postgres"
	RedisAddr string `yaml:"redis_addr"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// FederationConfig names this instance and controls cross-instance
// address handling.
type FederationConfig struct {
	Domain               string   `yaml:"domain"`
	BaseURL              string   `yaml:"base_url"`
	LocalAddressPrefixes []string `yaml:"local_address_prefixes"`
	OutboundTimeoutSec   int      `yaml:"outbound_timeout_sec"`
}

// SignatureConfig tunes the signature-verification pipeline.
type SignatureConfig struct {
	ClockSkewMinutes   int `yaml:"clock_skew_minutes"`
	KeyCacheTTLMinutes int `yaml:"key_cache_ttl_minutes"`
}

// SecurityConfig tunes password hashing and rate limiting.
type SecurityConfig struct {
	Argon2TimeCost      int `yaml:"argon2_time_cost"`
	Argon2MemoryKiB     int `yaml:"argon2_memory_kib"`
	Argon2Parallelism   int `yaml:"argon2_parallelism"`
	RateLimitPerMinute  int `yaml:"rate_limit_per_minute"`
	RateLimitBurst      int `yaml:"rate_limit_burst"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton config instance, loading it on first use.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Env = getEnv("OFSCP_ENV", c.Server.Env)
	c.Server.Interface = getEnv("OFSCP_INTERFACE", c.Server.Interface)
	if v := getEnvInt("SERVER_READ_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ReadTimeoutSec = v
	}
	if v := getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.WriteTimeoutSec = v
	}
	if v := getEnvInt("SERVER_IDLE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.IdleTimeoutSec = v
	}
	if v := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownTimeout = v
	}

	c.Store.Backend = getEnv("OFSCP_STORE_BACKEND", c.Store.Backend)
	c.Store.RedisAddr = getEnv("REDIS_ADDR", c.Store.RedisAddr)
	c.Store.PostgresDSN = getEnv("POSTGRES_DSN", c.Store.PostgresDSN)

	c.Federation.Domain = getEnv("OFSCP_DOMAIN", c.Federation.Domain)
	c.Federation.BaseURL = getEnv("OFSCP_BASE_URL", c.Federation.BaseURL)
	if prefixes := getEnv("OFSCP_LOCAL_ADDRESS_PREFIXES", ""); prefixes != "" {
		c.Federation.LocalAddressPrefixes = splitCSV(prefixes)
	}
	if v := getEnvInt("OFSCP_OUTBOUND_TIMEOUT_SEC", 0); v > 0 {
		c.Federation.OutboundTimeoutSec = v
	}

	if v := getEnvInt("OFSCP_CLOCK_SKEW_MINUTES", 0); v > 0 {
		c.Signature.ClockSkewMinutes = v
	}
	if v := getEnvInt("OFSCP_KEY_CACHE_TTL_MINUTES", 0); v > 0 {
		c.Signature.KeyCacheTTLMinutes = v
	}

	if v := getEnvInt("OFSCP_ARGON2_TIME_COST", 0); v > 0 {
		c.Security.Argon2TimeCost = v
	}
	if v := getEnvInt("OFSCP_ARGON2_MEMORY_KIB", 0); v > 0 {
		c.Security.Argon2MemoryKiB = v
	}
	if v := getEnvInt("OFSCP_ARGON2_PARALLELISM", 0); v > 0 {
		c.Security.Argon2Parallelism = v
	}
	if v := getEnvInt("OFSCP_RATE_LIMIT_PER_MINUTE", 0); v > 0 {
		c.Security.RateLimitPerMinute = v
	}
	if v := getEnvInt("OFSCP_RATE_LIMIT_BURST", 0); v > 0 {
		c.Security.RateLimitBurst = v
	}

	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Federation.Domain == "" {
		c.Federation.Domain = "localhost:8080"
	}
	if c.Federation.BaseURL == "" {
		c.Federation.BaseURL = "http://" + c.Federation.Domain
	}
	if c.Federation.OutboundTimeoutSec == 0 {
		c.Federation.OutboundTimeoutSec = 10
	}
	if c.Signature.ClockSkewMinutes == 0 {
		c.Signature.ClockSkewMinutes = 5
	}
	if c.Signature.KeyCacheTTLMinutes == 0 {
		c.Signature.KeyCacheTTLMinutes = 60
	}
	if c.Security.Argon2TimeCost == 0 {
		c.Security.Argon2TimeCost = 1
	}
	if c.Security.Argon2MemoryKiB == 0 {
		c.Security.Argon2MemoryKiB = 64 * 1024
	}
	if c.Security.Argon2Parallelism == 0 {
		c.Security.Argon2Parallelism = 4
	}
	if c.Security.RateLimitPerMinute == 0 {
		c.Security.RateLimitPerMinute = 120
	}
	if c.Security.RateLimitBurst == 0 {
		c.Security.RateLimitBurst = c.Security.RateLimitPerMinute * 2
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func (c *Config) IsProduction() bool { return c.Server.Env == "production" }

// Domain returns the normalized (scheme-stripped) domain for this instance.
func (c *Config) Domain() string {
	return domain.NormalizeHost(c.Federation.Domain)
}
