// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DiscoveryConfig governs the rotation schedule and per-cycle effort.
type DiscoveryConfig struct {
	SearchTerms     []string `mapstructure:"search_terms"`
	Cities          []string `mapstructure:"cities"`
	TargetPerCycle  int      `mapstructure:"target_per_cycle"`
	IntervalMinutes int      `mapstructure:"interval_minutes"`
}

// Interval returns the cadence between discovery cycles.
func (d DiscoveryConfig) Interval() time.Duration {
	return time.Duration(d.IntervalMinutes) * time.Minute
}

// DelayRange bounds a uniformly-random delay in milliseconds.
type DelayRange struct {
	MinMs int `mapstructure:"min_ms"`
	MaxMs int `mapstructure:"max_ms"`
}

// Min returns the lower bound as a duration.
func (r DelayRange) Min() time.Duration { return time.Duration(r.MinMs) * time.Millisecond }

// Max returns the upper bound as a duration.
func (r DelayRange) Max() time.Duration { return time.Duration(r.MaxMs) * time.Millisecond }

// RateLimitConfig holds the fixed delay ranges per delay kind. Ranges are
// configured, not computed: the limiter is deliberately non-adaptive.
type RateLimitConfig struct {
	BetweenRequests DelayRange `mapstructure:"between_requests"`
	BetweenSources  DelayRange `mapstructure:"between_sources"`
	HeadlessWait    DelayRange `mapstructure:"headless_wait"`
	ErrorBackoff    DelayRange `mapstructure:"error_backoff"`
}

// HTTPConfig configures outbound page fetching.
type HTTPConfig struct {
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	UserAgents     []string `mapstructure:"user_agents"`
	PerDomainRPS   float64  `mapstructure:"per_domain_rps"`
	PerDomainBurst int      `mapstructure:"per_domain_burst"`
}

// Timeout returns the outbound request timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BUYERSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.search_terms", defaultSearchTerms)
	v.SetDefault("discovery.cities", defaultCities)
	v.SetDefault("discovery.target_per_cycle", 5)
	v.SetDefault("discovery.interval_minutes", 60)
	v.SetDefault("ratelimit.between_requests.min_ms", 2000)
	v.SetDefault("ratelimit.between_requests.max_ms", 5000)
	v.SetDefault("ratelimit.between_sources.min_ms", 3000)
	v.SetDefault("ratelimit.between_sources.max_ms", 7000)
	v.SetDefault("ratelimit.headless_wait.min_ms", 2000)
	v.SetDefault("ratelimit.headless_wait.max_ms", 4000)
	v.SetDefault("ratelimit.error_backoff.min_ms", 10000)
	v.SetDefault("ratelimit.error_backoff.max_ms", 10000)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agents", defaultUserAgents)
	v.SetDefault("http.per_domain_rps", 0.5)
	v.SetDefault("http.per_domain_burst", 1)
	v.SetDefault("db.table", "buyers")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Discovery.SearchTerms) == 0 {
		return fmt.Errorf("discovery.search_terms must not be empty")
	}
	if len(c.Discovery.Cities) == 0 {
		return fmt.Errorf("discovery.cities must not be empty")
	}
	if c.Discovery.TargetPerCycle <= 0 {
		return fmt.Errorf("discovery.target_per_cycle must be > 0")
	}
	if c.Discovery.IntervalMinutes <= 0 {
		return fmt.Errorf("discovery.interval_minutes must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if len(c.HTTP.UserAgents) == 0 {
		return fmt.Errorf("http.user_agents must not be empty")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	for name, r := range map[string]DelayRange{
		"ratelimit.between_requests": c.RateLimit.BetweenRequests,
		"ratelimit.between_sources":  c.RateLimit.BetweenSources,
		"ratelimit.headless_wait":    c.RateLimit.HeadlessWait,
		"ratelimit.error_backoff":    c.RateLimit.ErrorBackoff,
	} {
		if r.MinMs < 0 || r.MaxMs < r.MinMs {
			return fmt.Errorf("%s must satisfy 0 <= min_ms <= max_ms", name)
		}
	}
	return nil
}

// defaultSearchTerms rotate through the scrap-battery buying vocabulary.
var defaultSearchTerms = []string{
	"scrap battery buyers",
	"battery recycling companies",
	"lead battery scrap dealers",
	"automotive battery recyclers",
	"industrial battery buyers",
	"battery scrap yard",
	"lead acid battery recycling",
	"battery disposal services",
	"scrap metal battery buyers",
	"battery core buyers",
	"used battery dealers",
	"car battery recycling",
}

// defaultCities are the major US metros targeted by the rotation.
var defaultCities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "Austin",
	"Jacksonville", "Fort Worth", "Columbus", "Charlotte", "Detroit",
	"Memphis", "Boston", "Seattle", "Denver", "Nashville",
	"Portland", "Las Vegas", "Louisville", "Baltimore", "Milwaukee",
	"Oklahoma City", "Atlanta", "Miami", "Kansas City", "Tampa",
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
}
