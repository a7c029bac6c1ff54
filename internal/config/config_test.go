package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if len(cfg.Discovery.SearchTerms) == 0 || len(cfg.Discovery.Cities) == 0 {
		t.Fatal("expected default search terms and cities")
	}
	if cfg.Discovery.TargetPerCycle != 5 {
		t.Fatalf("expected target_per_cycle 5, got %d", cfg.Discovery.TargetPerCycle)
	}
	if got := cfg.Discovery.Interval(); got != time.Hour {
		t.Fatalf("expected hourly interval, got %v", got)
	}
	if cfg.RateLimit.BetweenRequests.Min() != 2*time.Second || cfg.RateLimit.BetweenRequests.Max() != 5*time.Second {
		t.Fatalf("unexpected between_requests range: %+v", cfg.RateLimit.BetweenRequests)
	}
	if cfg.DB.Table != "buyers" {
		t.Fatalf("expected default table buyers, got %q", cfg.DB.Table)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
discovery:
  search_terms: ["scrap battery buyers"]
  cities: ["Detroit", "Chicago"]
  target_per_cycle: 3
  interval_minutes: 30
ratelimit:
  between_requests:
    min_ms: 10
    max_ms: 20
http:
  timeout_seconds: 5
db:
  dsn: postgres://localhost/buyers
  table: leads
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatal("expected auth enabled with secret key")
	}
	if len(cfg.Discovery.Cities) != 2 || cfg.Discovery.Cities[0] != "Detroit" {
		t.Fatalf("expected city overrides to apply: %+v", cfg.Discovery.Cities)
	}
	if cfg.Discovery.Interval() != 30*time.Minute {
		t.Fatalf("expected 30m interval, got %v", cfg.Discovery.Interval())
	}
	if cfg.RateLimit.BetweenRequests.MaxMs != 20 {
		t.Fatalf("expected between_requests override, got %+v", cfg.RateLimit.BetweenRequests)
	}
	// Ranges not mentioned in the file keep their defaults.
	if cfg.RateLimit.ErrorBackoff.MinMs != 10000 {
		t.Fatalf("expected default error_backoff, got %+v", cfg.RateLimit.ErrorBackoff)
	}
	if cfg.DB.Table != "leads" || cfg.DB.DSN == "" {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080},
		Discovery: DiscoveryConfig{
			SearchTerms:     []string{"scrap battery buyers"},
			Cities:          []string{"Detroit"},
			TargetPerCycle:  5,
			IntervalMinutes: 60,
		},
		HTTP: HTTPConfig{TimeoutSeconds: 10, UserAgents: []string{"agent"}},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "invalid port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server.port",
		},
		{
			name:   "no search terms",
			mutate: func(c *Config) { c.Discovery.SearchTerms = nil },
			want:   "search_terms",
		},
		{
			name:   "no cities",
			mutate: func(c *Config) { c.Discovery.Cities = nil },
			want:   "cities",
		},
		{
			name:   "invalid target",
			mutate: func(c *Config) { c.Discovery.TargetPerCycle = 0 },
			want:   "target_per_cycle",
		},
		{
			name:   "invalid timeout",
			mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
			want:   "timeout_seconds",
		},
		{
			name:   "auth without key",
			mutate: func(c *Config) { c.Auth.Enabled = true },
			want:   "auth.api_key",
		},
		{
			name:   "inverted delay range",
			mutate: func(c *Config) { c.RateLimit.BetweenSources = DelayRange{MinMs: 100, MaxMs: 50} },
			want:   "between_sources",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
