package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// No config file anywhere: the relay runs entirely on defaults.
	cfg, err := Load(&CLI{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
	if cfg.Relay.Referer != "https://megacloud.blog/" {
		t.Errorf("Referer = %q, want default", cfg.Relay.Referer)
	}
	if cfg.Relay.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want 60", cfg.Relay.TimeoutSeconds)
	}
	if cfg.Relay.IdleConnections != 100 {
		t.Errorf("IdleConnections = %d, want 100", cfg.Relay.IdleConnections)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
allowed_origins = ["https://player.example"]

[server.rate_limit]
enabled = true
requests_per_second = 50.0

[relay]
public_url = "https://relay.example"
referer = "https://other.example/"
timeout_seconds = 30
idle_connections = 20

[log]
level = "debug"
format = "text"

[metrics]
enabled = true
path = "/internal/metrics"
`)

	cfg, err := Load(&CLI{Config: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if !cfg.Server.RateLimit.Enabled || cfg.Server.RateLimit.RequestsPerSecond != 50.0 {
		t.Errorf("RateLimit = %+v", cfg.Server.RateLimit)
	}
	if cfg.Relay.PublicURL != "https://relay.example" {
		t.Errorf("PublicURL = %q", cfg.Relay.PublicURL)
	}
	if cfg.Relay.Referer != "https://other.example/" {
		t.Errorf("Referer = %q", cfg.Relay.Referer)
	}
	if cfg.Relay.TimeoutSeconds != 30 || cfg.Relay.IdleConnections != 20 {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/internal/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000

[log]
level = "warn"
`)

	cfg, err := Load(&CLI{
		Config:    path,
		Host:      "0.0.0.0",
		Port:      8080,
		PublicURL: "https://cli.example",
		Referer:   "https://cli-referer.example/",
		LogLevel:  "debug",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("CLI host/port override not applied: %+v", cfg.Server)
	}
	if cfg.Relay.PublicURL != "https://cli.example" {
		t.Errorf("CLI public_url override not applied: %q", cfg.Relay.PublicURL)
	}
	if cfg.Relay.Referer != "https://cli-referer.example/" {
		t.Errorf("CLI referer override not applied: %q", cfg.Relay.Referer)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("CLI log level override not applied: %q", cfg.Log.Level)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(&CLI{Config: filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatal("Load() expected error for missing explicit config file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "[server\nhost = ")
	_, err := Load(&CLI{Config: path})
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "bad public_url scheme",
			content: "[relay]\npublic_url = \"ftp://relay.example\"\n",
			wantSub: "relay.public_url",
		},
		{
			name:    "bad referer scheme",
			content: "[relay]\nreferer = \"ws://host/\"\n",
			wantSub: "relay.referer",
		},
		{
			name:    "port out of range",
			content: "[server]\nport = 99999\n",
			wantSub: "server.port",
		},
		{
			name:    "negative timeout",
			content: "[relay]\ntimeout_seconds = -1\n",
			wantSub: "relay.timeout_seconds",
		},
		{
			name:    "rate limit enabled without rate",
			content: "[server.rate_limit]\nenabled = true\n",
			wantSub: "requests_per_second",
		},
		{
			name:    "bad log level",
			content: "[log]\nlevel = \"verbose\"\n",
			wantSub: "log.level",
		},
		{
			name:    "bad log format",
			content: "[log]\nformat = \"xml\"\n",
			wantSub: "log.format",
		},
		{
			name:    "metrics path without slash",
			content: "[metrics]\nenabled = true\npath = \"metrics\"\n",
			wantSub: "metrics.path",
		},
		{
			name:    "metrics path conflicts with fetch",
			content: "[metrics]\nenabled = true\npath = \"/fetch\"\n",
			wantSub: "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(&CLI{Config: path})
			if err == nil {
				t.Fatal("Load() expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(existing, []byte(""), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml"), existing})
	if got != existing {
		t.Errorf("findConfigInPaths() = %q, want %q", got, existing)
	}
	if got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml")}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}
