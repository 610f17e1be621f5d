package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/graph"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Source.Kind != SourceMock {
		t.Errorf("Source.Kind = %q, want %q", cfg.Source.Kind, SourceMock)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("Poll.Interval = %s, want 5s", cfg.Poll.Interval)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[server]
addr = ":8080"

[source]
kind = "rest"
api_url = "http://api.local/api"

[poll]
interval = "2s"
timeout = "1500ms"

[layout]
width = 800
height = 600
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Source.Kind != SourceREST || cfg.Source.APIURL != "http://api.local/api" {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if cfg.Poll.Interval != 2*time.Second || cfg.Poll.Timeout != 1500*time.Millisecond {
		t.Errorf("Poll = %+v", cfg.Poll)
	}
	if cfg.Layout.Radius != graph.DefaultRadius {
		t.Errorf("Layout.Radius = %v, want default %v", cfg.Layout.Radius, graph.DefaultRadius)
	}
	if cfg.Layout.Center == nil || *cfg.Layout.Center != (graph.Point{X: 400, Y: 300}) {
		t.Errorf("Layout.Center = %v, want canvas middle", cfg.Layout.Center)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(`
[source]
kind = "mock"
fixtur = "typo.yaml"
`)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
	if !strings.Contains(err.Error(), "source.fixtur") {
		t.Errorf("error %q should name the key", err)
	}
}

func TestParseSyntaxError(t *testing.T) {
	if _, err := Parse("[source\nkind ="); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   errors.Code
	}{
		{"unknown source", func(c *Config) { c.Source.Kind = "oracle" }, errors.ErrCodeInvalidSource},
		{"supabase without key", func(c *Config) {
			c.Source.Kind = SourceSupabase
			c.Source.SupabaseURL = "https://x.supabase.co"
		}, errors.ErrCodeInvalidConfig},
		{"mongo without uri", func(c *Config) { c.Source.Kind = SourceMongo }, errors.ErrCodeInvalidConfig},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, errors.ErrCodeInvalidConfig},
		{"negative timeout", func(c *Config) { c.Poll.Timeout = -time.Second }, errors.ErrCodeInvalidConfig},
		{"zero width", func(c *Config) { c.Layout.Width = 0 }, errors.ErrCodeInvalidConfig},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, errors.ErrCodeInvalidConfig},
		{"redis without url", func(c *Config) { c.Cache.Backend = CacheRedis }, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                   "4000",
		"GOVDASH_SOURCE":         "supabase",
		"VITE_SUPABASE_URL":      "https://vite.supabase.co",
		"SUPABASE_URL":           "https://main.supabase.co",
		"VITE_SUPABASE_ANON_KEY": "anon",
		"GOVDASH_POLL_INTERVAL":  "750",
		"DB_PORT":                "not-a-number",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.Server.Addr != ":4000" {
		t.Errorf("Server.Addr = %q, want :4000", cfg.Server.Addr)
	}
	if cfg.Source.SupabaseURL != "https://main.supabase.co" {
		t.Errorf("SupabaseURL = %q, SUPABASE_URL should win", cfg.Source.SupabaseURL)
	}
	if cfg.Source.SupabaseKey != "anon" {
		t.Errorf("SupabaseKey = %q, want VITE fallback", cfg.Source.SupabaseKey)
	}
	if cfg.Poll.Interval != 750*time.Millisecond {
		t.Errorf("Poll.Interval = %s, want 750ms", cfg.Poll.Interval)
	}
	if cfg.Source.DBPort != 5432 {
		t.Errorf("DBPort = %d, invalid env should be ignored", cfg.Source.DBPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestPostgresURL(t *testing.T) {
	s := Default().Source
	if got, want := s.PostgresURL(), "postgres://agent_user@localhost:5432/multi_agent_gov"; got != want {
		t.Errorf("PostgresURL() = %q, want %q", got, want)
	}

	s.DBPassword = "p@ss word"
	if got := s.PostgresURL(); !strings.Contains(got, "agent_user:p%40ss%20word@") {
		t.Errorf("PostgresURL() = %q, password should be escaped", got)
	}

	s.DatabaseURL = "postgres://other/db"
	if got := s.PostgresURL(); got != "postgres://other/db" {
		t.Errorf("PostgresURL() = %q, DATABASE_URL should win", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("GOVDASH_SOURCE", "")
	t.Setenv("PORT", "")

	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[poll]\ninterval = \"9s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if cfg.Poll.Interval != 9*time.Second {
		t.Errorf("Poll.Interval = %s, want 9s", cfg.Poll.Interval)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load(missing) = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadSearchesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("GOVDASH_SOURCE", "")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without file: %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}

	if err := os.WriteFile(FileName, []byte("[server]\naddr = \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != FileName || cfg.Server.Addr != ":9000" {
		t.Errorf("File = %q, Addr = %q", cfg.File, cfg.Server.Addr)
	}
}
