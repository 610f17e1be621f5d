// Package config loads govdash settings from a TOML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	stderrors "errors"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/graph"
)

// FileName is the config file looked up in the working directory.
const FileName = "govdash.toml"

// Source kinds.
const (
	SourceMock     = "mock"
	SourcePostgres = "postgres"
	SourceREST     = "rest"
	SourceSupabase = "supabase"
	SourceMongo    = "mongo"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the complete govdash configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Source SourceConfig `toml:"source"`
	Poll   PollConfig   `toml:"poll"`
	Layout graph.Config `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`

	// File is the config file that was loaded, if any.
	File string `toml:"-"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	CORSOrigin      string        `toml:"cors_origin"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// SourceConfig selects and configures the data backend.
type SourceConfig struct {
	Kind    string        `toml:"kind"`
	Timeout time.Duration `toml:"timeout"`

	// mock
	Fixture string `toml:"fixture"`

	// postgres
	DatabaseURL string `toml:"database_url"`
	DBHost      string `toml:"db_host"`
	DBPort      int    `toml:"db_port"`
	DBName      string `toml:"db_name"`
	DBUser      string `toml:"db_user"`
	DBPassword  string `toml:"db_password"`

	// rest
	APIURL string `toml:"api_url"`

	// supabase
	SupabaseURL string `toml:"supabase_url"`
	SupabaseKey string `toml:"supabase_key"`

	// mongo
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// PollConfig configures the refresh controller.
type PollConfig struct {
	Interval time.Duration `toml:"interval"`
	Timeout  time.Duration `toml:"timeout"`
	// Demo shows the built-in demo network while the source has never
	// answered.
	Demo bool `toml:"demo"`
}

// CacheConfig configures artifact and snapshot caching.
type CacheConfig struct {
	Backend     string        `toml:"backend"`
	Dir         string        `toml:"dir"`
	RedisURL    string        `toml:"redis_url"`
	Prefix      string        `toml:"prefix"`
	ArtifactTTL time.Duration `toml:"artifact_ttl"`
	SnapshotTTL time.Duration `toml:"snapshot_ttl"`
}

// Default returns the built-in configuration: the mock source on :3001,
// polled every five seconds.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3001",
			CORSOrigin:      "*",
			ShutdownTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			Kind:          SourceMock,
			Timeout:       10 * time.Second,
			DBHost:        "localhost",
			DBPort:        5432,
			DBName:        "multi_agent_gov",
			DBUser:        "agent_user",
			APIURL:        "http://localhost:3001/api",
			MongoDatabase: "multi_agent_gov",
		},
		Poll: PollConfig{
			Interval: 5 * time.Second,
			Timeout:  4 * time.Second,
			Demo:     true,
		},
		Layout: graph.Config{
			Width:  graph.DefaultWidth,
			Height: graph.DefaultHeight,
			Radius: graph.DefaultRadius,
		},
		Cache: CacheConfig{
			Backend:     CacheNone,
			Prefix:      "govdash",
			ArtifactTTL: 10 * time.Minute,
			SnapshotTTL: 24 * time.Hour,
		},
	}
}

// Load reads the configuration. path names a TOML file; when empty the
// working directory and the user config directory are searched, and a
// missing file is not an error. A .env file in the working directory is
// loaded into the environment without overriding variables already set.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load .env")
	}

	file, err := locate(path)
	if err != nil {
		return cfg, err
	}
	if file != "" {
		if err := cfg.decodeFile(file); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.Layout = cfg.Layout.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults without consulting the
// environment.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := checkUndecoded(md, "config"); err != nil {
		return cfg, err
	}
	cfg.Layout = cfg.Layout.Normalize()
	return cfg, cfg.Validate()
}

func (c *Config) decodeFile(file string) error {
	md, err := toml.DecodeFile(file, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", file)
	}
	if err := checkUndecoded(md, file); err != nil {
		return err
	}
	c.File = file
	return nil
}

func checkUndecoded(md toml.MetaData, name string) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", name, strings.Join(keys, ", "))
}

// locate resolves the config file to read. An explicit path must exist.
func locate(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
		}
		return path, nil
	}
	candidates := []string{FileName}
	if dir, err := UserDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.toml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// UserDir returns the per-user config directory, honouring
// XDG_CONFIG_HOME.
func UserDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "govdash"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "govdash"), nil
}

// applyEnv overlays environment variables. The names follow the API
// server's .env file so existing deployments keep working.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v := getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else if ms, err := strconv.Atoi(v); err == nil {
				*dst = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if port := getenv("PORT"); port != "" {
		c.Server.Addr = net.JoinHostPort("", port)
	}
	set(&c.Source.Kind, "GOVDASH_SOURCE")
	set(&c.Source.DatabaseURL, "DATABASE_URL")
	set(&c.Source.DBHost, "DB_HOST")
	set(&c.Source.DBName, "DB_NAME")
	set(&c.Source.DBUser, "DB_USER")
	set(&c.Source.DBPassword, "DB_PASSWORD")
	if v := getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Source.DBPort = p
		}
	}
	set(&c.Source.APIURL, "GOVDASH_API_URL")
	set(&c.Source.SupabaseURL, "SUPABASE_URL", "VITE_SUPABASE_URL")
	set(&c.Source.SupabaseKey, "SUPABASE_KEY", "VITE_SUPABASE_ANON_KEY")
	set(&c.Source.MongoURI, "MONGO_URI")
	set(&c.Cache.Backend, "GOVDASH_CACHE")
	set(&c.Cache.RedisURL, "REDIS_URL")
	setDuration(&c.Poll.Interval, "GOVDASH_POLL_INTERVAL")
}

// PostgresURL returns the database URL, assembling one from the DB_*
// settings when none is configured.
func (s SourceConfig) PostgresURL() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(s.DBHost, strconv.Itoa(s.DBPort)),
		Path:   "/" + s.DBName,
	}
	if s.DBPassword != "" {
		u.User = url.UserPassword(s.DBUser, s.DBPassword)
	} else if s.DBUser != "" {
		u.User = url.User(s.DBUser)
	}
	return u.String()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceMock, SourcePostgres, SourceREST, SourceMongo:
	case SourceSupabase:
		if c.Source.SupabaseURL == "" || c.Source.SupabaseKey == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "supabase source needs supabase_url and supabase_key")
		}
	default:
		return errors.New(errors.ErrCodeInvalidSource, "unknown source kind %q (want mock, postgres, rest, supabase or mongo)", c.Source.Kind)
	}
	if c.Source.Kind == SourceMongo && c.Source.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "mongo source needs mongo_uri")
	}
	if c.Poll.Interval <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "poll interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.Timeout <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "poll timeout must be positive, got %s", c.Poll.Timeout)
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 || c.Layout.Radius <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout dimensions must be positive")
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis cache needs redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}
