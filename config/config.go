package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverDynamo = "dynamo"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Store     Store     `yaml:"store"`
	Log       Log       `yaml:"log"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

type Server struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Store struct {
	Driver      string `yaml:"driver"`
	SQLiteDSN   string `yaml:"sqlite_dsn"`
	AWSRegion   string `yaml:"aws_region"`
	TablePrefix string `yaml:"table_prefix"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Per-manager write limits used when nothing else is configured.
const (
	DefaultRateLimitRPS   = 5
	DefaultRateLimitBurst = 10
)

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
		},
		Store: Store{
			Driver:    DriverSQLite,
			SQLiteDSN: "matchmaking.db",
		},
		Log:       Log{Level: "info"},
		RateLimit: RateLimit{RPS: DefaultRateLimitRPS, Burst: DefaultRateLimitBurst},
	}
}

// Load resolves the effective configuration: defaults, then the YAML file
// named by --config (or CONFIG_FILE), then environment, then explicit flags.
// A .env file in the working directory is loaded first if present.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load(".env")

	fs := pflag.NewFlagSet("matchmaking_server", pflag.ContinueOnError)
	cfgPath := fs.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	port := fs.String("port", "", "HTTP listen port")
	driver := fs.String("store", "", "storage backend: sqlite or dynamo")
	dsn := fs.String("sqlite-dsn", "", "sqlite database path or DSN")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *cfgPath != "" {
		if err := cfg.loadFile(*cfgPath); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if fs.Changed("port") {
		cfg.Server.Port = *port
	}
	if fs.Changed("store") {
		cfg.Store.Driver = *driver
	}
	if fs.Changed("sqlite-dsn") {
		cfg.Store.SQLiteDSN = *dsn
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SQLITE_DSN"); v != "" {
		c.Store.SQLiteDSN = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Store.AWSRegion = v
	}
	if v := os.Getenv("DYNAMO_TABLE_PREFIX"); v != "" {
		c.Store.TablePrefix = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		c.Log.Development, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.Burst = n
		}
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if n, err := strconv.Atoi(c.Server.Port); err != nil || n <= 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Server.Port))
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLiteDSN == "" {
			errs = append(errs, errors.New("sqlite driver requires sqlite_dsn"))
		}
	case DriverDynamo:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit values must not be negative"))
	}
	return errors.Join(errs...)
}

// Table returns the DynamoDB table name with the configured prefix.
func (s Store) Table(name string) string {
	return s.TablePrefix + name
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
