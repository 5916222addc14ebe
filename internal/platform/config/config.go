package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	pstrings "restapidemo/pkg/platform/strings"
)

// EnvPrefix namespaces every environment variable, e.g. RESTAPIDEMO_ADDR.
const EnvPrefix = "RESTAPIDEMO"

// Keys double as flag names; env names are the upper-cased key with dashes
// replaced by underscores.
const (
	KeyAddr               = "addr"
	KeyStoreDriver        = "store-driver"
	KeyDatabaseURL        = "database-url"
	KeyRedisURL           = "redis-url"
	KeyCacheTTL           = "cache-ttl"
	KeyKafkaBrokers       = "kafka-brokers"
	KeyKafkaTopic         = "kafka-topic"
	KeyEventBuffer        = "event-buffer"
	KeyCORSAllowedOrigins = "cors-allowed-origins"
	KeyLogLevel           = "log-level"
	KeyLogFormat          = "log-format"
	KeyShutdownTimeout    = "shutdown-timeout"
	KeyConfigFile         = "config"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Server captures process level configuration.
type Server struct {
	Addr               string
	StoreDriver        string
	DatabaseURL        string
	RedisURL           string
	CacheTTL           time.Duration
	KafkaBrokers       []string
	KafkaTopic         string
	EventBuffer        int
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
}

var defaults = map[string]any{
	KeyAddr:               ":8080",
	KeyStoreDriver:        StoreMemory,
	KeyDatabaseURL:        "",
	KeyRedisURL:           "",
	KeyCacheTTL:           5 * time.Minute,
	KeyKafkaBrokers:       "",
	KeyKafkaTopic:         "users.events",
	KeyEventBuffer:        256,
	KeyCORSAllowedOrigins: "http://localhost:3000",
	KeyLogLevel:           "info",
	KeyLogFormat:          "json",
	KeyShutdownTimeout:    10 * time.Second,
}

// RegisterFlags declares the command line overrides.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyAddr, defaults[KeyAddr].(string), "HTTP listen address")
	fs.String(KeyStoreDriver, defaults[KeyStoreDriver].(string), "user store: memory, postgres or sqlite")
	fs.String(KeyDatabaseURL, "", "database DSN for the postgres and sqlite stores")
	fs.String(KeyRedisURL, "", "redis URL for the user cache (disabled when empty)")
	fs.Duration(KeyCacheTTL, defaults[KeyCacheTTL].(time.Duration), "how long cached users are served")
	fs.String(KeyKafkaBrokers, "", "comma separated Kafka seed brokers (events are logged when empty)")
	fs.String(KeyKafkaTopic, defaults[KeyKafkaTopic].(string), "Kafka topic for user events")
	fs.Int(KeyEventBuffer, defaults[KeyEventBuffer].(int), "events buffered before new ones are dropped")
	fs.String(KeyCORSAllowedOrigins, defaults[KeyCORSAllowedOrigins].(string), "comma separated origins allowed by CORS")
	fs.String(KeyLogLevel, defaults[KeyLogLevel].(string), "debug, info, warn or error")
	fs.String(KeyLogFormat, defaults[KeyLogFormat].(string), "json or text")
	fs.Duration(KeyShutdownTimeout, defaults[KeyShutdownTimeout].(time.Duration), "grace period for in-flight requests on shutdown")
	fs.String(KeyConfigFile, "", "optional config file (yaml, json or toml)")
}

// NewViper binds flags, RESTAPIDEMO_* env vars and an optional config file.
// Precedence is flag, env, file, default.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return v, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads a Server config out of v and validates it.
func Load(v *viper.Viper) (Server, error) {
	cfg := Server{
		Addr:               strings.TrimSpace(v.GetString(KeyAddr)),
		StoreDriver:        strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreDriver))),
		DatabaseURL:        v.GetString(KeyDatabaseURL),
		RedisURL:           v.GetString(KeyRedisURL),
		CacheTTL:           v.GetDuration(KeyCacheTTL),
		KafkaBrokers:       pstrings.SplitList(v.GetString(KeyKafkaBrokers)),
		KafkaTopic:         strings.TrimSpace(v.GetString(KeyKafkaTopic)),
		EventBuffer:        v.GetInt(KeyEventBuffer),
		CORSAllowedOrigins: pstrings.SplitList(v.GetString(KeyCORSAllowedOrigins)),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
		ShutdownTimeout:    v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the runtime cannot start with.
func (c Server) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres, StoreSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: %s store requires %s_DATABASE_URL", c.StoreDriver, EnvPrefix)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.CacheTTL <= 0 {
		return errors.New("config: cache-ttl must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: shutdown-timeout must be positive")
	}
	if c.EventBuffer <= 0 {
		return errors.New("config: event-buffer must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("config: kafka-topic is required when brokers are set")
	}
	return nil
}
