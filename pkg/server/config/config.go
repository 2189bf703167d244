// Package config contains all knobs and defaults used to configure features of
// the catalog server.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	DefaultMaxRecordsPerWrite = 100
	DefaultRequestTimeout     = 10 * time.Second

	DefaultCacheEnabled    = true
	DefaultCacheBackend    = "memory"
	DefaultCacheTTL        = 300 * time.Second
	DefaultCacheMaxEntries = 128
	DefaultRedisURL        = "redis://localhost:6379/0"
	DefaultRedisNamespace  = "catalog:"

	DefaultNeo4jDatabase = "neo4j"
)

type DatastoreMetricsConfig struct {
	// Enabled enables export of the Datastore metrics.
	Enabled bool
}

// DatastoreConfig defines server configurations specific to the catalog datastore.
type DatastoreConfig struct {
	// Engine is the datastore engine to use (e.g. 'memory', 'neo4j', 'sqlite', 'postgres', 'mysql')
	Engine   string
	URI      string
	Username string
	Password string

	// Database is the neo4j database holding the catalog.
	Database string

	// MaxOpenConns is the maximum number of open connections to the SQL database.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections to the SQL datastore in the idle connection
	// pool.
	MaxIdleConns int

	// ConnMaxIdleTime is the maximum amount of time a connection to the SQL datastore may be idle.
	ConnMaxIdleTime time.Duration

	// ConnMaxLifetime is the maximum amount of time a connection to the SQL datastore may be reused.
	ConnMaxLifetime time.Duration

	Metrics DatastoreMetricsConfig
}

type RedisCacheConfig struct {
	URL       string
	Namespace string
}

// CacheConfig defines the search cache.
type CacheConfig struct {
	Enabled bool
	// Backend is 'memory' or 'redis'.
	Backend    string
	TTL        time.Duration
	MaxEntries int64
	Redis      RedisCacheConfig
}

// HTTPConfig defines HTTP server configurations.
type HTTPConfig struct {
	Addr string
	TLS  *TLSConfig

	CORSAllowedOrigins []string
}

// TLSConfig defines configuration specific to Transport Layer Security (TLS) settings.
type TLSConfig struct {
	Enabled  bool
	CertPath string `mapstructure:"cert"`
	KeyPath  string `mapstructure:"key"`
}

// AuthnConfig defines authentication configurations.
//
// Note that this establishes an authentication method: 'none', 'oidc' or 'preshared'.
type AuthnConfig struct {
	Method                   string
	*AuthnOIDCConfig         `mapstructure:"oidc"`
	*AuthnPresharedKeyConfig `mapstructure:"preshared"`
}

// AuthnOIDCConfig defines configurations for the 'oidc' method of authentication.
type AuthnOIDCConfig struct {
	Issuer               string
	IssuerAliases        []string
	Audience             string
	RequireVerifiedEmail bool
}

// AuthnPresharedKeyConfig defines configurations for the 'preshared' method of
// authentication. Each key has the form 'subject:key'.
type AuthnPresharedKeyConfig struct {
	Keys []string
}

// LogConfig defines server configurations specific to logging.
type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string

	// Format of the timestamp in the log output (e.g. 'Unix'(default) or 'ISO8601')
	TimestampFormat string
}

type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string
}

type OTLPTraceConfig struct {
	Endpoint string
	TLS      OTLPTraceTLSConfig
}

type OTLPTraceTLSConfig struct {
	Enabled bool
}

// MetricConfig defines configurations for serving custom metrics from the catalog.
type MetricConfig struct {
	Enabled bool
	Addr    string
}

type Config struct {
	// MaxRecordsPerWrite defines the maximum number of records that can be added or
	// deleted in one request.
	MaxRecordsPerWrite int

	// RequestTimeout bounds every request that carries no deadline of its own.
	RequestTimeout time.Duration

	Datastore DatastoreConfig
	Cache     CacheConfig
	Authn     AuthnConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Trace     TraceConfig
	Metrics   MetricConfig
}

func (cfg *Config) Verify() error {
	if cfg.MaxRecordsPerWrite <= 0 {
		return errors.New("config 'maxRecordsPerWrite' must be greater than 0")
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("config 'requestTimeout' (%s) cannot be negative", cfg.RequestTimeout)
	}

	switch cfg.Datastore.Engine {
	case "memory", "neo4j", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("config 'datastore.engine' must be one of ['memory', 'neo4j', 'sqlite', 'postgres', 'mysql'], got %q", cfg.Datastore.Engine)
	}
	if cfg.Datastore.Engine != "memory" && cfg.Datastore.URI == "" {
		return fmt.Errorf("config 'datastore.uri' is required for the %q engine", cfg.Datastore.Engine)
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return errors.New("config 'cache.ttl' must be greater than 0")
		}
		switch cfg.Cache.Backend {
		case "memory":
			if cfg.Cache.MaxEntries <= 0 {
				return errors.New("config 'cache.maxEntries' must be greater than 0")
			}
		case "redis":
			if cfg.Cache.Redis.URL == "" {
				return errors.New("config 'cache.redis.url' is required for the redis cache backend")
			}
			if cfg.Cache.Redis.Namespace == "" {
				return errors.New("config 'cache.redis.namespace' must not be empty")
			}
		default:
			return fmt.Errorf("config 'cache.backend' must be one of ['memory', 'redis'], got %q", cfg.Cache.Backend)
		}
	}

	switch cfg.Authn.Method {
	case "none":
	case "oidc":
		if cfg.Authn.AuthnOIDCConfig == nil || cfg.Authn.Issuer == "" {
			return errors.New("config 'authn.oidc.issuer' is required for the oidc authn method")
		}
	case "preshared":
		if cfg.Authn.AuthnPresharedKeyConfig == nil || len(cfg.Authn.Keys) == 0 {
			return errors.New("config 'authn.preshared.keys' is required for the preshared authn method")
		}
	default:
		return fmt.Errorf("config 'authn.method' must be one of ['none', 'oidc', 'preshared'], got %q", cfg.Authn.Method)
	}

	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json']")
	}

	if cfg.Log.Level != "none" &&
		cfg.Log.Level != "debug" &&
		cfg.Log.Level != "info" &&
		cfg.Log.Level != "warn" &&
		cfg.Log.Level != "error" &&
		cfg.Log.Level != "panic" &&
		cfg.Log.Level != "fatal" {
		return fmt.Errorf(
			"config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal']",
		)
	}

	if cfg.Log.TimestampFormat != "Unix" && cfg.Log.TimestampFormat != "ISO8601" {
		return fmt.Errorf("config 'log.TimestampFormat' must be one of ['Unix', 'ISO8601']")
	}

	if cfg.HTTP.TLS != nil && cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.CertPath == "" || cfg.HTTP.TLS.KeyPath == "" {
			return errors.New("'http.tls.cert' and 'http.tls.key' configs must be set")
		}
	}

	if cfg.Trace.Enabled && (cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1) {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

// DefaultConfig is the catalog server default configurations.
func DefaultConfig() *Config {
	return &Config{
		MaxRecordsPerWrite: DefaultMaxRecordsPerWrite,
		RequestTimeout:     DefaultRequestTimeout,
		Datastore: DatastoreConfig{
			Engine:       "memory",
			Database:     DefaultNeo4jDatabase,
			MaxIdleConns: 10,
			MaxOpenConns: 30,
		},
		Cache: CacheConfig{
			Enabled:    DefaultCacheEnabled,
			Backend:    DefaultCacheBackend,
			TTL:        DefaultCacheTTL,
			MaxEntries: DefaultCacheMaxEntries,
			Redis: RedisCacheConfig{
				URL:       DefaultRedisURL,
				Namespace: DefaultRedisNamespace,
			},
		},
		HTTP: HTTPConfig{
			Addr:               "0.0.0.0:8080",
			TLS:                &TLSConfig{Enabled: false},
			CORSAllowedOrigins: []string{"*"},
		},
		Authn: AuthnConfig{
			Method:                  "none",
			AuthnPresharedKeyConfig: &AuthnPresharedKeyConfig{},
			AuthnOIDCConfig:         &AuthnOIDCConfig{},
		},
		Log: LogConfig{
			Format:          "text",
			Level:           "info",
			TimestampFormat: "Unix",
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
				TLS: OTLPTraceTLSConfig{
					Enabled: false,
				},
			},
			SampleRatio: 0.2,
			ServiceName: "catalog",
		},
		Metrics: MetricConfig{
			Enabled: true,
			Addr:    "0.0.0.0:2112",
		},
	}
}

// MustDefaultConfig returns default server config with the metrics server turned off.
func MustDefaultConfig() *Config {
	config := DefaultConfig()

	config.Metrics.Enabled = false

	return config
}

// MustDefaultConfigWithRandomPorts returns default server config but with a random port
// for the http address and with tracing and metrics turned off.
// This function may panic if somehow a random port cannot be chosen.
func MustDefaultConfigWithRandomPorts() *Config {
	config := MustDefaultConfig()

	httpPort, httpPortReleaser := TCPRandomPort()
	defer httpPortReleaser()

	config.HTTP.Addr = "localhost:" + strconv.Itoa(httpPort)

	return config
}

// TCPRandomPort tries to find a random TCP Port. If it can't find one, it panics. Else, it returns the port and a function that releases the port.
// It is the responsibility of the caller to call the release function right before trying to listen on the given port.
func TCPRandomPort() (int, func()) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		panic(err)
	}
	return l.Addr().(*net.TCPAddr).Port, func() {
		l.Close()
	}
}
