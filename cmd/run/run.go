// Package run contains the command to run a catalog server.
package run

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	goruntime "runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/certwatcher"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/ontologymarket/catalog/internal/authn"
	"github.com/ontologymarket/catalog/internal/authn/oidc"
	"github.com/ontologymarket/catalog/internal/authn/presharedkey"
	"github.com/ontologymarket/catalog/internal/build"
	"github.com/ontologymarket/catalog/pkg/cache"
	"github.com/ontologymarket/catalog/pkg/cache/redis"
	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/server"
	serverconfig "github.com/ontologymarket/catalog/pkg/server/config"
	"github.com/ontologymarket/catalog/pkg/server/httpapi"
	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/memory"
	"github.com/ontologymarket/catalog/pkg/storage/mysql"
	"github.com/ontologymarket/catalog/pkg/storage/neo4j"
	"github.com/ontologymarket/catalog/pkg/storage/postgres"
	"github.com/ontologymarket/catalog/pkg/storage/sqlcommon"
	"github.com/ontologymarket/catalog/pkg/storage/sqlite"
	"github.com/ontologymarket/catalog/pkg/telemetry"
)

// environment variables kept from earlier deployments whose values cannot be bound to a
// config key as they are
const (
	cacheTTLSecondsEnv = "CACHE_TTL_SECONDS"
	useRedisCacheEnv   = "USE_REDIS_CACHE"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the catalog server",
		Long:  "Run the catalog server.",
		Run:   run,
		Args:  cobra.NoArgs,
	}

	bindRunFlags(cmd)

	return cmd
}

// ReadConfig returns the catalog server configuration based on the values provided in the server's 'config.yaml' file.
// The 'config.yaml' file is loaded from '/etc/catalog', '$HOME/.catalog', or the current working directory. If no configuration
// file is present, the default values are returned.
func ReadConfig() (*serverconfig.Config, error) {
	config := serverconfig.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load server config: %w", err)
		}
	}

	if err := applyEnvAliases(); err != nil {
		return nil, err
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	return config, nil
}

// applyEnvAliases turns the legacy cache variables into defaults, so a config file or a
// CATALOG_ variable still takes precedence over them.
func applyEnvAliases() error {
	if v, ok := os.LookupEnv(cacheTTLSecondsEnv); ok {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", cacheTTLSecondsEnv, v, err)
		}
		viper.SetDefault("cache.ttl", time.Duration(seconds)*time.Second)
	}

	if v, ok := os.LookupEnv(useRedisCacheEnv); ok {
		useRedis, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", useRedisCacheEnv, v, err)
		}
		if useRedis {
			viper.SetDefault("cache.backend", "redis")
		}
	}

	return nil
}

func run(_ *cobra.Command, _ []string) {
	config, err := ReadConfig()
	if err != nil {
		panic(err)
	}

	if err := config.Verify(); err != nil {
		panic(err)
	}

	logger := logger.MustNewLogger(config.Log.Format, config.Log.Level, config.Log.TimestampFormat)
	serverCtx := &ServerContext{Logger: logger}
	if err := serverCtx.Run(context.Background(), config); err != nil {
		panic(err)
	}
}

type ServerContext struct {
	Logger logger.Logger
}

// telemetryConfig returns the function that must be called to shut down tracing.
// The context provided to this function should be error-free, or shut down will be incomplete.
func (s *ServerContext) telemetryConfig(config *serverconfig.Config) func() error {
	if config.Trace.Enabled {
		s.Logger.Info(fmt.Sprintf("🕵 tracing enabled: sampling ratio is %v and sending traces to '%s', tls: %t", config.Trace.SampleRatio, config.Trace.OTLP.Endpoint, config.Trace.OTLP.TLS.Enabled))

		options := []telemetry.TracerOption{
			telemetry.WithOTLPEndpoint(
				config.Trace.OTLP.Endpoint,
			),
			telemetry.WithServiceName(config.Trace.ServiceName),
			telemetry.WithAttributes(
				semconv.ServiceInstanceIDKey.String(instanceID()),
				attribute.String("catalog.datastore.engine", config.Datastore.Engine),
			),
			telemetry.WithSamplingRatio(config.Trace.SampleRatio),
		}

		if !config.Trace.OTLP.TLS.Enabled {
			options = append(options, telemetry.WithOTLPInsecure())
		}

		tp := telemetry.MustNewTracerProvider(options...)
		return func() error {
			// the batch span processor may take up to 5 seconds to export
			ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
			defer cancel()
			return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
		}
	}
	otel.SetTracerProvider(noop.NewTracerProvider())
	return func() error {
		return nil
	}
}

func instanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return strconv.Itoa(os.Getpid())
	}
	return hostname + "-" + strconv.Itoa(os.Getpid())
}

func (s *ServerContext) datastoreConfig(config *serverconfig.Config) (storage.CatalogDatastore, error) {
	datastoreOptions := []sqlcommon.DatastoreOption{
		sqlcommon.WithUsername(config.Datastore.Username),
		sqlcommon.WithPassword(config.Datastore.Password),
		sqlcommon.WithLogger(s.Logger),
		sqlcommon.WithMaxOpenConns(config.Datastore.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(config.Datastore.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(config.Datastore.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(config.Datastore.ConnMaxLifetime),
	}

	if config.Datastore.Metrics.Enabled {
		datastoreOptions = append(datastoreOptions, sqlcommon.WithMetrics())
	}

	dsCfg := sqlcommon.NewConfig(datastoreOptions...)

	var datastore storage.CatalogDatastore
	var err error
	switch config.Datastore.Engine {
	case "memory":
		datastore = memory.New()
	case "neo4j":
		datastore, err = neo4j.New(config.Datastore.URI, neo4j.NewConfig(
			neo4j.WithUsername(config.Datastore.Username),
			neo4j.WithPassword(config.Datastore.Password),
			neo4j.WithDatabase(config.Datastore.Database),
			neo4j.WithLogger(s.Logger),
		))
		if err != nil {
			return nil, fmt.Errorf("initialize neo4j datastore: %w", err)
		}
	case "mysql":
		datastore, err = mysql.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize mysql datastore: %w", err)
		}
	case "postgres":
		datastore, err = postgres.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres datastore: %w", err)
		}
	case "sqlite":
		datastore, err = sqlite.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite datastore: %w", err)
		}
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", config.Datastore.Engine)
	}

	s.Logger.Info(fmt.Sprintf("using '%v' storage engine", config.Datastore.Engine))

	return datastore, nil
}

// cacheConfig returns the store backing the search cache, or nil when caching is off.
func (s *ServerContext) cacheConfig(config *serverconfig.Config) (cache.Store, error) {
	if !config.Cache.Enabled {
		s.Logger.Warn("search cache is disabled")
		return nil, nil
	}

	switch config.Cache.Backend {
	case "memory":
		s.Logger.Info("using 'memory' search cache", zap.Int64("max_entries", config.Cache.MaxEntries), zap.Duration("ttl", config.Cache.TTL))
		return cache.NewInMemoryLRU(cache.WithMaxEntries(config.Cache.MaxEntries)), nil
	case "redis":
		store, err := redis.New(
			redis.WithURL(config.Cache.Redis.URL),
			redis.WithNamespace(config.Cache.Redis.Namespace),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize redis search cache: %w", err)
		}
		s.Logger.Info("using 'redis' search cache", zap.String("namespace", config.Cache.Redis.Namespace), zap.Duration("ttl", config.Cache.TTL))
		return store, nil
	default:
		return nil, fmt.Errorf("cache backend '%s' is unsupported", config.Cache.Backend)
	}
}

func (s *ServerContext) authenticatorConfig(config *serverconfig.Config) (authn.Authenticator, error) {
	var authenticator authn.Authenticator
	var err error

	switch config.Authn.Method {
	case "none":
		authenticator = authn.NewDevAuthenticator(s.Logger)
	case "preshared":
		s.Logger.Info("using 'preshared' authentication")
		authenticator, err = presharedkey.NewPresharedKeyAuthenticator(config.Authn.Keys)
	case "oidc":
		s.Logger.Info("using 'oidc' authentication")
		issuers := append([]string{config.Authn.Issuer}, config.Authn.IssuerAliases...)
		authenticator, err = oidc.NewRemoteOidcAuthenticator(issuers, config.Authn.Audience, config.Authn.RequireVerifiedEmail)
	default:
		return nil, fmt.Errorf("unsupported authentication method '%v'", config.Authn.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authenticator: %w", err)
	}

	return authenticator, nil
}

func (s *ServerContext) runHTTPServer(ctx context.Context, config *serverconfig.Config, handler http.Handler) (*http.Server, error) {
	httpServer := &http.Server{
		Addr:              config.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	listener, err := net.Listen("tcp", config.HTTP.Addr)
	if err != nil {
		return nil, err
	}

	if config.HTTP.TLS != nil && config.HTTP.TLS.Enabled {
		httpGetCertificate, err := watchAndLoadCertificateWithCertWatcher(ctx, config.HTTP.TLS.CertPath, config.HTTP.TLS.KeyPath, s.Logger)
		if err != nil {
			_ = listener.Close()
			return nil, err
		}
		listener = tls.NewListener(listener, &tls.Config{
			GetCertificate: httpGetCertificate,
			MinVersion:     tls.VersionTLS12,
		})

		s.Logger.Info("HTTP TLS is enabled, serving connections using the provided certificate")
	} else {
		s.Logger.Warn("HTTP TLS is disabled, serving connections using insecure plaintext")
	}

	go func() {
		s.Logger.Info(fmt.Sprintf("🚀 starting HTTP server on '%s'...", listener.Addr().String()))
		if err := httpServer.Serve(listener); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Fatal("HTTP server closed with unexpected error", zap.Error(err))
			}
		}
		s.Logger.Info("HTTP server shut down.")
	}()
	return httpServer, nil
}

// Run starts the HTTP and metrics servers and blocks until ctx is cancelled or the
// process is signalled, then shuts everything down in reverse order.
func (s *ServerContext) Run(ctx context.Context, config *serverconfig.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProviderCloser := s.telemetryConfig(config)

	datastore, err := s.datastoreConfig(config)
	if err != nil {
		return err
	}
	defer datastore.Close()

	cacheStore, err := s.cacheConfig(config)
	if err != nil {
		return err
	}

	authenticator, err := s.authenticatorConfig(config)
	if err != nil {
		if cacheStore != nil {
			_ = cacheStore.Close()
		}
		return err
	}
	defer authenticator.Close()

	var metricsServer *http.Server
	if config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{Addr: config.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 30 * time.Second}

		go func() {
			s.Logger.Info(fmt.Sprintf("📈 starting prometheus metrics server on '%s'", config.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					s.Logger.Fatal("failed to start prometheus metrics server", zap.Error(err))
				}
			}
			s.Logger.Info("metrics server shut down.")
		}()
	}

	serverOpts := []server.CatalogServiceOption{
		server.WithDatastore(datastore),
		server.WithLogger(s.Logger),
		server.WithCacheEnabled(config.Cache.Enabled),
		server.WithRequestTimeout(config.RequestTimeout),
		server.WithMaxRecordsPerWrite(config.MaxRecordsPerWrite),
	}
	if cacheStore != nil {
		serverOpts = append(serverOpts,
			server.WithCacheStore(cacheStore),
			server.WithCacheTTL(config.Cache.TTL),
		)
	}

	svr, err := server.NewServerWithOpts(serverOpts...)
	if err != nil {
		if cacheStore != nil {
			_ = cacheStore.Close()
		}
		return err
	}

	s.Logger.Info(
		"starting catalog service...",
		zap.String("version", build.Version),
		zap.String("date", build.Date),
		zap.String("commit", build.Commit),
		zap.String("go-version", goruntime.Version()),
		zap.String("datastore", config.Datastore.Engine),
		zap.Bool("cache", config.Cache.Enabled),
		zap.String("authn", config.Authn.Method),
	)

	handler := httpapi.NewHandler(svr, authenticator,
		httpapi.WithLogger(s.Logger),
		httpapi.WithCORSAllowedOrigins(config.HTTP.CORSAllowedOrigins),
		httpapi.WithTracing(config.Trace.Enabled),
		httpapi.WithRequestTimeout(config.RequestTimeout),
	)

	httpServer, err := s.runHTTPServer(ctx, config, handler)
	if err != nil {
		svr.Close()
		return err
	}

	// wait for cancellation signal
	<-ctx.Done()
	s.Logger.Info("attempting to shutdown gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.Info("failed to shutdown the http server", zap.Error(err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			s.Logger.Info("failed to shutdown the prometheus metrics server", zap.Error(err))
		}
	}

	svr.Close()

	if err := tracerProviderCloser(); err != nil {
		s.Logger.Error("failed to shutdown tracing", zap.Error(err))
	}

	s.Logger.Info("server exited. goodbye 👋")

	return nil
}

func watchAndLoadCertificateWithCertWatcher(ctx context.Context, certPath, keyPath string, logger logger.Logger) (func(*tls.ClientHelloInfo) (*tls.Certificate, error), error) {
	log.SetLogger(logr.Discard())

	watcher, err := certwatcher.New(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create certwatcher: %w", err)
	}

	if err := watcher.ReadCertificate(); err != nil {
		return nil, fmt.Errorf("failed to load initial certificate: %w", err)
	}
	logger.Info("Initial TLS certificate loaded.", zap.String("certPath", certPath), zap.String("keyPath", keyPath))

	go func() {
		logger.Info("Starting certificate watcher...", zap.String("certPath", certPath), zap.String("keyPath", keyPath))
		if err := watcher.Start(ctx); err != nil {
			logger.Error("Certwatcher encountered an error", zap.Error(err))
		}
	}()

	return watcher.GetCertificate, nil
}

// NewDatastore opens the datastore selected by config.Datastore.
func NewDatastore(l logger.Logger, config *serverconfig.Config) (storage.CatalogDatastore, error) {
	s := &ServerContext{Logger: l}
	return s.datastoreConfig(config)
}
