package run

import (
	"github.com/spf13/cobra"

	"github.com/ontologymarket/catalog/cmd/util"
	serverconfig "github.com/ontologymarket/catalog/pkg/server/config"
)

// bindRunFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlags(command *cobra.Command) {
	defaultConfig := serverconfig.DefaultConfig()
	flags := command.Flags()

	flags.Int("max-records-per-write", defaultConfig.MaxRecordsPerWrite, "the maximum number of ontologies that can be added or deleted in one request")
	util.MustBindPFlag("maxRecordsPerWrite", flags.Lookup("max-records-per-write"))
	util.MustBindEnv("maxRecordsPerWrite", "CATALOG_MAX_RECORDS_PER_WRITE", "CATALOG_MAXRECORDSPERWRITE")

	flags.Duration("request-timeout", defaultConfig.RequestTimeout, "the timeout applied to every request that carries no deadline of its own")
	util.MustBindPFlag("requestTimeout", flags.Lookup("request-timeout"))
	util.MustBindEnv("requestTimeout", "CATALOG_REQUEST_TIMEOUT", "CATALOG_REQUESTTIMEOUT")

	flags.String("http-addr", defaultConfig.HTTP.Addr, "the host:port address to serve the HTTP server on")
	util.MustBindPFlag("http.addr", flags.Lookup("http-addr"))
	util.MustBindEnv("http.addr", "CATALOG_HTTP_ADDR")

	flags.Bool("http-tls-enabled", defaultConfig.HTTP.TLS.Enabled, "enable/disable transport layer security (TLS)")
	util.MustBindPFlag("http.tls.enabled", flags.Lookup("http-tls-enabled"))
	util.MustBindEnv("http.tls.enabled", "CATALOG_HTTP_TLS_ENABLED")

	flags.String("http-tls-cert", defaultConfig.HTTP.TLS.CertPath, "the (absolute) file path of the certificate to use for the TLS connection")
	util.MustBindPFlag("http.tls.cert", flags.Lookup("http-tls-cert"))
	util.MustBindEnv("http.tls.cert", "CATALOG_HTTP_TLS_CERT")

	flags.String("http-tls-key", defaultConfig.HTTP.TLS.KeyPath, "the (absolute) file path of the TLS key that should be used for the TLS connection")
	util.MustBindPFlag("http.tls.key", flags.Lookup("http-tls-key"))
	util.MustBindEnv("http.tls.key", "CATALOG_HTTP_TLS_KEY")

	command.MarkFlagsRequiredTogether("http-tls-enabled", "http-tls-cert", "http-tls-key")

	flags.StringSlice("http-cors-allowed-origins", defaultConfig.HTTP.CORSAllowedOrigins, "specifies the CORS allowed origins")
	util.MustBindPFlag("http.corsAllowedOrigins", flags.Lookup("http-cors-allowed-origins"))
	util.MustBindEnv("http.corsAllowedOrigins", "CATALOG_HTTP_CORS_ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS")

	flags.String("authn-method", defaultConfig.Authn.Method, "the authentication method to use ('none', 'oidc' or 'preshared')")
	util.MustBindPFlag("authn.method", flags.Lookup("authn-method"))
	util.MustBindEnv("authn.method", "CATALOG_AUTHN_METHOD")

	flags.StringSlice("authn-preshared-keys", defaultConfig.Authn.Keys, "one or more 'subject:key' pairs to use for authentication")
	util.MustBindPFlag("authn.preshared.keys", flags.Lookup("authn-preshared-keys"))
	util.MustBindEnv("authn.preshared.keys", "CATALOG_AUTHN_PRESHARED_KEYS")

	flags.String("authn-oidc-audience", defaultConfig.Authn.Audience, "the OIDC audience of the tokens being signed by the identity provider")
	util.MustBindPFlag("authn.oidc.audience", flags.Lookup("authn-oidc-audience"))
	util.MustBindEnv("authn.oidc.audience", "CATALOG_AUTHN_OIDC_AUDIENCE")

	flags.String("authn-oidc-issuer", defaultConfig.Authn.Issuer, "the OIDC issuer (identity provider) signing the tokens")
	util.MustBindPFlag("authn.oidc.issuer", flags.Lookup("authn-oidc-issuer"))
	util.MustBindEnv("authn.oidc.issuer", "CATALOG_AUTHN_OIDC_ISSUER")

	flags.StringSlice("authn-oidc-issuer-aliases", defaultConfig.Authn.IssuerAliases, "the OIDC issuer DNS aliases that will be accepted as valid when verifying the `iss` field of the JWTs.")
	util.MustBindPFlag("authn.oidc.issuerAliases", flags.Lookup("authn-oidc-issuer-aliases"))
	util.MustBindEnv("authn.oidc.issuerAliases", "CATALOG_AUTHN_OIDC_ISSUER_ALIASES")

	flags.Bool("authn-oidc-require-verified-email", defaultConfig.Authn.RequireVerifiedEmail, "reject tokens whose email_verified claim is not true")
	util.MustBindPFlag("authn.oidc.requireVerifiedEmail", flags.Lookup("authn-oidc-require-verified-email"))
	util.MustBindEnv("authn.oidc.requireVerifiedEmail", "CATALOG_AUTHN_OIDC_REQUIRE_VERIFIED_EMAIL")

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the datastore engine that will be used for persistence ('memory', 'neo4j', 'sqlite', 'postgres' or 'mysql')")
	util.MustBindPFlag("datastore.engine", flags.Lookup("datastore-engine"))
	util.MustBindEnv("datastore.engine", "CATALOG_DATASTORE_ENGINE")

	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri to use to connect to the datastore (for any engine other than 'memory')")
	util.MustBindPFlag("datastore.uri", flags.Lookup("datastore-uri"))
	util.MustBindEnv("datastore.uri", "CATALOG_DATASTORE_URI")

	flags.String("datastore-username", "", "the connection username to use to connect to the datastore (overwrites any username provided in the connection uri)")
	util.MustBindPFlag("datastore.username", flags.Lookup("datastore-username"))
	util.MustBindEnv("datastore.username", "CATALOG_DATASTORE_USERNAME")

	flags.String("datastore-password", "", "the connection password to use to connect to the datastore (overwrites any password provided in the connection uri)")
	util.MustBindPFlag("datastore.password", flags.Lookup("datastore-password"))
	util.MustBindEnv("datastore.password", "CATALOG_DATASTORE_PASSWORD")

	flags.String("datastore-database", defaultConfig.Datastore.Database, "the neo4j database holding the catalog graph")
	util.MustBindPFlag("datastore.database", flags.Lookup("datastore-database"))
	util.MustBindEnv("datastore.database", "CATALOG_DATASTORE_DATABASE")

	flags.Int("datastore-max-open-conns", defaultConfig.Datastore.MaxOpenConns, "the maximum number of open connections to the datastore")
	util.MustBindPFlag("datastore.maxOpenConns", flags.Lookup("datastore-max-open-conns"))
	util.MustBindEnv("datastore.maxOpenConns", "CATALOG_DATASTORE_MAX_OPEN_CONNS", "CATALOG_DATASTORE_MAXOPENCONNS")

	flags.Int("datastore-max-idle-conns", defaultConfig.Datastore.MaxIdleConns, "the maximum number of connections to the datastore in the idle connection pool")
	util.MustBindPFlag("datastore.maxIdleConns", flags.Lookup("datastore-max-idle-conns"))
	util.MustBindEnv("datastore.maxIdleConns", "CATALOG_DATASTORE_MAX_IDLE_CONNS", "CATALOG_DATASTORE_MAXIDLECONNS")

	flags.Duration("datastore-conn-max-idle-time", defaultConfig.Datastore.ConnMaxIdleTime, "the maximum amount of time a connection to the datastore may be idle")
	util.MustBindPFlag("datastore.connMaxIdleTime", flags.Lookup("datastore-conn-max-idle-time"))
	util.MustBindEnv("datastore.connMaxIdleTime", "CATALOG_DATASTORE_CONN_MAX_IDLE_TIME", "CATALOG_DATASTORE_CONNMAXIDLETIME")

	flags.Duration("datastore-conn-max-lifetime", defaultConfig.Datastore.ConnMaxLifetime, "the maximum amount of time a connection to the datastore may be reused")
	util.MustBindPFlag("datastore.connMaxLifetime", flags.Lookup("datastore-conn-max-lifetime"))
	util.MustBindEnv("datastore.connMaxLifetime", "CATALOG_DATASTORE_CONN_MAX_LIFETIME", "CATALOG_DATASTORE_CONNMAXLIFETIME")

	flags.Bool("datastore-metrics-enabled", defaultConfig.Datastore.Metrics.Enabled, "enable/disable sql metrics")
	util.MustBindPFlag("datastore.metrics.enabled", flags.Lookup("datastore-metrics-enabled"))
	util.MustBindEnv("datastore.metrics.enabled", "CATALOG_DATASTORE_METRICS_ENABLED")

	flags.Bool("cache-enabled", defaultConfig.Cache.Enabled, "enable/disable the search result cache")
	util.MustBindPFlag("cache.enabled", flags.Lookup("cache-enabled"))
	util.MustBindEnv("cache.enabled", "CATALOG_CACHE_ENABLED", "CACHE_ENABLED")

	flags.String("cache-backend", defaultConfig.Cache.Backend, "the search cache backend ('memory' or 'redis')")
	util.MustBindPFlag("cache.backend", flags.Lookup("cache-backend"))
	util.MustBindEnv("cache.backend", "CATALOG_CACHE_BACKEND")

	flags.Duration("cache-ttl", defaultConfig.Cache.TTL, "how long a cached search page stays valid")
	util.MustBindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
	util.MustBindEnv("cache.ttl", "CATALOG_CACHE_TTL")

	flags.Int64("cache-max-entries", defaultConfig.Cache.MaxEntries, "the maximum number of search pages held by the 'memory' cache backend")
	util.MustBindPFlag("cache.maxEntries", flags.Lookup("cache-max-entries"))
	util.MustBindEnv("cache.maxEntries", "CATALOG_CACHE_MAX_ENTRIES", "CATALOG_CACHE_MAXENTRIES", "CACHE_MAX_SIZE")

	flags.String("cache-redis-url", defaultConfig.Cache.Redis.URL, "the redis url used by the 'redis' cache backend")
	util.MustBindPFlag("cache.redis.url", flags.Lookup("cache-redis-url"))
	util.MustBindEnv("cache.redis.url", "CATALOG_CACHE_REDIS_URL", "REDIS_URL")

	flags.String("cache-redis-namespace", defaultConfig.Cache.Redis.Namespace, "the key prefix of the search pages stored in redis")
	util.MustBindPFlag("cache.redis.namespace", flags.Lookup("cache-redis-namespace"))
	util.MustBindEnv("cache.redis.namespace", "CATALOG_CACHE_REDIS_NAMESPACE")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")
	util.MustBindPFlag("log.format", flags.Lookup("log-format"))
	util.MustBindEnv("log.format", "CATALOG_LOG_FORMAT")

	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")
	util.MustBindPFlag("log.level", flags.Lookup("log-level"))
	util.MustBindEnv("log.level", "CATALOG_LOG_LEVEL")

	flags.String("log-timestamp-format", defaultConfig.Log.TimestampFormat, "the timestamp format to use for log messages")
	util.MustBindPFlag("log.timestampFormat", flags.Lookup("log-timestamp-format"))
	util.MustBindEnv("log.timestampFormat", "CATALOG_LOG_TIMESTAMP_FORMAT")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	util.MustBindPFlag("trace.enabled", flags.Lookup("trace-enabled"))
	util.MustBindEnv("trace.enabled", "CATALOG_TRACE_ENABLED")

	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLP.Endpoint, "the endpoint of the trace collector")
	util.MustBindPFlag("trace.otlp.endpoint", flags.Lookup("trace-otlp-endpoint"))
	util.MustBindEnv("trace.otlp.endpoint", "CATALOG_TRACE_OTLP_ENDPOINT")

	flags.Bool("trace-otlp-tls-enabled", defaultConfig.Trace.OTLP.TLS.Enabled, "use TLS connection for trace collector")
	util.MustBindPFlag("trace.otlp.tls.enabled", flags.Lookup("trace-otlp-tls-enabled"))
	util.MustBindEnv("trace.otlp.tls.enabled", "CATALOG_TRACE_OTLP_TLS_ENABLED")

	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none.")
	util.MustBindPFlag("trace.sampleRatio", flags.Lookup("trace-sample-ratio"))
	util.MustBindEnv("trace.sampleRatio", "CATALOG_TRACE_SAMPLE_RATIO")

	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces.")
	util.MustBindPFlag("trace.serviceName", flags.Lookup("trace-service-name"))
	util.MustBindEnv("trace.serviceName", "CATALOG_TRACE_SERVICE_NAME")

	flags.Bool("metrics-enabled", defaultConfig.Metrics.Enabled, "enable/disable prometheus metrics on the '/metrics' endpoint")
	util.MustBindPFlag("metrics.enabled", flags.Lookup("metrics-enabled"))
	util.MustBindEnv("metrics.enabled", "CATALOG_METRICS_ENABLED")

	flags.String("metrics-addr", defaultConfig.Metrics.Addr, "the host:port address to serve the prometheus metrics server on")
	util.MustBindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	util.MustBindEnv("metrics.addr", "CATALOG_METRICS_ADDR")
}
