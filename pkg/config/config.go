package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	BigQuery     BigQueryConfig
	PubSub       PubSubConfig
	Attribution  AttributionConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	source := c.Attribution.Source()
	switch source {
	case EventSourcePostgres:
	case EventSourceBigQuery:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required when the event source is %s", EnvGCPProjectID, EventSourceBigQuery)
		}
	default:
		return fmt.Errorf("unsupported attribution event source %q", c.Attribution.EventSource)
	}
	if c.Attribution.HalfLifeDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvAttributionHalfLifeDays)
	}
	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"SPONSORLENS_APP_ENV" required:"true"`
	Port         string   `envconfig:"SPONSORLENS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SPONSORLENS_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"SPONSORLENS_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"SPONSORLENS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SPONSORLENS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SPONSORLENS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SPONSORLENS_DB_DSN"`
	Driver string `envconfig:"SPONSORLENS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPONSORLENS_DB_HOST"`
	LegacyPort     int    `envconfig:"SPONSORLENS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPONSORLENS_DB_USER"`
	LegacyPassword string `envconfig:"SPONSORLENS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPONSORLENS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPONSORLENS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPONSORLENS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPONSORLENS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPONSORLENS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPONSORLENS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPONSORLENS_REDIS_URL"`
	Address      string        `envconfig:"SPONSORLENS_REDIS_ADDR"`
	Password     string        `envconfig:"SPONSORLENS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPONSORLENS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPONSORLENS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPONSORLENS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPONSORLENS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPONSORLENS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPONSORLENS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"SPONSORLENS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPONSORLENS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SPONSORLENS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"SPONSORLENS_AUTO_MIGRATE" default:"false"`
	PublishResults  bool `envconfig:"SPONSORLENS_FEATURE_PUBLISH_RESULTS" default:"false"`
	CacheLatestRuns bool `envconfig:"SPONSORLENS_FEATURE_CACHE_LATEST" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SPONSORLENS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SPONSORLENS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SPONSORLENS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type BigQueryConfig struct {
	Dataset               string `envconfig:"SPONSORLENS_BIGQUERY_DATASET" default:"sponsorlens"`
	TouchpointEventsTable string `envconfig:"SPONSORLENS_BIGQUERY_TOUCHPOINT_TABLE" default:"touchpoint_events"`
}

type PubSubConfig struct {
	AttributionTopic string `envconfig:"SPONSORLENS_PUBSUB_ATTRIBUTION_TOPIC" default:"sl-attribution-events"`
}

type AttributionConfig struct {
	EventSource     string        `envconfig:"SPONSORLENS_ATTRIBUTION_EVENT_SOURCE" default:"postgres"`
	HalfLifeDays    float64       `envconfig:"SPONSORLENS_ATTRIBUTION_HALF_LIFE_DAYS" default:"7"`
	QueryTimeout    time.Duration `envconfig:"SPONSORLENS_ATTRIBUTION_QUERY_TIMEOUT" default:"30s"`
	ResultCacheTTL  time.Duration `envconfig:"SPONSORLENS_ATTRIBUTION_RESULT_CACHE_TTL" default:"15m"`
	RefreshLookback time.Duration `envconfig:"SPONSORLENS_ATTRIBUTION_REFRESH_LOOKBACK" default:"720h"`
}

// Source returns the normalized event source kind.
func (a AttributionConfig) Source() string {
	source := strings.ToLower(strings.TrimSpace(a.EventSource))
	if source == "" {
		return EventSourcePostgres
	}
	return source
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SPONSORLENS_CRON_INTERVAL" default:"6h"`
	LockTTL  time.Duration `envconfig:"SPONSORLENS_CRON_LOCK_TTL" default:"5h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
