package config

const EnvPrefix = "SPONSORLENS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EventSourcePostgres = "postgres"
	EventSourceBigQuery = "bigquery"
)

const (
	EnvAppEnv                  = "SPONSORLENS_APP_ENV"
	EnvPort                    = "SPONSORLENS_APP_PORT"
	EnvDBDSN                   = "SPONSORLENS_DB_DSN"
	EnvDBHost                  = "SPONSORLENS_DB_HOST"
	EnvDBUser                  = "SPONSORLENS_DB_USER"
	EnvDBPassword              = "SPONSORLENS_DB_PASSWORD"
	EnvDBName                  = "SPONSORLENS_DB_NAME"
	EnvRedisURL                = "SPONSORLENS_REDIS_URL"
	EnvJWTSecret               = "SPONSORLENS_JWT_SECRET"
	EnvJWTIssuer               = "SPONSORLENS_JWT_ISSUER"
	EnvGCPProjectID            = "SPONSORLENS_GCP_PROJECT_ID"
	EnvAttributionEventSource  = "SPONSORLENS_ATTRIBUTION_EVENT_SOURCE"
	EnvAttributionHalfLifeDays = "SPONSORLENS_ATTRIBUTION_HALF_LIFE_DAYS"
	EnvAttributionCacheTTL     = "SPONSORLENS_ATTRIBUTION_RESULT_CACHE_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
