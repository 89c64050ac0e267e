package config

// EnvPrefix is the envconfig prefix for every setting.
const EnvPrefix = "CASEFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "CASEFLOW_APP_ENV"
	EnvPort     = "CASEFLOW_APP_PORT"
	EnvLogLevel = "CASEFLOW_LOG_LEVEL"

	EnvDBDSN  = "CASEFLOW_DB_DSN"
	EnvDBHost = "CASEFLOW_DB_HOST"
	EnvDBUser = "CASEFLOW_DB_USER"
	EnvDBName = "CASEFLOW_DB_NAME"

	EnvRedisURL = "CASEFLOW_REDIS_URL"

	EnvJWTSecret  = "CASEFLOW_JWT_SECRET"
	EnvJWTIssuer  = "CASEFLOW_JWT_ISSUER"
	EnvJWTExpMins = "CASEFLOW_JWT_EXPIRATION_MINUTES"

	EnvRequireOrderMetadata = "CASEFLOW_SCHEMA_REQUIRE_ORDER_METADATA"
	EnvOrdersMaxLines       = "CASEFLOW_ORDERS_MAX_LINES"
	EnvAllowCatalogRecovery = "CASEFLOW_ORDERS_ALLOW_CATALOG_RECOVERY"
	EnvOrdersRateLimit      = "CASEFLOW_ORDERS_RATE_LIMIT_PER_MINUTE"
)

// legacyDBEnvVars must all be set when no DSN is given.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
