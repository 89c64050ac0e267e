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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Schema       SchemaConfig
	Orders       OrdersConfig
	Idempotency  IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CASEFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"CASEFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CASEFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CASEFLOW_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated list of browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"CASEFLOW_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CASEFLOW_DB_DSN"`
	Driver string `envconfig:"CASEFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CASEFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"CASEFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CASEFLOW_DB_USER"`
	LegacyPassword string `envconfig:"CASEFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"CASEFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"CASEFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASEFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASEFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASEFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASEFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"CASEFLOW_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CASEFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CASEFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"CASEFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"CASEFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CASEFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASEFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASEFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASEFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CASEFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CASEFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CASEFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CASEFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CASEFLOW_AUTO_MIGRATE" default:"false"`
}

// SchemaConfig controls the startup schema contract check.
type SchemaConfig struct {
	// RequireOrderMetadata fails startup when the optional order metadata columns are missing.
	RequireOrderMetadata bool `envconfig:"CASEFLOW_SCHEMA_REQUIRE_ORDER_METADATA" default:"false"`
}

type OrdersConfig struct {
	MaxLines             int  `envconfig:"CASEFLOW_ORDERS_MAX_LINES" default:"200"`
	AllowCatalogRecovery bool `envconfig:"CASEFLOW_ORDERS_ALLOW_CATALOG_RECOVERY" default:"false"`
	// RateLimitPerMinute caps order submissions per user and tenant. Zero disables the limiter.
	RateLimitPerMinute int64 `envconfig:"CASEFLOW_ORDERS_RATE_LIMIT_PER_MINUTE" default:"30"`
}

func (o OrdersConfig) validate() error {
	if o.MaxLines <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersMaxLines)
	}
	if o.RateLimitPerMinute < 0 {
		return fmt.Errorf("%s must not be negative", EnvOrdersRateLimit)
	}
	return nil
}

type IdempotencyConfig struct {
	OrdersTTL time.Duration `envconfig:"CASEFLOW_IDEMPOTENCY_ORDERS_TTL" default:"168h"`
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
