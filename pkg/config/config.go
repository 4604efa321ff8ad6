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
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	TaxProvider  TaxProviderConfig
	Tax          TaxConfig
	Reporting    ReportingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"VENDORTAX_APP_ENV" required:"true"`
	Port         string   `envconfig:"VENDORTAX_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"VENDORTAX_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"VENDORTAX_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"VENDORTAX_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDORTAX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORTAX_DB_DSN"`
	Driver string `envconfig:"VENDORTAX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORTAX_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORTAX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORTAX_DB_USER"`
	LegacyPassword string `envconfig:"VENDORTAX_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORTAX_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORTAX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORTAX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORTAX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORTAX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORTAX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORTAX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORTAX_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORTAX_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORTAX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORTAX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORTAX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORTAX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORTAX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORTAX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDORTAX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDORTAX_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDORTAX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VENDORTAX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDORTAX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ReportingTopic        string `envconfig:"VENDORTAX_PUBSUB_REPORTING_TOPIC" default:"vt-refund-reporting"`
	ReportingSubscription string `envconfig:"VENDORTAX_PUBSUB_REPORTING_SUBSCRIPTION" required:"true"`
}

type TaxProviderConfig struct {
	BaseURL  string        `envconfig:"VENDORTAX_TAX_PROVIDER_BASE_URL" required:"true"`
	APIToken string        `envconfig:"VENDORTAX_TAX_PROVIDER_API_TOKEN" required:"true"`
	Timeout  time.Duration `envconfig:"VENDORTAX_TAX_PROVIDER_TIMEOUT" default:"10s"`
}

type TaxConfig struct {
	CacheTTL time.Duration `envconfig:"VENDORTAX_TAX_CACHE_TTL" default:"336h"`
}

type ReportingConfig struct {
	BatchSize     int           `envconfig:"VENDORTAX_REPORTING_BATCH_SIZE" default:"50"`
	MaxAttempts   int           `envconfig:"VENDORTAX_REPORTING_MAX_ATTEMPTS" default:"3"`
	RetryCooldown time.Duration `envconfig:"VENDORTAX_REPORTING_RETRY_COOLDOWN" default:"24h"`
	CronInterval  time.Duration `envconfig:"VENDORTAX_REPORTING_CRON_INTERVAL" default:"24h"`
	APITokenRef   string        `envconfig:"VENDORTAX_REPORTING_API_TOKEN_REF" default:"taxprovider"`
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
