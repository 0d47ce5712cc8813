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
	Ledger       LedgerConfig
	Cron         CronConfig
	ApplyLimit   ApplyRateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	BigQuery     BigQueryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CLIPS_APP_ENV" required:"true"`
	Port         string   `envconfig:"CLIPS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"CLIPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CLIPS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CLIPS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CLIPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CLIPS_DB_DSN"`
	Driver string `envconfig:"CLIPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLIPS_DB_HOST"`
	LegacyPort     int    `envconfig:"CLIPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLIPS_DB_USER"`
	LegacyPassword string `envconfig:"CLIPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLIPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLIPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLIPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLIPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLIPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLIPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CLIPS_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLIPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLIPS_REDIS_ADDR"`
	Password     string        `envconfig:"CLIPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLIPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLIPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLIPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLIPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLIPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLIPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CLIPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CLIPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CLIPS_JWT_EXPIRATION_MINUTES" required:"true"`
	LeewaySeconds     int    `envconfig:"CLIPS_JWT_LEEWAY_SECONDS" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CLIPS_AUTO_MIGRATE" default:"false"`
}

// LedgerConfig tunes the clip ledger transitions.
type LedgerConfig struct {
	// PaymentAnchor picks the date a received payment restarts the plan window from.
	PaymentAnchor string        `envconfig:"CLIPS_LEDGER_PAYMENT_ANCHOR" default:"now"`
	SweepTimeout  time.Duration `envconfig:"CLIPS_LEDGER_SWEEP_TIMEOUT" default:"5s"`
}

func (l LedgerConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.PaymentAnchor)) {
	case PaymentAnchorNow, PaymentAnchorPurchasedAt:
		return nil
	}
	return fmt.Errorf("%s must be one of %q or %q", EnvLedgerPaymentAnchor, PaymentAnchorNow, PaymentAnchorPurchasedAt)
}

// CronConfig sets the cadence of each maintenance job. Interval drives the
// clip expiry sweep.
type CronConfig struct {
	Interval          time.Duration `envconfig:"CLIPS_CRON_INTERVAL" default:"1h"`
	ExpiryBatchSize   int           `envconfig:"CLIPS_CRON_EXPIRY_BATCH_SIZE" default:"200"`
	RetentionInterval time.Duration `envconfig:"CLIPS_CRON_RETENTION_INTERVAL" default:"24h"`
	OutboxRetention   time.Duration `envconfig:"CLIPS_CRON_OUTBOX_RETENTION" default:"720h"`
	MetricsAddr       string        `envconfig:"CLIPS_CRON_METRICS_ADDR" default:":9102"`
}

// ApplyRateLimitConfig bounds how fast one business can spend clips.
type ApplyRateLimitConfig struct {
	Window time.Duration `envconfig:"CLIPS_APPLY_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"CLIPS_APPLY_RATE_LIMIT" default:"30"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CLIPS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CLIPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CLIPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ClipsTopic        string        `envconfig:"CLIPS_PUBSUB_CLIPS_TOPIC" default:"clips-ledger-events"`
	ClipsSubscription string        `envconfig:"CLIPS_PUBSUB_CLIPS_SUBSCRIPTION"`
	EmulatorHost      string        `envconfig:"CLIPS_PUBSUB_EMULATOR_HOST"`
	AutoCreate        bool          `envconfig:"CLIPS_PUBSUB_AUTO_CREATE" default:"false"`
	AckDeadline       time.Duration `envconfig:"CLIPS_PUBSUB_ACK_DEADLINE" default:"60s"`
	MaxOutstanding    int           `envconfig:"CLIPS_PUBSUB_MAX_OUTSTANDING" default:"100"`
}

type EventingConfig struct {
	ProcessedTTL time.Duration `envconfig:"CLIPS_EVENTING_PROCESSED_TTL" default:"720h"`
	MetricsAddr  string        `envconfig:"CLIPS_EVENTING_METRICS_ADDR" default:":9104"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"CLIPS_BIGQUERY_DATASET" default:"clips"`
	ClipEventsTable string `envconfig:"CLIPS_BIGQUERY_CLIP_EVENTS_TABLE" default:"clip_events"`
	AutoCreate      bool   `envconfig:"CLIPS_BIGQUERY_AUTO_CREATE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"CLIPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"CLIPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"CLIPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"CLIPS_OUTBOX_METRICS_ADDR" default:":9103"`
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
