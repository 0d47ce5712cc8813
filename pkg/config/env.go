package config

// EnvPrefix is handed to envconfig; every field carries its full name explicitly.
const EnvPrefix = "CLIPS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PaymentAnchorNow         = "now"
	PaymentAnchorPurchasedAt = "purchased_at"
)

const (
	EnvAppEnv      = "CLIPS_APP_ENV"
	EnvPort        = "CLIPS_APP_PORT"
	EnvLogLevel    = "CLIPS_LOG_LEVEL"
	EnvDBDSN       = "CLIPS_DB_DSN"
	EnvDBHost      = "CLIPS_DB_HOST"
	EnvDBPort      = "CLIPS_DB_PORT"
	EnvDBUser      = "CLIPS_DB_USER"
	EnvDBPassword  = "CLIPS_DB_PASSWORD"
	EnvDBName      = "CLIPS_DB_NAME"
	EnvRedisURL    = "CLIPS_REDIS_URL"
	EnvJWTSecret   = "CLIPS_JWT_SECRET"
	EnvJWTIssuer   = "CLIPS_JWT_ISSUER"
	EnvJWTExpMins  = "CLIPS_JWT_EXPIRATION_MINUTES"
	EnvGCPProject  = "CLIPS_GCP_PROJECT_ID"
	EnvClipsTopic  = "CLIPS_PUBSUB_CLIPS_TOPIC"
	EnvCronEvery   = "CLIPS_CRON_INTERVAL"
	EnvAutoMigrate = "CLIPS_AUTO_MIGRATE"

	EnvLedgerPaymentAnchor = "CLIPS_LEDGER_PAYMENT_ANCHOR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
