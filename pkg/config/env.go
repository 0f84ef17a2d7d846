package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "WAYFARER_APP_ENV"
	EnvPort     = "WAYFARER_APP_PORT"
	EnvLogLevel = "WAYFARER_LOG_LEVEL"

	EnvDBDSN  = "WAYFARER_DB_DSN"
	EnvDBHost = "WAYFARER_DB_HOST"
	EnvDBUser = "WAYFARER_DB_USER"
	EnvDBName = "WAYFARER_DB_NAME"

	EnvMongoURI = "WAYFARER_MONGO_URI"
	EnvRedisURL = "WAYFARER_REDIS_URL"

	EnvJWTSecret = "WAYFARER_JWT_SECRET"
	EnvJWTIssuer = "WAYFARER_JWT_ISSUER"

	EnvPaymentDelay         = "WAYFARER_PAYMENT_DELAY"
	EnvPaymentLockTTL       = "WAYFARER_PAYMENT_LOCK_TTL"
	EnvOpeningWalletBalance = "WAYFARER_OPENING_WALLET_BALANCE"
	EnvPromoCode            = "WAYFARER_PROMO_CODE"
	EnvPromoPercent         = "WAYFARER_PROMO_PERCENT"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
