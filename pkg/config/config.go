package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	AI        AIConfig
	Images    ImagesConfig
	Places    PlacesConfig
	SMTP      SMTPConfig
	Booking   BookingConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Booking.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"WAYFARER_APP_ENV" required:"true"`
	Port         string   `envconfig:"WAYFARER_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"WAYFARER_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"WAYFARER_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"WAYFARER_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool     `envconfig:"WAYFARER_AUTO_MIGRATE" default:"false"`
	CORSOrigins  []string `envconfig:"WAYFARER_CORS_ORIGINS" default:"http://localhost:3000"`
	MetricsPort  string   `envconfig:"WAYFARER_METRICS_PORT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WAYFARER_DB_DSN"`
	Driver string `envconfig:"WAYFARER_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"WAYFARER_DB_HOST"`
	Port     int    `envconfig:"WAYFARER_DB_PORT" default:"5432"`
	User     string `envconfig:"WAYFARER_DB_USER"`
	Password string `envconfig:"WAYFARER_DB_PASSWORD"`
	Name     string `envconfig:"WAYFARER_DB_NAME"`
	SSLMode  string `envconfig:"WAYFARER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WAYFARER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WAYFARER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WAYFARER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WAYFARER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type MongoConfig struct {
	URI            string        `envconfig:"WAYFARER_MONGO_URI" required:"true"`
	Database       string        `envconfig:"WAYFARER_MONGO_DATABASE" default:"wayfarer"`
	ConnectTimeout time.Duration `envconfig:"WAYFARER_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WAYFARER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WAYFARER_REDIS_ADDR"`
	Password     string        `envconfig:"WAYFARER_REDIS_PASSWORD"`
	DB           int           `envconfig:"WAYFARER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WAYFARER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WAYFARER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WAYFARER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WAYFARER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WAYFARER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"WAYFARER_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"WAYFARER_JWT_ISSUER" required:"true"`
}

type RateLimitConfig struct {
	Window         time.Duration `envconfig:"WAYFARER_RATE_LIMIT_WINDOW" default:"1m"`
	GenerateLimit  int           `envconfig:"WAYFARER_RATE_LIMIT_GENERATE" default:"10"`
	AssistantLimit int           `envconfig:"WAYFARER_RATE_LIMIT_ASSISTANT" default:"30"`
}

type AIConfig struct {
	APIKey          string        `envconfig:"WAYFARER_AI_API_KEY"`
	Model           string        `envconfig:"WAYFARER_AI_MODEL" default:"gemini-1.5-flash"`
	BaseURL         string        `envconfig:"WAYFARER_AI_BASE_URL"`
	Timeout         time.Duration `envconfig:"WAYFARER_AI_TIMEOUT" default:"60s"`
	DefaultCurrency string        `envconfig:"WAYFARER_AI_DEFAULT_CURRENCY" default:"INR"`
}

type ImagesConfig struct {
	AccessKey string `envconfig:"WAYFARER_IMAGES_ACCESS_KEY"`
	BaseURL   string `envconfig:"WAYFARER_IMAGES_BASE_URL"`
}

type PlacesConfig struct {
	APIKey   string        `envconfig:"WAYFARER_PLACES_API_KEY"`
	BaseURL  string        `envconfig:"WAYFARER_PLACES_BASE_URL"`
	CacheTTL time.Duration `envconfig:"WAYFARER_PLACES_CACHE_TTL" default:"24h"`
}

type SMTPConfig struct {
	Host     string `envconfig:"WAYFARER_SMTP_HOST"`
	Port     int    `envconfig:"WAYFARER_SMTP_PORT" default:"587"`
	Username string `envconfig:"WAYFARER_SMTP_USERNAME"`
	Password string `envconfig:"WAYFARER_SMTP_PASSWORD"`
	From     string `envconfig:"WAYFARER_SMTP_FROM" default:"bookings@wayfarer.travel"`
}

// Enabled reports whether outbound mail is configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type BookingConfig struct {
	PaymentDelay         time.Duration `envconfig:"WAYFARER_PAYMENT_DELAY" default:"2s"`
	PaymentLockTTL       time.Duration `envconfig:"WAYFARER_PAYMENT_LOCK_TTL" default:"2m"`
	OpeningWalletBalance string        `envconfig:"WAYFARER_OPENING_WALLET_BALANCE" default:"185000"`
	PromoCode            string        `envconfig:"WAYFARER_PROMO_CODE" default:"TRAVEL2024"`
	PromoPercent         string        `envconfig:"WAYFARER_PROMO_PERCENT" default:"10"`
	SessionTTL           time.Duration `envconfig:"WAYFARER_BOOKING_SESSION_TTL" default:"2h"`
	IdempotencyTTL       time.Duration `envconfig:"WAYFARER_IDEMPOTENCY_TTL" default:"24h"`
	PaymentLinkBaseURL   string        `envconfig:"WAYFARER_PAYMENT_LINK_BASE_URL" default:"https://pay.wayfarer.travel/split"`
}

// OpeningBalance returns the credit granted to a wallet on first read.
func (b BookingConfig) OpeningBalance() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(b.OpeningWalletBalance))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// PromoRate returns the promo percentage as a fraction of base cost.
func (b BookingConfig) PromoRate() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(b.PromoPercent))
	if err != nil {
		return decimal.Zero
	}
	return v.Div(decimal.NewFromInt(100))
}

func (b BookingConfig) validate() error {
	if _, err := decimal.NewFromString(strings.TrimSpace(b.OpeningWalletBalance)); err != nil {
		return fmt.Errorf("%s must be numeric: %w", EnvOpeningWalletBalance, err)
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(b.PromoPercent))
	if err != nil {
		return fmt.Errorf("%s must be numeric: %w", EnvPromoPercent, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvPromoPercent)
	}
	if b.PaymentDelay < 0 {
		return fmt.Errorf("%s must not be negative", EnvPaymentDelay)
	}
	if b.PaymentLockTTL <= b.PaymentDelay {
		return fmt.Errorf("%s must be longer than %s", EnvPaymentLockTTL, EnvPaymentDelay)
	}
	return nil
}

type GCPConfig struct {
	ProjectID       string `envconfig:"WAYFARER_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"WAYFARER_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"WAYFARER_PUBSUB_BOOKING_TOPIC" default:"wf-booking-events"`
	BookingSubscription string `envconfig:"WAYFARER_PUBSUB_BOOKING_SUBSCRIPTION" default:"wf-booking-events-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WAYFARER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WAYFARER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WAYFARER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll milliseconds into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
