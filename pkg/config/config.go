package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	LoginThrottle LoginThrottleConfig
	AuthRateLimit AuthRateLimitConfig
	Session       SessionConfig
	FeatureFlags  FeatureFlagsConfig
	Paystack      PaystackConfig
	SMTP          SMTPConfig
	Kafka         KafkaConfig
	Storefront    StorefrontConfig
	Maintenance   MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Paystack.validate(cfg.App); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string   `envconfig:"SPENDO_APP_ENV" required:"true"`
	Port          string   `envconfig:"SPENDO_APP_PORT" required:"true"`
	PublicBaseURL string   `envconfig:"SPENDO_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	CORSOrigins   []string `envconfig:"SPENDO_CORS_ORIGINS" default:"http://localhost:3000"`
	LogLevel      string   `envconfig:"SPENDO_LOG_LEVEL" default:"info"`
	LogWarnStack  bool     `envconfig:"SPENDO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SPENDO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SPENDO_DB_DSN"`
	Driver string `envconfig:"SPENDO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SPENDO_DB_HOST"`
	Port     int    `envconfig:"SPENDO_DB_PORT" default:"5432"`
	User     string `envconfig:"SPENDO_DB_USER"`
	Password string `envconfig:"SPENDO_DB_PASSWORD"`
	Name     string `envconfig:"SPENDO_DB_NAME"`
	SSLMode  string `envconfig:"SPENDO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPENDO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPENDO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPENDO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPENDO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPENDO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPENDO_REDIS_ADDR"`
	Password     string        `envconfig:"SPENDO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPENDO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPENDO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPENDO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPENDO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPENDO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPENDO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SPENDO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPENDO_JWT_ISSUER" default:"spendo"`
	ExpirationMinutes int    `envconfig:"SPENDO_JWT_EXPIRATION_MINUTES" default:"120"`
	SessionTTLMinutes int    `envconfig:"SPENDO_SESSION_TTL_MINUTES" default:"10080"`
}

// SessionTTL returns how long a login session stays valid in redis.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	MinLength        int `envconfig:"SPENDO_PASSWORD_MIN_LENGTH" default:"8"`
	ArgonMemoryKB    int `envconfig:"SPENDO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SPENDO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SPENDO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SPENDO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SPENDO_ARGON_KEY_LEN" default:"32"`
}

// LoginThrottleConfig drives the per-IP login attempt window kept in the database.
type LoginThrottleConfig struct {
	MaxAttempts int           `envconfig:"SPENDO_LOGIN_MAX_ATTEMPTS" default:"5"`
	Window      time.Duration `envconfig:"SPENDO_LOGIN_LOCKOUT_WINDOW" default:"300s"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SPENDO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SPENDO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"10"`
	LoginIPLimit       int           `envconfig:"SPENDO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"30"`
	RegisterWindow     time.Duration `envconfig:"SPENDO_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SPENDO_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SPENDO_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// SessionConfig covers the guest cookie and CSRF protection on storefront routes.
type SessionConfig struct {
	CookieSecret string        `envconfig:"SPENDO_SESSION_COOKIE_SECRET" required:"true"`
	CookieName   string        `envconfig:"SPENDO_SESSION_COOKIE_NAME" default:"spendo_guest"`
	CookieMaxAge time.Duration `envconfig:"SPENDO_SESSION_COOKIE_MAX_AGE" default:"168h"`
	Secure       bool          `envconfig:"SPENDO_SESSION_SECURE" default:"true"`
	CSRFEnabled  bool          `envconfig:"SPENDO_CSRF_ENABLED" default:"true"`
	CSRFKey      string        `envconfig:"SPENDO_CSRF_KEY"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SPENDO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SPENDO_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"SPENDO_PAYSTACK_SECRET_KEY"`
	WebhookSecret string        `envconfig:"SPENDO_PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"SPENDO_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackPath  string        `envconfig:"SPENDO_PAYSTACK_CALLBACK_PATH" default:"/api/v1/payments/callback"`
	Timeout       time.Duration `envconfig:"SPENDO_PAYSTACK_TIMEOUT" default:"15s"`
}

// WebhookSigningSecret falls back to the API secret key, which is what Paystack signs with.
func (p PaystackConfig) WebhookSigningSecret() string {
	if strings.TrimSpace(p.WebhookSecret) != "" {
		return p.WebhookSecret
	}
	return p.SecretKey
}

func (p PaystackConfig) validate(app AppConfig) error {
	if app.IsProd() && strings.TrimSpace(p.SecretKey) == "" {
		return fmt.Errorf("%s is required in production", EnvPaystackSecretKey)
	}
	return nil
}

type SMTPConfig struct {
	Host       string `envconfig:"SPENDO_SMTP_HOST"`
	Port       int    `envconfig:"SPENDO_SMTP_PORT" default:"587"`
	Username   string `envconfig:"SPENDO_SMTP_USERNAME"`
	Password   string `envconfig:"SPENDO_SMTP_PASSWORD"`
	From       string `envconfig:"SPENDO_SMTP_FROM" default:"Spendo <no-reply@spendo.local>"`
	AdminEmail string `envconfig:"SPENDO_ADMIN_EMAIL"`
}

// Enabled reports whether an SMTP relay has been configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type KafkaConfig struct {
	Brokers    []string `envconfig:"SPENDO_KAFKA_BROKERS"`
	OrderTopic string   `envconfig:"SPENDO_KAFKA_ORDER_TOPIC" default:"spendo.orders"`
	ClientID   string   `envconfig:"SPENDO_KAFKA_CLIENT_ID" default:"spendo-api"`
}

// Enabled reports whether order events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type StorefrontConfig struct {
	Currency         string        `envconfig:"SPENDO_CURRENCY" default:"GHS"`
	AdminPageSize    int           `envconfig:"SPENDO_ADMIN_PAGE_SIZE" default:"15"`
	PasswordResetTTL time.Duration `envconfig:"SPENDO_PASSWORD_RESET_TTL" default:"1h"`
	GuestCartTTL     time.Duration `envconfig:"SPENDO_GUEST_CART_TTL" default:"168h"`
}

type MaintenanceConfig struct {
	Interval         time.Duration `envconfig:"SPENDO_MAINTENANCE_INTERVAL" default:"1h"`
	PaymentIntentTTL time.Duration `envconfig:"SPENDO_PAYMENT_INTENT_TTL" default:"24h"`
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
	for _, env := range discreteDBEnvVars {
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
