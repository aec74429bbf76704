package config

const (
	EnvPrefix = "SPENDO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "SPENDO_APP_ENV"
	EnvPort              = "SPENDO_APP_PORT"
	EnvDBDSN             = "SPENDO_DB_DSN"
	EnvDBHost            = "SPENDO_DB_HOST"
	EnvDBUser            = "SPENDO_DB_USER"
	EnvDBName            = "SPENDO_DB_NAME"
	EnvRedisURL          = "SPENDO_REDIS_URL"
	EnvJWTSecret         = "SPENDO_JWT_SECRET"
	EnvSessionSecret     = "SPENDO_SESSION_COOKIE_SECRET"
	EnvPaystackSecretKey = "SPENDO_PAYSTACK_SECRET_KEY"
	EnvKafkaBrokers      = "SPENDO_KAFKA_BROKERS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
