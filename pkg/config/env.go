package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBPort   = "STOREFRONT_DB_PORT"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBPass   = "STOREFRONT_DB_PASSWORD"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvOrderPrefix           = "STOREFRONT_ORDER_PREFIX"
	EnvFreeShippingThreshold = "STOREFRONT_FREE_SHIPPING_THRESHOLD"
	EnvFlatShippingFee       = "STOREFRONT_FLAT_SHIPPING_FEE"

	EnvMailEnabled = "STOREFRONT_MAIL_ENABLED"
	EnvCORSOrigins = "STOREFRONT_CORS_ORIGINS"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
