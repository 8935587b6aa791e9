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
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Shop          ShopConfig
	Mail          MailConfig
	Upload        UploadConfig
	Reports       ReportsConfig
	Cron          CronConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Shop.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port          string `envconfig:"STOREFRONT_APP_PORT" default:"5000"`
	LogLevel      string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"STOREFRONT_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"mysql"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"3306"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"resinart-storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	BcryptCost    int           `envconfig:"STOREFRONT_BCRYPT_COST" default:"12"`
	ResetTokenTTL time.Duration `envconfig:"STOREFRONT_RESET_TOKEN_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// ShopConfig holds the storefront pricing knobs. Money values are parsed as decimals.
type ShopConfig struct {
	OrderPrefix           string `envconfig:"STOREFRONT_ORDER_PREFIX" default:"ORD"`
	FreeShippingThreshold string `envconfig:"STOREFRONT_FREE_SHIPPING_THRESHOLD" default:"5000"`
	FlatShippingFee       string `envconfig:"STOREFRONT_FLAT_SHIPPING_FEE" default:"200"`
	Currency              string `envconfig:"STOREFRONT_CURRENCY" default:"PKR"`
	LowStockThreshold     int    `envconfig:"STOREFRONT_LOW_STOCK_THRESHOLD" default:"5"`
}

func (s ShopConfig) validate() error {
	if _, err := decimal.NewFromString(s.FreeShippingThreshold); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvFreeShippingThreshold, err)
	}
	if _, err := decimal.NewFromString(s.FlatShippingFee); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvFlatShippingFee, err)
	}
	return nil
}

// Threshold returns the subtotal at which shipping becomes free.
func (s ShopConfig) Threshold() decimal.Decimal {
	return decimal.RequireFromString(s.FreeShippingThreshold)
}

// ShippingFee returns the flat fee charged below the threshold.
func (s ShopConfig) ShippingFee() decimal.Decimal {
	return decimal.RequireFromString(s.FlatShippingFee)
}

type MailConfig struct {
	Enabled  bool   `envconfig:"STOREFRONT_MAIL_ENABLED" default:"false"`
	Host     string `envconfig:"STOREFRONT_SMTP_HOST"`
	Port     int    `envconfig:"STOREFRONT_SMTP_PORT" default:"587"`
	Username string `envconfig:"STOREFRONT_SMTP_USER"`
	Password string `envconfig:"STOREFRONT_SMTP_PASSWORD"`
	From     string `envconfig:"STOREFRONT_MAIL_FROM" default:"no-reply@resinart.local"`
}

type UploadConfig struct {
	Dir        string `envconfig:"STOREFRONT_UPLOAD_DIR" default:"uploads"`
	MaxMB      int    `envconfig:"STOREFRONT_UPLOAD_MAX_MB" default:"5"`
	PublicPath string `envconfig:"STOREFRONT_UPLOAD_PUBLIC_PATH" default:"/uploads"`
}

// MaxBytes returns the upload ceiling in bytes.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxMB <= 0 {
		return 5 << 20
	}
	return int64(u.MaxMB) << 20
}

type ReportsConfig struct {
	BudgetAlertPercent int `envconfig:"STOREFRONT_BUDGET_ALERT_PERCENT" default:"80"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"10m"`
	PendingOrderAfter time.Duration `envconfig:"STOREFRONT_CRON_PENDING_ORDER_AFTER" default:"48h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == DriverSQLite {
		if db.Name == "" {
			return fmt.Errorf("either %s or %s is required for sqlite", EnvDBDSN, EnvDBName)
		}
		db.DSN = db.Name
		return nil
	}

	missing := []string{}
	partValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if partValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	switch driver {
	case DriverPostgres:
		userInfo := url.User(db.User)
		if db.Password != "" {
			userInfo = url.UserPassword(db.User, db.Password)
		}
		u := &url.URL{
			Scheme:   "postgres",
			User:     userInfo,
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:     db.Name,
			RawQuery: "sslmode=disable",
		}
		db.DSN = u.String()
	case DriverMySQL:
		db.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			db.User, db.Password, db.Host, db.Port, db.Name)
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
	return nil
}
