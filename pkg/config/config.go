package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Payments PaymentsConfig
	Ledger   LedgerConfig
	Assets   AssetsConfig
	SMTP     SMTPConfig
	Notify   NotifyConfig
	Flags    FeatureFlagsConfig
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
	Env          string `envconfig:"PAYLIV_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYLIV_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYLIV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYLIV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYLIV_DB_DSN"`
	Driver string `envconfig:"PAYLIV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYLIV_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYLIV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYLIV_DB_USER"`
	LegacyPassword string `envconfig:"PAYLIV_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYLIV_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYLIV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYLIV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYLIV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYLIV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYLIV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYLIV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYLIV_REDIS_ADDR"`
	Password     string        `envconfig:"PAYLIV_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYLIV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYLIV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYLIV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYLIV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYLIV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYLIV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PaymentsConfig holds provider-facing settings for the webhook pipeline.
type PaymentsConfig struct {
	// EventDedupTTL bounds the Redis fast-path dedup window for provider
	// events. The database idempotency rules remain authoritative.
	EventDedupTTL  time.Duration `envconfig:"PAYLIV_PAYMENTS_EVENT_DEDUP_TTL" default:"72h"`
	PaydunyaSecret string        `envconfig:"PAYLIV_PAYDUNYA_MASTER_KEY"`
	CinetpaySecret string        `envconfig:"PAYLIV_CINETPAY_SECRET"`
	CinetpaySiteID string        `envconfig:"PAYLIV_CINETPAY_SITE_ID"`
}

type LedgerConfig struct {
	// PlatformFeeBPS is the platform cut applied to the seller share at
	// finalization, in basis points. Zero disables the fee.
	PlatformFeeBPS int `envconfig:"PAYLIV_PLATFORM_FEE_BPS" default:"0"`
}

type AssetsConfig struct {
	SigningSecret     string        `envconfig:"PAYLIV_ASSET_SIGNING_SECRET" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"PAYLIV_ASSET_DOWNLOAD_URL_EXPIRY" default:"24h"`
	DownloadBaseURL   string        `envconfig:"PAYLIV_ASSET_DOWNLOAD_BASE_URL" default:""`
}

type SMTPConfig struct {
	Host     string        `envconfig:"PAYLIV_SMTP_HOST"`
	Port     int           `envconfig:"PAYLIV_SMTP_PORT" default:"587"`
	Username string        `envconfig:"PAYLIV_SMTP_USERNAME"`
	Password string        `envconfig:"PAYLIV_SMTP_PASSWORD"`
	From     string        `envconfig:"PAYLIV_SMTP_FROM"`
	Timeout  time.Duration `envconfig:"PAYLIV_SMTP_TIMEOUT" default:"20s"`
}

type NotifyConfig struct {
	BatchSize      int `envconfig:"PAYLIV_NOTIFY_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAYLIV_NOTIFY_POLL_MS" default:"2000"`
	MaxAttempts    int `envconfig:"PAYLIV_NOTIFY_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYLIV_AUTO_MIGRATE" default:"false"`
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
