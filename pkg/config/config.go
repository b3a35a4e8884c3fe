package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Basket    BasketConfig
	Feed      FeedConfig
	Export    ExportConfig
	Jobs      JobsConfig
	Outbox    OutboxConfig
	PubSub    PubSubConfig
	GCP       GCPConfig
	RateLimit RateLimitConfig
	Flags     FlagsConfig
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
	Env          string `envconfig:"PROCUREHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"PROCUREHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROCUREHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROCUREHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PROCUREHUB_DB_DSN"`
	Driver string `envconfig:"PROCUREHUB_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PROCUREHUB_DB_HOST"`
	Port     int    `envconfig:"PROCUREHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"PROCUREHUB_DB_USER"`
	Password string `envconfig:"PROCUREHUB_DB_PASSWORD"`
	Name     string `envconfig:"PROCUREHUB_DB_NAME"`
	SSLMode  string `envconfig:"PROCUREHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROCUREHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROCUREHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROCUREHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROCUREHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either PROCUREHUB_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PROCUREHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROCUREHUB_REDIS_ADDR"`
	Password     string        `envconfig:"PROCUREHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROCUREHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROCUREHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROCUREHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROCUREHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROCUREHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROCUREHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"PROCUREHUB_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PROCUREHUB_JWT_ISSUER" required:"true"`
}

type BasketConfig struct {
	TTL time.Duration `envconfig:"PROCUREHUB_BASKET_TTL" default:"168h"`
}

// FeedConfig controls price list fetching. Feeds published behind the external
// base URL are retried via the internal address first to avoid the NAT loop.
type FeedConfig struct {
	ExternalBaseURL string        `envconfig:"PROCUREHUB_FEED_EXTERNAL_BASE_URL"`
	InternalBaseURL string        `envconfig:"PROCUREHUB_FEED_INTERNAL_BASE_URL"`
	FetchTimeout    time.Duration `envconfig:"PROCUREHUB_FEED_FETCH_TIMEOUT" default:"10s"`
}

type ExportConfig struct {
	Dir     string `envconfig:"PROCUREHUB_EXPORT_DIR" default:"exports"`
	BaseURL string `envconfig:"PROCUREHUB_EXPORT_BASE_URL"`
}

type JobsConfig struct {
	PollInterval time.Duration `envconfig:"PROCUREHUB_JOBS_POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"PROCUREHUB_JOBS_BATCH_SIZE" default:"10"`
	MaxAttempts  int           `envconfig:"PROCUREHUB_JOBS_MAX_ATTEMPTS" default:"3"`
	RetryBackoff time.Duration `envconfig:"PROCUREHUB_JOBS_RETRY_BACKOFF" default:"30s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PROCUREHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PROCUREHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PROCUREHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"PROCUREHUB_PUBSUB_ORDERS_TOPIC" default:"procurehub-order-events"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PROCUREHUB_GCP_PROJECT_ID"`
}

type RateLimitConfig struct {
	BrowseWindow time.Duration `envconfig:"PROCUREHUB_RATE_LIMIT_BROWSE_WINDOW" default:"1m"`
	BrowseLimit  int           `envconfig:"PROCUREHUB_RATE_LIMIT_BROWSE_LIMIT" default:"120"`
}

type FlagsConfig struct {
	AutoMigrate bool `envconfig:"PROCUREHUB_AUTO_MIGRATE" default:"false"`
}

// RewriteFeedURL swaps the external base URL for the internal one when both are
// configured and the source matches. The returned bool reports whether a
// rewrite happened.
func (f FeedConfig) RewriteFeedURL(source string) (string, bool) {
	if f.ExternalBaseURL == "" || f.InternalBaseURL == "" {
		return source, false
	}
	if !strings.HasPrefix(source, f.ExternalBaseURL) {
		return source, false
	}
	rewritten := f.InternalBaseURL + strings.TrimPrefix(source, f.ExternalBaseURL)
	if _, err := url.Parse(rewritten); err != nil {
		return source, false
	}
	return rewritten, true
}
