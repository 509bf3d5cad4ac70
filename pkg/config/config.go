package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	Telegram   TelegramConfig
	Payments   PaymentsConfig
	Operators  OperatorsConfig
	Reconciler ReconcilerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIFTDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTDROP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GIFTDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN             string        `envconfig:"GIFTDROP_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"GIFTDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"GIFTDROP_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTDROP_REDIS_URL"`
	Address      string        `envconfig:"GIFTDROP_REDIS_ADDRESS"`
	Password     string        `envconfig:"GIFTDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTDROP_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"GIFTDROP_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// TelegramConfig carries the chat transport credentials. The bot token is
// required for the api service since inbound webhooks are routed by it.
type TelegramConfig struct {
	BotToken       string        `envconfig:"GIFTDROP_TELEGRAM_BOT_TOKEN"`
	WebhookSecret  string        `envconfig:"GIFTDROP_TELEGRAM_WEBHOOK_SECRET"`
	BaseURL        string        `envconfig:"GIFTDROP_TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
	RequestTimeout time.Duration `envconfig:"GIFTDROP_TELEGRAM_REQUEST_TIMEOUT" default:"10s"`
}

// PaymentsConfig configures the external payment provider. An empty APIKey
// means no provider: the deployment runs in demo/manual mode instead of
// failing at startup.
type PaymentsConfig struct {
	APIKey         string        `envconfig:"GIFTDROP_PAYMENTS_API_KEY"`
	BaseURL        string        `envconfig:"GIFTDROP_PAYMENTS_BASE_URL" default:"https://api.cloudpayments.ru"`
	Currency       string        `envconfig:"GIFTDROP_PAYMENTS_CURRENCY" default:"RUB"`
	RequestTimeout time.Duration `envconfig:"GIFTDROP_PAYMENTS_REQUEST_TIMEOUT" default:"10s"`
}

// Configured reports whether a real provider is wired.
func (p PaymentsConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// OperatorsConfig lists the identities allowed to confirm/decline orders.
type OperatorsConfig struct {
	ChatIDs  []int64 `envconfig:"GIFTDROP_OPERATOR_CHAT_IDS"`
	APIToken string  `envconfig:"GIFTDROP_OPERATOR_API_TOKEN"`
}

// IsOperator reports whether the chat id belongs to a configured operator.
func (o OperatorsConfig) IsOperator(chatID int64) bool {
	for _, id := range o.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

type ReconcilerConfig struct {
	PollInterval   time.Duration `envconfig:"GIFTDROP_RECONCILER_POLL_INTERVAL" default:"4s"`
	DemoDelay      time.Duration `envconfig:"GIFTDROP_RECONCILER_DEMO_DELAY" default:"8s"`
	OrderTimeout   time.Duration `envconfig:"GIFTDROP_RECONCILER_ORDER_TIMEOUT" default:"10s"`
	BatchLimit     int           `envconfig:"GIFTDROP_RECONCILER_BATCH_LIMIT" default:"250"`
	AutoConfirm    bool          `envconfig:"GIFTDROP_RECONCILER_AUTO_CONFIRM" default:"false"`
	LockTTL        time.Duration `envconfig:"GIFTDROP_RECONCILER_LOCK_TTL" default:"1m"`
	DisableDemoSim bool          `envconfig:"GIFTDROP_RECONCILER_DISABLE_DEMO_SIM" default:"false"`
}
