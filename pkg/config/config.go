package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/attos/attos-backend/pkg/enums"
)

type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Pricing   PricingConfig
	Lifecycle LifecycleConfig
	Cron      CronConfig
	Events    EventsConfig
	Catalog   CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	driver, err := enums.ParseStoreDriver(strings.ToLower(strings.TrimSpace(c.Store.Driver)))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvStoreDriver, err)
	}
	switch driver {
	case enums.StoreDriverSQLite, enums.StoreDriverPostgres:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("%s is required for the %s store driver", EnvDBDSN, driver)
		}
	case enums.StoreDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or %s is required for the redis store driver", EnvRedisURL, EnvRedisAddr)
		}
	}
	if c.Pricing.DeliveryFee.IsNegative() || c.Pricing.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("delivery fee and threshold must be non-negative")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1", EnvTaxRate)
	}
	if c.Events.PubSubEnabled && strings.TrimSpace(c.Events.ProjectID) == "" {
		return fmt.Errorf("%s is required when pubsub is enabled", EnvGCPProjectID)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"ATTOS_APP_ENV" default:"dev"`
	Port         string `envconfig:"ATTOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ATTOS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ATTOS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ATTOS_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ATTOS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StoreConfig struct {
	Driver      string `envconfig:"ATTOS_STORE_DRIVER" default:"sqlite"`
	Namespace   string `envconfig:"ATTOS_STORE_NAMESPACE" default:"default"`
	AutoMigrate bool   `envconfig:"ATTOS_AUTO_MIGRATE" default:"true"`
}

// DriverKind returns the parsed driver; Load has already rejected unknown values.
func (s StoreConfig) DriverKind() enums.StoreDriver {
	driver, err := enums.ParseStoreDriver(strings.ToLower(strings.TrimSpace(s.Driver)))
	if err != nil {
		return enums.StoreDriverMemory
	}
	return driver
}

type DBConfig struct {
	DSN string `envconfig:"ATTOS_DB_DSN" default:"file:attos.db?cache=shared&_busy_timeout=5000"`

	MaxOpenConns    int           `envconfig:"ATTOS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ATTOS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ATTOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATTOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATTOS_REDIS_URL"`
	Address      string        `envconfig:"ATTOS_REDIS_ADDR"`
	Password     string        `envconfig:"ATTOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATTOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATTOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATTOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATTOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATTOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATTOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type PricingConfig struct {
	FreeDeliveryThreshold decimal.Decimal   `envconfig:"ATTOS_FREE_DELIVERY_THRESHOLD" default:"199"`
	DeliveryFee           decimal.Decimal   `envconfig:"ATTOS_DELIVERY_FEE" default:"29"`
	TaxRate               decimal.Decimal   `envconfig:"ATTOS_TAX_RATE" default:"0.05"`
	PromoCodes            map[string]string `envconfig:"ATTOS_PROMO_CODES" default:"ATTOS10:0.10"`
}

type LifecycleConfig struct {
	OrderPlacedDwell time.Duration `envconfig:"ATTOS_DWELL_ORDER_PLACED" default:"5s"`
	PreparingDwell   time.Duration `envconfig:"ATTOS_DWELL_PREPARING" default:"5s"`
	PickedUpDwell    time.Duration `envconfig:"ATTOS_DWELL_PICKED_UP" default:"5s"`
	OnTheWayDwell    time.Duration `envconfig:"ATTOS_DWELL_ON_THE_WAY" default:"15s"`
	LeadTime         time.Duration `envconfig:"ATTOS_DELIVERY_LEAD_TIME" default:"10m"`
}

type CronConfig struct {
	Enabled  bool          `envconfig:"ATTOS_CRON_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"ATTOS_CRON_INTERVAL" default:"30s"`
	LockTTL  time.Duration `envconfig:"ATTOS_CRON_LOCK_TTL" default:"2m"`
}

type EventsConfig struct {
	PubSubEnabled      bool          `envconfig:"ATTOS_PUBSUB_ENABLED" default:"false"`
	ProjectID          string        `envconfig:"ATTOS_GCP_PROJECT_ID"`
	CredentialsJSON    string        `envconfig:"ATTOS_GCP_CREDENTIALS_JSON"`
	CredentialsFile    string        `envconfig:"ATTOS_GCP_CREDENTIALS_FILE"`
	OrdersTopic        string        `envconfig:"ATTOS_PUBSUB_ORDERS_TOPIC" default:"attos-orders"`
	OrdersSubscription string        `envconfig:"ATTOS_PUBSUB_ORDERS_SUBSCRIPTION" default:"attos-orders-ranking"`
	IdempotencyTTL     time.Duration `envconfig:"ATTOS_EVENTS_IDEMPOTENCY_TTL" default:"720h"`
}

type CatalogConfig struct {
	Path string `envconfig:"ATTOS_CATALOG_PATH"`
}
