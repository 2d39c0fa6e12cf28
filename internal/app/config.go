package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/starshop/core/config"
	coredatabase "github.com/m3rciful/starshop/core/database"
	"github.com/m3rciful/starshop/core/state"
	"github.com/m3rciful/starshop/internal/payments"
	"github.com/m3rciful/starshop/internal/store"
)

// Session backends accepted by configuration.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

const (
	defaultBoltPath   = "data/starshop.db"
	defaultSessionTTL = 30 * time.Minute
	defaultNamespace  = "starshop"
)

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string              `yaml:"driver" envconfig:"STORE_DRIVER"`
	BoltPath string              `yaml:"bolt_path" envconfig:"STORE_BOLT_PATH"`
	Postgres coredatabase.Config `yaml:"postgres"`
}

// SessionConfig selects where conversation state lives and how long an
// abandoned flow survives.
type SessionConfig struct {
	Backend string            `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTL     time.Duration     `yaml:"ttl" envconfig:"SESSION_TTL"`
	Redis   state.RedisConfig `yaml:"redis"`
}

// PaymentsConfig tunes the payment workflow.
type PaymentsConfig struct {
	Currency          string `yaml:"currency" envconfig:"PAYMENTS_CURRENCY"`
	ProviderToken     string `yaml:"provider_token" envconfig:"PAYMENTS_PROVIDER_TOKEN"`
	StrictPreCheckout bool   `yaml:"strict_pre_checkout" envconfig:"PAYMENTS_STRICT_PRE_CHECKOUT"`
}

// HTTPConfig controls the health and metrics listener. An empty Listen
// disables it.
type HTTPConfig struct {
	Listen    string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Namespace string `yaml:"metrics_namespace" envconfig:"METRICS_NAMESPACE"`
}

// Config is the storefront configuration: the shared transport and logging
// sections plus the storefront's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Store    StoreConfig    `yaml:"store"`
	Session  SessionConfig  `yaml:"session"`
	Payments PaymentsConfig `yaml:"payments"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case "", store.DriverBolt:
		cfg.Store.Driver = store.DriverBolt
		if strings.TrimSpace(cfg.Store.BoltPath) == "" {
			cfg.Store.BoltPath = defaultBoltPath
		}
	case store.DriverPostgres:
		if strings.TrimSpace(cfg.Store.Postgres.Host) == "" || strings.TrimSpace(cfg.Store.Postgres.Name) == "" {
			return fmt.Errorf("store.postgres.host and store.postgres.name are required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid store.driver %q; allowed: bolt, postgres", cfg.Store.Driver)
	}

	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch cfg.Session.Backend {
	case "", SessionMemory:
		cfg.Session.Backend = SessionMemory
	case SessionRedis:
		if strings.TrimSpace(cfg.Session.Redis.Addr) == "" {
			return fmt.Errorf("session.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must be >= 0")
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = defaultSessionTTL
	}

	cfg.Payments.Currency = strings.ToUpper(strings.TrimSpace(cfg.Payments.Currency))
	if cfg.Payments.Currency == "" {
		cfg.Payments.Currency = payments.DefaultCurrency
	}
	if cfg.Payments.Currency != payments.DefaultCurrency && strings.TrimSpace(cfg.Payments.ProviderToken) == "" {
		return fmt.Errorf("payments.provider_token is required for currency %s", cfg.Payments.Currency)
	}

	if strings.TrimSpace(cfg.HTTP.Namespace) == "" {
		cfg.HTTP.Namespace = defaultNamespace
	}
	return nil
}
