package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, LogLevel string }

// AdminCfg guards the admin routes. An empty key locks them.
type AdminCfg struct{ APIKey string }

// APICfg guards the payment routes. An empty key locks them.
type APICfg struct{ Key string }
type DBCfg struct{ DSN string }

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	TokenKey         string
	MerchantTokenKey string
}

// StoreCfg selects the token store backend: postgres, redis or memory.
type StoreCfg struct{ Driver string }

// PaygicCfg holds the reseller and merchant identities and transport settings
// for the provider.
type PaygicCfg struct {
	BaseURL          string
	RID              string
	Password         string
	DefaultMID       string
	MerchantPassword string
	TokenValidity    time.Duration
	Timeout          time.Duration
}

// MerchantEnabled reports whether the merchant's own credentials are configured.
func (c PaygicCfg) MerchantEnabled() bool {
	return c.DefaultMID != "" && c.MerchantPassword != ""
}

type ReconcileCfg struct {
	Every time.Duration // 0 disables the worker
	Grace time.Duration
	Batch int
}

type Cfg struct {
	App       AppCfg
	Admin     AdminCfg
	API       APICfg
	DB        DBCfg
	Redis     RedisCfg
	Store     StoreCfg
	Paygic    PaygicCfg
	Reconcile ReconcileCfg
}

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Load reads .env and the process environment, exiting on invalid settings.
func Load() Cfg {
	// missing .env is fine; the environment may be set by the runtime
	_ = godotenv.Load(".env")

	cfg, err := load(viper.New())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

func load(v *viper.Viper) (Cfg, error) {
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "sandbox")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TOKEN_KEY", "paygic:reseller:token")
	v.SetDefault("REDIS_MERCHANT_TOKEN_KEY", "paygic:merchant:token")
	v.SetDefault("PAYGIC_BASE_URL", "https://server.paygic.in/api/v2")
	v.SetDefault("PAYGIC_TOKEN_VALIDITY_DAYS", 30)
	v.SetDefault("PAYGIC_TIMEOUT_SECONDS", 30)
	v.SetDefault("RECONCILE_EVERY", "0s")
	v.SetDefault("RECONCILE_GRACE", "10m")
	v.SetDefault("RECONCILE_BATCH", 50)
	v.SetDefault("TZ", "Asia/Kolkata")

	if tz := v.GetString("TZ"); tz != "" {
		os.Setenv("TZ", tz)
	}

	cfg := Cfg{
		App: AppCfg{
			Env:      v.GetString("APP_ENV"),
			Port:     v.GetString("APP_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Admin: AdminCfg{APIKey: v.GetString("ADMIN_API_KEY")},
		API:   APICfg{Key: v.GetString("API_KEY")},
		DB:    DBCfg{DSN: v.GetString("DB_DSN")},
		Redis: RedisCfg{
			Addr:             v.GetString("REDIS_ADDR"),
			Password:         v.GetString("REDIS_PASSWORD"),
			DB:               v.GetInt("REDIS_DB"),
			TokenKey:         v.GetString("REDIS_TOKEN_KEY"),
			MerchantTokenKey: v.GetString("REDIS_MERCHANT_TOKEN_KEY"),
		},
		Store: StoreCfg{Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))},
		Paygic: PaygicCfg{
			BaseURL:          strings.TrimRight(v.GetString("PAYGIC_BASE_URL"), "/"),
			RID:              strings.TrimSpace(v.GetString("PAYGIC_RID")),
			Password:         v.GetString("PAYGIC_RID_PASSWORD"),
			DefaultMID:       strings.TrimSpace(v.GetString("PAYGIC_MID")),
			MerchantPassword: v.GetString("PAYGIC_MID_PASSWORD"),
			TokenValidity:    time.Duration(v.GetInt("PAYGIC_TOKEN_VALIDITY_DAYS")) * 24 * time.Hour,
			Timeout:          time.Duration(v.GetInt("PAYGIC_TIMEOUT_SECONDS")) * time.Second,
		},
		Reconcile: ReconcileCfg{
			Every: v.GetDuration("RECONCILE_EVERY"),
			Grace: v.GetDuration("RECONCILE_GRACE"),
			Batch: v.GetInt("RECONCILE_BATCH"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate fails fast on settings the gateway cannot run without.
func (c Cfg) Validate() error {
	var errs []error
	if c.Paygic.RID == "" {
		errs = append(errs, errors.New("PAYGIC_RID is required"))
	}
	if c.Paygic.Password == "" {
		errs = append(errs, errors.New("PAYGIC_RID_PASSWORD is required"))
	}
	if c.Paygic.BaseURL == "" {
		errs = append(errs, errors.New("PAYGIC_BASE_URL is required"))
	}
	if c.Paygic.TokenValidity <= 0 {
		errs = append(errs, errors.New("PAYGIC_TOKEN_VALIDITY_DAYS must be positive"))
	}
	if c.Paygic.Timeout <= 0 {
		errs = append(errs, errors.New("PAYGIC_TIMEOUT_SECONDS must be positive"))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for the postgres store"))
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
		if c.Paygic.MerchantEnabled() && c.Redis.MerchantTokenKey == c.Redis.TokenKey {
			errs = append(errs, errors.New("REDIS_MERCHANT_TOKEN_KEY must differ from REDIS_TOKEN_KEY"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	return errors.Join(errs...)
}
