package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYGIC_RID", "R123")
	t.Setenv("PAYGIC_RID_PASSWORD", "secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "https://server.paygic.in/api/v2", cfg.Paygic.BaseURL)
	assert.Equal(t, 30*24*time.Hour, cfg.Paygic.TokenValidity)
	assert.Equal(t, 30*time.Second, cfg.Paygic.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Reconcile.Every)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "paygic:merchant:token", cfg.Redis.MerchantTokenKey)
	assert.False(t, cfg.Paygic.MerchantEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYGIC_RID", " R123 ")
	t.Setenv("PAYGIC_RID_PASSWORD", "secret")
	t.Setenv("PAYGIC_MID", "M9")
	t.Setenv("PAYGIC_MID_PASSWORD", "mid-secret")
	t.Setenv("API_KEY", "caller-key")
	t.Setenv("PAYGIC_BASE_URL", "http://localhost:9000/api/v2/")
	t.Setenv("PAYGIC_TOKEN_VALIDITY_DAYS", "7")
	t.Setenv("PAYGIC_TIMEOUT_SECONDS", "5")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RECONCILE_EVERY", "1m")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "R123", cfg.Paygic.RID)
	assert.Equal(t, "M9", cfg.Paygic.DefaultMID)
	assert.Equal(t, "mid-secret", cfg.Paygic.MerchantPassword)
	assert.True(t, cfg.Paygic.MerchantEnabled())
	assert.Equal(t, "caller-key", cfg.API.Key)
	assert.Equal(t, "http://localhost:9000/api/v2", cfg.Paygic.BaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.Paygic.TokenValidity)
	assert.Equal(t, 5*time.Second, cfg.Paygic.Timeout)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, time.Minute, cfg.Reconcile.Every)
}

func TestValidate(t *testing.T) {
	valid := Cfg{
		Store: StoreCfg{Driver: DriverMemory},
		Paygic: PaygicCfg{
			BaseURL:       "http://x",
			RID:           "R",
			Password:      "P",
			TokenValidity: time.Hour,
			Timeout:       time.Second,
		},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Cfg)
		want   string
	}{
		{"missing rid", func(c *Cfg) { c.Paygic.RID = "" }, "PAYGIC_RID is required"},
		{"missing password", func(c *Cfg) { c.Paygic.Password = "" }, "PAYGIC_RID_PASSWORD"},
		{"zero validity", func(c *Cfg) { c.Paygic.TokenValidity = 0 }, "TOKEN_VALIDITY"},
		{"postgres without dsn", func(c *Cfg) { c.Store.Driver = DriverPostgres }, "DB_DSN"},
		{"redis without addr", func(c *Cfg) { c.Store.Driver = DriverRedis }, "REDIS_ADDR"},
		{"unknown driver", func(c *Cfg) { c.Store.Driver = "mongo" }, "unknown STORE_DRIVER"},
		{"shared redis token key", func(c *Cfg) {
			c.Store.Driver = DriverRedis
			c.Redis = RedisCfg{Addr: "localhost:6379", TokenKey: "k", MerchantTokenKey: "k"}
			c.Paygic.DefaultMID, c.Paygic.MerchantPassword = "M1", "mp"
		}, "REDIS_MERCHANT_TOKEN_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("nonsense"))
}
