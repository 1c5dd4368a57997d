package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"saralpe/internal/config"
	"saralpe/internal/domain/token"
	"saralpe/internal/provider/base"
	"saralpe/internal/provider/paygic"
	"saralpe/internal/store/memory"
	"saralpe/internal/store/postgres"
	"saralpe/internal/store/redisstore"
	"saralpe/internal/store/repositories"

	"github.com/redis/go-redis/v9"
)

// usage: go run tools/reseller_token.go [merchant]
// Prints the current reseller token, or the merchant token when asked, from the
// configured store, issuing one if needed.
func main() {
	cfg := config.Load()
	scope := token.ScopeReseller
	if len(os.Args) > 1 && os.Args[1] == string(token.ScopeMerchant) {
		if !cfg.Paygic.MerchantEnabled() {
			fmt.Fprintln(os.Stderr, "PAYGIC_MID and PAYGIC_MID_PASSWORD are required for the merchant token")
			os.Exit(1)
		}
		scope = token.ScopeMerchant
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Paygic.Timeout+10*time.Second)
	defer cancel()

	var store repositories.TokenStore
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool := postgres.MustOpen(ctx, cfg.DB.DSN)
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		store = postgres.NewTokenRepository(pool, scope)
	case config.DriverRedis:
		rdb := redisstore.MustConnect(ctx, &redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		key := cfg.Redis.TokenKey
		if scope == token.ScopeMerchant {
			key = cfg.Redis.MerchantTokenKey
		}
		store = redisstore.NewTokenStore(rdb, key)
	default:
		store = memory.NewTokenStore()
	}

	httpClient := base.NewHTTPClient("paygic", cfg.Paygic.Timeout)
	p := paygic.NewTokenProvider(store, httpClient, cfg.Paygic, nil)
	if scope == token.ScopeMerchant {
		p = paygic.NewMerchantTokenProvider(store, httpClient, cfg.Paygic, nil)
	}
	t, err := p.Acquire(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("%s\nexpires %s\n", t.Value, t.ExpiresAt.Format(time.RFC3339))
}
