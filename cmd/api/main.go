package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saralpe/internal/config"
	"saralpe/internal/core/reconcile"
	"saralpe/internal/domain/token"
	httpx "saralpe/internal/http"
	"saralpe/internal/metrics"
	"saralpe/internal/provider"
	"saralpe/internal/provider/base"
	"saralpe/internal/provider/paygic"
	"saralpe/internal/services/payment"
	"saralpe/internal/store/memory"
	"saralpe/internal/store/postgres"
	"saralpe/internal/store/redisstore"
	"saralpe/internal/store/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	cfg.App.SetupLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("metrics init failed")
	}

	st := openStores(ctx, cfg)
	defer st.close()

	// Provider wiring
	httpClient := base.NewHTTPClient("paygic", cfg.Paygic.Timeout)
	resellerTokens := paygic.NewTokenProvider(st.resellerTokens, httpClient, cfg.Paygic, m)
	client := paygic.NewClient(resellerTokens, httpClient, cfg.Paygic.BaseURL, provider.DefaultCatalog(), m)

	deps := httpx.RouterDependencies{Config: cfg, ResellerTokens: resellerTokens, Metrics: m}
	var merchant payment.Gateway
	if cfg.Paygic.MerchantEnabled() {
		merchantTokens := paygic.NewMerchantTokenProvider(st.merchantTokens, httpClient, cfg.Paygic, m)
		merchant = paygic.NewClient(merchantTokens, httpClient, cfg.Paygic.BaseURL, provider.MerchantCatalog(), m)
		deps.MerchantTokens = merchantTokens
	} else {
		log.Warn().Msg("PAYGIC_MID or PAYGIC_MID_PASSWORD not set; merchant routes are disabled")
	}
	if cfg.API.Key == "" {
		log.Warn().Msg("API_KEY not set; payment routes refuse every request")
	}

	svc := payment.NewService(client, merchant, st.txRepo, cfg.Paygic, m)
	deps.PaymentService = svc

	worker := reconcile.NewWorker(svc, st.txRepo, cfg.Reconcile)
	go worker.Run(ctx)

	r := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Paygic.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("store", cfg.Store.Driver).Msgf("SaralPe gateway listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}

type stores struct {
	resellerTokens repositories.TokenStore
	merchantTokens repositories.TokenStore
	txRepo         repositories.TransactionRepository
	closers        []func()
}

func (s stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks the token store by driver, one slot per identity.
// Transactions live in Postgres whenever a DSN is configured, in memory otherwise.
func openStores(ctx context.Context, cfg config.Cfg) stores {
	var (
		st   stores
		pool *pgxpool.Pool
	)

	if cfg.DB.DSN != "" {
		pool = postgres.MustOpen(ctx, cfg.DB.DSN)
		st.closers = append(st.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		st.resellerTokens = postgres.NewTokenRepository(pool, token.ScopeReseller)
		st.merchantTokens = postgres.NewTokenRepository(pool, token.ScopeMerchant)
	case config.DriverRedis:
		rdb := redisstore.MustConnect(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		st.resellerTokens = redisstore.NewTokenStore(rdb, cfg.Redis.TokenKey)
		st.merchantTokens = redisstore.NewTokenStore(rdb, cfg.Redis.MerchantTokenKey)
	default:
		log.Warn().Msg("using in-memory token store; tokens are lost on restart")
		st.resellerTokens = memory.NewTokenStore()
		st.merchantTokens = memory.NewTokenStore()
	}

	if pool != nil {
		st.txRepo = postgres.NewTransactionRepository(pool)
	} else {
		log.Warn().Msg("DB_DSN not set; transactions are kept in memory")
		st.txRepo = memory.NewTransactionRepository()
	}
	return st
}
