package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"greengate/internal/account/handler"
	"greengate/internal/account/service"
	"greengate/internal/account/store"
	"greengate/internal/audit"
	"greengate/internal/notify"
	"greengate/internal/platform/config"
	"greengate/internal/platform/httpserver"
	"greengate/internal/platform/logger"
	"greengate/internal/platform/metrics"
	"greengate/internal/platform/middleware"
	platformredis "greengate/internal/platform/redis"
	"greengate/internal/threshold"
	"greengate/internal/token"
)

// main wires the dependency graph and owns the server lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		db         *sql.DB
		accounts   store.AccountStore
		thresholds threshold.Store
		auditStore audit.Store
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		accounts = store.NewPostgres(db)
		thresholds = threshold.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("GREENGATE_POSTGRES_DSN not set, running with in-memory stores")
		accounts = store.NewInMemory()
		thresholds = threshold.NewInMemory(devThresholds())
		auditStore = audit.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		thresholds = threshold.NewCached(thresholds, redisClient.Client, cfg.ThresholdCacheTTL, log)
	}

	var gateway notify.Gateway
	if cfg.SMSGatewayURL != "" {
		gateway = notify.NewHTTPGateway(cfg.SMSGatewayURL, cfg.SMSGatewayToken, log)
	} else {
		log.Warn("SMS_GATEWAY_URL not set, suppressing outbound SMS")
		gateway = notify.NewNoop(log)
	}

	issuer := token.NewJWTService(
		cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)

	m, registry := metrics.New()

	svc, err := service.New(accounts, thresholds, gateway, issuer,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(audit.NewPublisher(auditStore)),
	)
	if err != nil {
		log.Error("build account service", "error", err)
		os.Exit(1)
	}

	h := handler.New(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))
	h.Register(r)
	h.RegisterAdmin(r)
	r.Get("/healthz", healthz(db, redisClient))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := httpserver.New(cfg.Addr, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting greengate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// devThresholds seeds the in-memory store so a bare `go run` is usable.
// Production deployments manage these rows in Postgres.
func devThresholds() map[string]string {
	return map[string]string{
		threshold.OtpLength:                    "6",
		threshold.OtpMessage:                   "Your verification code is <otp>",
		threshold.OtpExpiredTime:               "300",
		threshold.OtpVerifyAttempts:            "3",
		threshold.LoginAttempts:                "3",
		threshold.LoginAttemptsExceededMessage: "Your account has been locked after too many failed logins. Please contact support.",
	}
}
