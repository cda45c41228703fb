package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/audit"
	"invoicing-edge/internal/auth"
	"invoicing-edge/internal/config"
	"invoicing-edge/internal/httpapi"
	"invoicing-edge/internal/rbac"
	"invoicing-edge/internal/users"
	"invoicing-edge/internal/verification"
	"invoicing-edge/pkg/logger"
	"invoicing-edge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	routes, err := access.LoadRouteTable(cfg.Access.PolicyFile)
	if err != nil {
		log.Error("access policy load failed", "err", err)
		os.Exit(1)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	userSvc := users.NewService(users.NewPostgresRepo(db))
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	revoked := auth.NewRedisRevocations(rdb)
	engine := access.NewEngine(routes)
	roles := &access.RoleGate{Routes: routes, Allowed: rbac.AdminRoles}
	accessMetrics := access.NewMetrics(reg)

	h := httpapi.Handlers{
		Auth:  authManager,
		Users: userSvc,
		Verification: verification.NewService(verification.Options{
			Store:    verification.NewRedisStore(rdb),
			Accounts: userSvc,
			Issuer:   authManager,
			Routes:   routes,
			TTL:      cfg.Verification.TokenTTL,
			Audit:    auditSvc,
			Metrics:  verification.NewMetrics(reg),
		}),
		Revoked: revoked,
		Audit:   auditSvc,
		Engine:  engine,
		Roles:   roles,
		Metrics: accessMetrics,
		Cookie: httpapi.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Domain: cfg.Auth.CookieDomain,
			Secure: cfg.Auth.CookieSecure,
		},
	}

	guardOpts := access.GuardOptions{
		Credentials: access.CookieReader{Name: cfg.Auth.CookieName},
		Roles:       roles,
		Metrics:     accessMetrics,
	}
	if cfg.Access.ResolveSessions {
		guardOpts.Sessions = users.SessionResolver{Auth: authManager, Users: userSvc, Revoked: revoked}
	}

	var frontend http.Handler
	if cfg.Access.UpstreamURL != "" {
		frontend, err = httpapi.NewFrontendProxy(cfg.Access.UpstreamURL)
		if err != nil {
			log.Error("frontend proxy init failed", "err", err)
			os.Exit(1)
		}
	}

	limiter := httpapi.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		handlers: h,
		authMW:   auth.RequireAccessToken(authManager, cfg.Auth.CookieName, revoked),
		limiter:  limiter,
		guard:    access.Guard(engine, guardOpts),
		frontend: frontend,
		metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		health: func(ctx context.Context) error {
			if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("edge listening", "addr", srv.Addr, "env", cfg.App.Env, "upstream", cfg.Access.UpstreamURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
