package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/config"
	"github.com/tiffinbox/tiffin-service/internal/database"
	"github.com/tiffinbox/tiffin-service/internal/handler"
	"github.com/tiffinbox/tiffin-service/internal/logger"
	"github.com/tiffinbox/tiffin-service/internal/metrics"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
	"github.com/tiffinbox/tiffin-service/internal/queue"
	"github.com/tiffinbox/tiffin-service/internal/router"
	"github.com/tiffinbox/tiffin-service/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if cfg.DBMigrate {
		v, err := database.Migrate(context.Background(), db)
		if err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.WithField("version", v).Info("schema up to date")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = service.AMQPPublisher{URL: cfg.RabbitURL, Log: log}
		consumer := queue.LedgerConsumer{URL: cfg.RabbitURL, Dir: "logs", Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("ledger consumer stopped")
			}
		}()
	}

	clk := clock.NewLocal(cfg.Location)
	deps := service.Deps{
		DB:      db,
		Repos:   service.NewRepos(db),
		Clock:   clk,
		Pricing: cfg.Pricing,
		Events:  events,
		Log:     log,
	}
	svc := handler.Services{
		Accounts: service.NewAccountService(deps, service.AuthConfig{
			JWTSecret:      cfg.JWTSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			BcryptCost:     cfg.BcryptCost,
		}),
		Orders:    service.NewOrderService(deps),
		Teams:     service.NewTeamService(deps),
		Ledger:    service.NewLedgerService(deps),
		Users:     service.NewUserService(deps),
		Admin:     service.NewAdminService(deps),
		Suppliers: service.NewSupplierService(deps),
		Statics:   service.NewStaticsService(deps),
		Clock:     clk,
		Log:       log,
	}

	sched := cron.New(cron.WithLocation(cfg.Location))
	if _, err := sched.AddFunc(cfg.ReconcileSpec, service.NewReconciler(deps).Run); err != nil {
		log.WithError(err).WithField("spec", cfg.ReconcileSpec).Fatal("invalid reconcile schedule")
	}
	sched.Start()
	defer sched.Stop()

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	auth := handler.NewAuthHandler(svc.Accounts, log)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterUser(e, handler.NewUserHandler(svc), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(svc), auth, cfg.JWTSecret, cache)
	router.RegisterSupplier(e, handler.NewSupplierHandler(svc), cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	go func() {
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	log.Info("server stopped")
}
