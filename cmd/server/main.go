package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prockx/storefront/internal/access"
	"github.com/prockx/storefront/internal/config"
	"github.com/prockx/storefront/internal/events"
	"github.com/prockx/storefront/internal/httpserver"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/payment"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/search"
	"github.com/prockx/storefront/internal/service/account"
	"github.com/prockx/storefront/internal/service/auth"
	"github.com/prockx/storefront/internal/service/catalog"
	"github.com/prockx/storefront/internal/service/order"
	pkgdb "github.com/prockx/storefront/pkg/db"
	"github.com/prockx/storefront/pkg/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}

	var (
		publisher events.Publisher = events.Nop{}
		kafkaPub  *events.KafkaPublisher
		queue     *events.Queue
	)
	if len(cfg.KafkaBrokers) > 0 {
		tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := events.EnsureTopics(tctx, cfg.KafkaBrokers[0], events.Topics...); err != nil {
			logger.Warn("kafka_topics_error", "error", err)
		}
		tcancel()
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBrokers)
		queue = events.NewQueue(kafkaPub, 1024, 5*time.Second, logger)
		publisher = queue
	} else {
		logger.Info("kafka disabled, events are dropped")
	}

	policy, err := access.New()
	if err != nil {
		log.Fatalf("access policy: %v", err)
	}

	r := repo.New(db)

	catalogSvc := &catalog.Service{Repo: r, Events: publisher}
	if cfg.SearchEnabled() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		es, err := search.NewClient(sctx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		scancel()
		if err != nil {
			logger.Warn("search disabled", "error", err)
		} else {
			catalogSvc.Index = search.New(es, cfg.ESIndex)
		}
	}

	orderSvc := &order.Service{
		Repo:      r,
		Access:    policy,
		Events:    publisher,
		Currency:  cfg.PaymentCurrency,
		ClientURL: cfg.ClientURL,
		Metrics:   order.PublishedMetrics(),
	}
	if cfg.PaymentsEnabled() {
		orderSvc.Payments = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		logger.Info("card payments disabled, no payment sessions will be created")
	}

	authSvc := &auth.Service{
		Repo:          r,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		AdminEmail:    cfg.AdminEmail,
		Events:        publisher,
	}

	e := httpserver.NewServer(&httpserver.Deps{
		DB:              db,
		AuthHandler:     &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		UsersHandler:    &httpserver.UsersHTTP{Svc: &account.Service{Repo: r, Events: publisher}},
		ProductsHandler: &httpserver.ProductsHTTP{Svc: catalogSvc},
		OrdersHandler:   &httpserver.OrdersHTTP{Svc: orderSvc},
		JWTSecret:       cfg.JWTAccessSecret,
		Refresher:       authSvc,
	}, httpserver.Options{
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		CSRF:          cfg.CSRFEnabled,
		CSRFSecure:    cfg.CookieSecure,
		AuthRateLimit: cfg.AuthRateLimit,
		APIRateLimit:  cfg.APIRateLimit,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if queue != nil {
		if err := queue.Close(shutdownCtx); err != nil {
			logger.Error("event queue drain", "error", err)
		}
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db close", "error", err)
	}

	logger.Info("storefront stopped")
}
