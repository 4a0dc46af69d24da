// Command server wires the capitalization platform together: stores, the
// chain adapter, domain services, the reconciliation sweep, and the HTTP
// surface. Business logic lives in the internal service packages.
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

	"golang.org/x/sync/errgroup"

	"incorp/internal/audit"
	companyhandler "incorp/internal/company/handler"
	companyservice "incorp/internal/company/service"
	companystore "incorp/internal/company/store"
	"incorp/internal/funding"
	fundinghandler "incorp/internal/funding/handler"
	"incorp/internal/funding/idempotency"
	fundingmetrics "incorp/internal/funding/metrics"
	ledgermemory "incorp/internal/ledger/memory"
	paymenthandler "incorp/internal/payment/handler"
	paymentmetrics "incorp/internal/payment/metrics"
	paymentservice "incorp/internal/payment/service"
	paymentstore "incorp/internal/payment/store"
	"incorp/internal/platform/config"
	"incorp/internal/platform/httpserver"
	"incorp/internal/platform/logger"
	platformredis "incorp/internal/platform/redis"
	"incorp/internal/reconcile"
	reconcilemetrics "incorp/internal/reconcile/metrics"
	"incorp/internal/storage"
	streamhandler "incorp/internal/stream/handler"
	streammetrics "incorp/internal/stream/metrics"
	streamservice "incorp/internal/stream/service"
	streamstore "incorp/internal/stream/store"
	httptransport "incorp/internal/transport/http"
	userhandler "incorp/internal/user/handler"
	userservice "incorp/internal/user/service"
	userstore "incorp/internal/user/store"
	"incorp/pkg/platform/middleware/auth"
	"incorp/pkg/platform/middleware/ratelimit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := storage.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var (
		companies  companyListStore
		payments   paymentservice.Store
		streams    streamservice.Store
		profiles   userservice.Store
		auditStore audit.Store
	)
	if db != nil {
		companies = companystore.NewPostgres(db)
		payments = paymentstore.NewPostgres(db)
		streams = streamstore.NewPostgres(db)
		profiles = userstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		companies = companystore.NewMemory()
		payments = paymentstore.NewMemory()
		streams = streamstore.NewMemory()
		profiles = userstore.NewMemory()
		auditStore = audit.NewMemoryStore()
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var reservations idempotency.Store = idempotency.NewMemory()
	if rdb != nil {
		defer rdb.Close()
		reservations = idempotency.NewRedis(rdb.Client)
		log.Info("idempotency reservations backed by redis")
	} else {
		log.Warn("REDIS_URL not set, idempotency reservations are process-local")
	}

	// Audit events go through a buffered inbox so request paths never wait on
	// the store; the worker drains it in the background.
	auditInbox := audit.NewInbox(256)
	auditWorker := audit.NewWorker(auditStore, auditInbox.Events(), audit.WithWorkerLogger(log))
	var auditSink audit.Emitter = auditInbox
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("kafka audit publisher setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPub.Close()
		auditSink = audit.NewFanout(auditSink, kafkaPub)
		log.Info("audit events mirrored to kafka", "topic", cfg.Kafka.AuditTopic)
	}

	// In-process chain simulator. A node-backed adapter slots in behind the
	// same interface once the contract is deployed.
	chain := ledgermemory.New()

	companySvc := companyservice.New(companies, chain,
		companyservice.WithLogger(log),
		companyservice.WithAuditPublisher(auditSink),
	)
	fundingSvc := funding.NewService(companies, chain, reservations,
		funding.WithLogger(log),
		funding.WithAuditPublisher(auditSink),
		funding.WithMetrics(fundingmetrics.New()),
		funding.WithProfiles(profiles),
	)
	paymentSvc := paymentservice.New(payments, companies, chain,
		paymentservice.WithLogger(log),
		paymentservice.WithAuditPublisher(auditSink),
		paymentservice.WithMetrics(paymentmetrics.New()),
		paymentservice.WithProfiles(profiles),
	)
	streamSvc := streamservice.New(streams, companies, paymentSvc, chain,
		streamservice.WithLogger(log),
		streamservice.WithAuditPublisher(auditSink),
		streamservice.WithMetrics(streammetrics.New()),
	)
	userSvc := userservice.New(profiles, chain,
		userservice.WithLogger(log),
		userservice.WithAuditPublisher(auditSink),
	)

	sweeper := reconcile.New(companies, paymentSvc, profiles, chain,
		reconcile.WithLogger(log),
		reconcile.WithAuditPublisher(auditSink),
		reconcile.WithMetrics(reconcilemetrics.New()),
	)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Limit > 0 {
		if rdb != nil {
			limiter = ratelimit.NewRedisLimiter(rdb.Client, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Validator: auth.NewValidator(cfg.JWTSigningKey),
		Logger:    log,
		Limiter:   limiter,
		Handlers: []httptransport.Registrar{
			companyhandler.New(companySvc, log),
			fundinghandler.New(fundingSvc, log),
			paymenthandler.New(paymentSvc, log),
			streamhandler.New(streamSvc, log),
			userhandler.New(userSvc, log),
		},
		Health: func(r *http.Request) error {
			if db != nil {
				if err := db.PingContext(r.Context()); err != nil {
					return err
				}
			}
			if rdb != nil {
				return rdb.Health(r.Context())
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := auditWorker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting reconciliation sweep", "interval", cfg.SweepInterval)
		if err := sweeper.Run(gctx, cfg.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// companyListStore is the union of the company store slices the services and
// the sweep consume. Both store implementations satisfy it.
type companyListStore interface {
	companyservice.Store
	reconcile.CapTable
	funding.CapTable
	streamservice.Companies
	paymentservice.Companies
}
