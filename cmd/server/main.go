// Command server wires dependencies and runs the leaddesk API.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"leaddesk/internal/audit"
	auditHandler "leaddesk/internal/audit/handler"
	auditPostgres "leaddesk/internal/audit/store/postgres"
	"leaddesk/internal/audit/stream"
	"leaddesk/internal/auth"
	authHandler "leaddesk/internal/auth/handler"
	"leaddesk/internal/auth/revocation"
	"leaddesk/internal/authz"
	"leaddesk/internal/client"
	clientHandler "leaddesk/internal/client/handler"
	clientPostgres "leaddesk/internal/client/store/postgres"
	"leaddesk/internal/identity"
	identityHandler "leaddesk/internal/identity/handler"
	identityPostgres "leaddesk/internal/identity/store/postgres"
	"leaddesk/internal/jwttoken"
	"leaddesk/internal/lead"
	leadHandler "leaddesk/internal/lead/handler"
	leadPostgres "leaddesk/internal/lead/store/postgres"
	"leaddesk/internal/platform/config"
	"leaddesk/internal/platform/httpserver"
	"leaddesk/internal/platform/logger"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/platform/postgres"
	platformRedis "leaddesk/internal/platform/redis"
	"leaddesk/internal/storage"
	httptransport "leaddesk/internal/transport/http"
	txcontext "leaddesk/pkg/platform/tx"
)

// revocationList is satisfied by both the Redis and the Postgres lists.
type revocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformRedis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}

	var revoked revocationList
	checkers := []httptransport.HealthChecker{dbHealth{db: db}}
	if redisClient != nil {
		revoked = revocation.NewRedisList(redisClient.Client)
		checkers = append(checkers, redisClient)
		defer redisClient.Close()
	} else {
		revoked = revocation.NewPostgresList(db)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	auditStore := auditPostgres.New(db)
	recorder := audit.NewRecorder(auditStore)
	runner := txcontext.NewRunner(db)
	pipeline := storage.NewPipeline(runner, recorder, m)

	userStore := identityPostgres.New(db)
	clientStore := clientPostgres.New(db)
	leadStore := leadPostgres.New(db)

	userService := identity.NewService(userStore, pipeline)
	clientService := client.NewService(clientStore, pipeline)
	leadService := lead.NewService(leadStore, clientService, pipeline)
	auditService := audit.NewService(auditStore)

	tokens := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)
	gate := authz.NewGate(tokens)
	authService := auth.NewService(userStore, tokens, revoked, cfg.AccessTokenTTL, log)

	router := httptransport.New(httptransport.Deps{
		Logger:     log,
		Metrics:    m,
		Registry:   registry,
		Gate:       gate,
		Revocation: revoked,
		Auth:       authHandler.New(authService, log),
		Users:      identityHandler.New(userService, log),
		Clients:    clientHandler.New(clientService, log),
		Leads:      leadHandler.New(leadService, log),
		Audit:      auditHandler.New(auditService),
		Checkers:   checkers,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting leaddesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if cfg.StreamEnabled() {
		publisher, err := stream.New(ctx, cfg.KafkaBrokers, cfg.AuditStreamTopic, auditStore, log, stream.WithMetrics(m))
		if err != nil {
			log.Error("audit stream setup failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			defer publisher.Close()
			return publisher.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
