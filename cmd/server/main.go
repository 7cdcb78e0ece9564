package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"videotube/backend/internal/account/repository"
	"videotube/backend/internal/config"
	"videotube/backend/internal/db"
	healthhandler "videotube/backend/internal/health/handler"
	identityhandler "videotube/backend/internal/identity/handler"
	"videotube/backend/internal/identity/service"
	"videotube/backend/internal/logging"
	"videotube/backend/internal/security"
	"videotube/backend/internal/server"
	telemetryotel "videotube/backend/internal/telemetry/otel"
)

const serviceName = "videotube-auth"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	var (
		repo   repository.Repository
		pinger healthhandler.Pinger
	)
	if cfg.DatabaseURL == "" {
		if !cfg.IsDevelopment() {
			return errors.New("DATABASE_URL is required outside development")
		}
		logger.Warn("DATABASE_URL not set; using in-memory account store")
		repo = repository.NewMemoryRepository()
	} else {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		repo = repository.NewPostgresRepository(pool)
		pinger = pool
	}

	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
		Leeway:        cfg.Leeway(),
	})
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	svc := service.NewAuthService(repo, security.NewHasher(cfg.BcryptCost), tokens, service.Options{
		RevokeSessionsOnPasswordChange: cfg.RevokeSessionsOnPasswordChange,
		Logger:                         logger,
	})
	authn := service.NewAuthenticator(repo, tokens, logger)
	health := healthhandler.NewHandler(pinger, logger)

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.HTTPDeps{
			Users:      identityhandler.NewUserHandler(svc, logger, cfg.CookieSecure),
			Health:     health,
			Auth:       authn,
			Logger:     logger,
			CORSOrigin: cfg.CORSOrigin,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcSrv, grpcHealth := server.NewGRPCServer(authn, logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		logger.Info("grpc server listening", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		grpcHealth.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return err
	})
	return g.Wait()
}
