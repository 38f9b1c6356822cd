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

	"github.com/joho/godotenv"

	"github.com/ofscp/server/internal/api"
	"github.com/ofscp/server/internal/config"
	"github.com/ofscp/server/internal/federation"
	"github.com/ofscp/server/internal/graph"
	"github.com/ofscp/server/internal/identity"
	"github.com/ofscp/server/internal/middleware"
	"github.com/ofscp/server/internal/realtime"
	"github.com/ofscp/server/internal/signature"
	"github.com/ofscp/server/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, continuing with process environment")
	}

	cfg := config.Get()
	setupLogging(cfg)

	db, err := store.Open(cfg.Store.Backend, cfg.Store.RedisAddr, cfg.Store.PostgresDSN)
	if err != nil {
		slog.Error("failed to open persistence backend", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer db.Close()

	hasher := identity.NewPasswordHasher(cfg.Security.Argon2TimeCost, cfg.Security.Argon2MemoryKiB, cfg.Security.Argon2Parallelism)
	identityRegistry := identity.NewRegistry(db, hasher, cfg.Federation.Domain)
	resourceGraph := graph.New(db)
	peerLedger := federation.NewPeerLedger(db)

	outboundTimeout := time.Duration(cfg.Federation.OutboundTimeoutSec) * time.Second
	resolver := signature.NewResolver(identityRegistry, cfg.Federation.Domain, outboundTimeout, cfg.Federation.LocalAddressPrefixes)
	verifier := signature.NewVerifier(resolver, time.Duration(cfg.Signature.ClockSkewMinutes)*time.Minute)

	router := federation.NewRouter(cfg.Federation.Domain, outboundTimeout, cfg.Federation.LocalAddressPrefixes, identityRegistry, resourceGraph, peerLedger)

	hubRegistry := realtime.NewRegistry()
	realtimeServer := realtime.NewServer(hubRegistry, resourceGraph, verifier)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		MaxCallsPerMinute: cfg.Security.RateLimitPerMinute,
		BurstSize:         cfg.Security.RateLimitBurst,
	})

	apiServer := api.NewServer(cfg.Federation.Domain, identityRegistry, resourceGraph, router, peerLedger, verifier, realtimeServer, rateLimiter)

	httpServer := &http.Server{
		Addr:         cfg.Server.Interface + ":" + cfg.Server.Port,
		Handler:      apiServer.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("ofscp server listening", "addr", httpServer.Addr, "domain", cfg.Federation.Domain, "storeBackend", cfg.Store.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	realtimeServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
