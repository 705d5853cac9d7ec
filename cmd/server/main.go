package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"ucidriver/configs"
	"ucidriver/internal/httpapi"
	"ucidriver/internal/pool"
	"ucidriver/pkg/uci"
)

func main() {
	cfg := configs.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	var limiter *rate.Limiter
	if cfg.Pool.CheckoutPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Pool.CheckoutPerSecond), cfg.Pool.CheckoutBurst)
	}

	enginePool := pool.New(cfg.Pool.Capacity, limiter)
	enginePool.Register("stockfish", stockfishFactory(cfg))

	router := httpapi.NewRouter(cfg, enginePool)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.Infof("Starting server on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	enginePool.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// stockfishFactory builds the pool.Factory for the "stockfish" engine name:
// spawn the configured binary, run the handshake, apply the configured
// option profile, and leave the session ready for a new game.
func stockfishFactory(cfg *configs.Config) pool.Factory {
	return func(ctx context.Context) (*uci.Session, error) {
		transport := uci.NewProcessTransport(cfg.Engine.BinaryPath)
		session := uci.NewSession(transport)

		if err := session.Start(); err != nil {
			return nil, err
		}

		hctx, cancel := context.WithTimeout(ctx, cfg.Session.HandshakeTimeout)
		defer cancel()
		if err := session.Handshake(hctx); err != nil {
			session.Dispose()
			return nil, err
		}

		if err := applyEngineOptions(ctx, session, cfg.Engine); err != nil {
			session.Dispose()
			return nil, err
		}

		rctx, rcancel := context.WithTimeout(ctx, cfg.Session.ReadyTimeout)
		defer rcancel()
		if err := session.WaitReady(rctx); err != nil {
			session.Dispose()
			return nil, err
		}

		if err := session.NewGame(ctx); err != nil {
			session.Dispose()
			return nil, err
		}

		return session, nil
	}
}

func applyEngineOptions(ctx context.Context, session *uci.Session, engine configs.EngineConfig) error {
	options := map[string]string{
		"Hash":    strconv.Itoa(engine.HashSizeMB),
		"Threads": strconv.Itoa(engine.Threads),
	}
	for name, value := range options {
		if err := session.SetOption(ctx, name, value); err != nil {
			return err
		}
	}
	if engine.MultiPV > 1 {
		if err := session.SetMultiPV(ctx, engine.MultiPV); err != nil {
			return err
		}
	}
	return nil
}
