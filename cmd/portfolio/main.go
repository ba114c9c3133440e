// Command portfolio serves the portfolio content API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aTrapDeer/portfolio-api/internal/auth"
	"github.com/aTrapDeer/portfolio-api/internal/config"
	"github.com/aTrapDeer/portfolio-api/internal/database"
	"github.com/aTrapDeer/portfolio-api/internal/handler"
	"github.com/aTrapDeer/portfolio-api/internal/logging"
	"github.com/aTrapDeer/portfolio-api/internal/metrics"
	"github.com/aTrapDeer/portfolio-api/internal/revalidate"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

// HTTP server timeouts. Writes get longer because images travel inline.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("portfolio: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, "portfolio")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, db, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server",
			zap.String("addr", cfg.Addr),
			zap.String("db_driver", cfg.DBDriver),
			zap.Bool("auth_enabled", cfg.AuthEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// newHandler wires the configured collaborators into the router.
func newHandler(cfg *config.Config, db *gorm.DB, log *zap.Logger) http.Handler {
	var authenticator *auth.Authenticator
	if cfg.AuthEnabled {
		authenticator = auth.New(store.NewProfiles(db), auth.Options{
			Secret:      []byte(cfg.JWTSecret),
			TTL:         cfg.TokenTTL,
			MaxAttempts: cfg.LoginMaxAttempts,
			Lockout:     cfg.LoginLockout,
		})
	}
	if cfg.AdminPassword == "" {
		log.Warn("admin_password is not set; new profiles must carry an adminPassword")
	}

	return handler.NewRouter(handler.Deps{
		DB:                db,
		Log:               log,
		Auth:              authenticator,
		Notifier:          revalidate.New(cfg.RevalidationURL, cfg.RevalidationSecret, log.Named("revalidate")),
		Metrics:           metrics.New(),
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AdminPassword:     cfg.AdminPassword,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
}
