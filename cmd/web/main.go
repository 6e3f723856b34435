package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/etitcombe/workjournal/config"
	"github.com/etitcombe/workjournal/db"
	"github.com/etitcombe/workjournal/session"
)

func main() {
	var (
		configPath string
		port       int
	)
	flag.StringVar(&configPath, "config", config.DefaultPath, "the YAML config file to read")
	flag.IntVar(&port, "port", 0, "the port to start the web server on (overrides the config)")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if port != 0 {
		cfg.Port = port
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("journal stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cfg config.Config, logger *zap.Logger) error {
	entryStore, err := db.NewEntryStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer entryStore.Close()

	if err := entryStore.Open(); err != nil {
		return err
	}

	adminStore, err := db.NewAdminStore(cfg.Admin.Email, cfg.Admin.PasswordHash, config.DefaultAdminPassword)
	if err != nil {
		return err
	}
	if cfg.Admin.PasswordHash == "" {
		logger.Warn("no admin password hash configured, using the default password")
	}

	sessions, err := session.NewCodec(session.Options{
		Name:    cfg.Cookie.Name,
		Secrets: cfg.Cookie.Secrets,
		Secure:  cfg.Production(),
		MaxAge:  session.DefaultMaxAge,
	})
	if err != nil {
		return err
	}

	key, err := csrfKey(cfg)
	if err != nil {
		return err
	}

	server := newServer(logger, entryStore, adminStore, sessions, serverOptions{CSRFKey: key, Secure: cfg.Production()})

	errorLog, err := zap.NewStdLogAt(logger.Named("http"), zapcore.ErrorLevel)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ErrorLog:     errorLog,
		Handler:      server,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("journal listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server Shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// csrfKey decodes the configured base64 CSRF key, or derives one from the
// signing cookie secret when none is configured.
func csrfKey(cfg config.Config) ([]byte, error) {
	if cfg.CSRFKey == "" {
		sum := sha256.Sum256([]byte("csrf:" + cfg.Cookie.Secrets[0]))
		return sum[:], nil
	}
	key, err := base64.StdEncoding.DecodeString(cfg.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("csrf key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("csrf key: got %d bytes, want 32", len(key))
	}
	return key, nil
}
