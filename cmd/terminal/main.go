package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nairapos/terminal/internal/cart"
	"nairapos/terminal/internal/config"
	"nairapos/terminal/internal/httpapi"
	"nairapos/terminal/internal/inventory"
	"nairapos/terminal/internal/notify"
	"nairapos/terminal/internal/printing"
	"nairapos/terminal/internal/storage"
	"nairapos/terminal/internal/storage/memory"
	redisstore "nairapos/terminal/internal/storage/redis"
	"nairapos/terminal/pkg/logger"
)

func main() {
	log := logger.Must(logger.New())
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store storage.Store
	closers := make([]func() error, 0, 1)

	if cfg.RedisAddr != "" {
		redis := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger.Named(log, "storage"))
		if err := redis.Ping(ctx); err != nil {
			log.Warn("redis unavailable, falling back to in-memory storage", zap.Error(err))
			store = memory.New()
		} else {
			store = redis
			closers = append(closers, redis.Close)
			log.Info("storage: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		store = memory.New()
		log.Info("storage: in-memory")
	}

	hub := notify.NewHub(logger.Named(log, "notify"), cfg.NotificationTimeout)
	remote := inventory.NewClient(cfg.APIBaseURL, cfg.APIKey)

	engine := cart.NewEngine(remote, store, hub, logger.Named(log, "cart"))
	if err := engine.Load(ctx); err != nil {
		log.Warn("could not hydrate cart from storage", zap.Error(err))
	}
	pending := cart.NewPendingManager(store, hub, logger.Named(log, "pending"))
	if err := pending.Load(ctx); err != nil {
		log.Warn("could not hydrate held sales from storage", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	watchStorage(watchCtx, store, pending, log)

	printers := printing.NewManager(hub, logger.Named(log, "printing"))
	if cfg.SerialPort != "" {
		printers.SetDefaultPrinter(cfg.SerialPort)
		log.Info("default printer configured", zap.String("port", cfg.SerialPort))
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL)
	seedCashiers(auth, log)

	api := httpapi.New(engine, pending, printers, remote, store, hub, auth, cfg.AllowedOrigin, logger.Named(log, "httpapi"))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("terminal listening", zap.String("addr", server.Addr), zap.String("terminal_id", cfg.TerminalID))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close error", zap.Error(err))
		}
	}

	log.Info("terminal stopped")
}

// watchStorage follows change events on the shared storage namespace. Held
// sales are rehydrated so a hold placed from a second register shows up here;
// other keys are only logged, since the in-memory cart is this register's
// source of truth.
func watchStorage(ctx context.Context, store storage.Store, pending *cart.PendingManager, log *zap.Logger) {
	events, err := store.Watch(ctx)
	if err != nil {
		log.Warn("storage change watch unavailable", zap.Error(err))
		return
	}

	go func() {
		for event := range events {
			log.Debug("storage key changed", zap.String("key", event.Key))
			if event.Key == storage.KeyPendingSales {
				if err := pending.Load(ctx); err != nil {
					log.Warn("reloading held sales failed", zap.Error(err))
				}
			}
		}
	}()
}

// seedCashiers registers the fixed terminal users. Passwords come from the
// environment so a deployment never ships the defaults.
func seedCashiers(auth *httpapi.AuthManager, log *zap.Logger) {
	users := map[string]string{
		"cashier": envOr("CASHIER_PASSWORD", "cashier123"),
		"manager": envOr("MANAGER_PASSWORD", "manager123"),
	}
	for username, password := range users {
		if err := auth.SeedUser(username, password); err != nil {
			log.Fatal("could not seed user", zap.String("username", username), zap.Error(err))
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
