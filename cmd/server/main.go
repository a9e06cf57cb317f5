package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"padelclub/backend/internal/cache"
	"padelclub/backend/internal/config"
	"padelclub/backend/internal/httpapi"
	"padelclub/backend/internal/service"
	"padelclub/backend/internal/store"
	"padelclub/backend/internal/store/memory"
	"padelclub/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("[server] invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo store.Repository
		err  error
	)
	if cfg.DatabaseURL != "" {
		repo, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[server] postgres: %v", err)
		}
		log.Printf("[server] using postgres repository")
	} else {
		repo = memory.NewSeeded()
		log.Printf("[server] WARN: DATABASE_URL not set, using in-memory repository")
	}
	defer repo.Close()

	var ledgerCache cache.LedgerCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisLedgerCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LedgerCacheTTL)
		if err != nil {
			log.Printf("[server] WARN: redis unavailable, ledger cache disabled: %v", err)
		} else {
			ledgerCache = rc
			defer rc.Close()
			log.Printf("[server] ledger cache on redis %s", cfg.RedisAddr)
		}
	}

	svc := service.New(repo, ledgerCache)
	auth, err := httpapi.NewAuthManager(repo, cfg.AuthSecret, cfg.AccessTokenTTL, cfg.SupervisorPIN)
	if err != nil {
		log.Fatalf("[server] auth: %v", err)
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] club %s listening on :%s", cfg.ClubID, cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[server] shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] WARN: shutdown: %v", err)
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be at least 32 characters")
	}
	if err := validatePINStrength(cfg.SupervisorPIN); err != nil {
		return err
	}
	return nil
}

func validatePINStrength(pin string) error {
	if len(pin) < 6 {
		return errors.New("SUPERVISOR_PIN must be at least 6 digits")
	}
	for _, weak := range []string{"123456", "111111", "000000", "654321", "123123"} {
		if pin == weak {
			return fmt.Errorf("SUPERVISOR_PIN %q is too common", pin)
		}
	}
	allSame := true
	ascending := true
	descending := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
		}
		if pin[i] != pin[i-1]+1 {
			ascending = false
		}
		if pin[i] != pin[i-1]-1 {
			descending = false
		}
	}
	if allSame || ascending || descending {
		return errors.New("SUPERVISOR_PIN must not be a trivial sequence")
	}
	return nil
}
