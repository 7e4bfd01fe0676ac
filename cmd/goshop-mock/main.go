package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goShop/internal/fakeapi"
	"github.com/MrEthical07/goShop/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8000", "listen address")
		accessTTL  = flag.Duration("access-ttl", 5*time.Minute, "access token lifetime")
		refreshTTL = flag.Duration("refresh-ttl", 24*time.Hour, "refresh token lifetime")
		rotate     = flag.Bool("rotate-refresh", false, "issue a new refresh token on every refresh")
		secret     = flag.String("secret", "", "HMAC signing secret; GOSHOP_MOCK_SECRET or a built-in value if empty")
		seed       = flag.Bool("seed", true, "load the demo catalog and the admin/alice accounts")
		attempts   = flag.Int("login-attempts", 0, "failed logins per username before throttling; 0 disables")
		window     = flag.Duration("login-window", time.Minute, "login throttle window")
		redisAddr  = flag.String("redis-addr", "", "redis for the login throttle; miniredis if empty")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := fakeapi.DefaultConfig()
	cfg.AccessTTL = *accessTTL
	cfg.RefreshTTL = *refreshTTL
	cfg.RotateRefresh = *rotate
	cfg.Seed = *seed
	if s := *secret; s != "" {
		cfg.Secret = []byte(s)
	} else if s := os.Getenv("GOSHOP_MOCK_SECRET"); s != "" {
		cfg.Secret = []byte(s)
	}

	if *attempts > 0 {
		rdb, closeRedis, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "goshop-mock: %v\n", err)
			os.Exit(1)
		}
		defer closeRedis()
		cfg.Redis = rdb
		cfg.LoginThrottle = &rate.Config{MaxAttempts: *attempts, Window: *window}
	}

	srv, err := fakeapi.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goshop-mock: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(*addr) }()
	logger.Info("goShop: mock backend listening", "base_url", "http://"+*addr+srv.Prefix(), "access_ttl", cfg.AccessTTL)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("goShop: mock backend stopped", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("goShop: mock backend shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("goShop: mock backend stopped")
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
