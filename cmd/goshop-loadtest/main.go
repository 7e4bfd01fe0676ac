package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/internal/fakeapi"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		clients     = flag.Int("clients", 64, "number of signed-in clients")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "calls per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address for sessions and cache; if empty, REDIS_ADDR env or miniredis is used")
		rotate      = flag.Bool("rotate-refresh", false, "backend rotates refresh tokens")
		refreshLag  = flag.Duration("refresh-delay", 20*time.Millisecond, "backend delay on every refresh")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	rdb, cleanupRedis, err := openRedis(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanupRedis()

	cfg := fakeapi.DefaultConfig()
	cfg.AccessTTL = time.Hour
	cfg.RotateRefresh = *rotate
	srv, err := fakeapi.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake backend: %v\n", err)
		os.Exit(1)
	}
	srv.SetRefreshDelay(*refreshLag)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	baseURL := ts.URL + srv.Prefix()

	fmt.Printf("signing in %d clients...\n", *clients)
	startSeed := time.Now()
	pool, err := signInClients(ctx, srv, rdb, baseURL, *clients)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range pool {
			c.Close()
		}
	}()
	fmt.Printf("signed in in %s\n", time.Since(startSeed).Round(time.Millisecond))

	steady := runPhase(ctx, pool, *ops, *concurrency)

	// Every held access token is now rejected; each client should refresh exactly once.
	srv.ResetCalls()
	srv.ExpireAccessTokens()
	expiry := runPhase(ctx, pool, *ops, *concurrency)
	refreshCalls := srv.Calls(fakeapi.RouteRefresh)

	var unauthorized, shared, retries, expired uint64
	for _, c := range pool {
		snap := c.MetricsSnapshot()
		unauthorized += snap.Counters[goShop.MetricUnauthorized]
		shared += snap.Counters[goShop.MetricRefreshShared]
		retries += snap.Counters[goShop.MetricRetry]
		expired += snap.Counters[goShop.MetricSessionExpired]
	}

	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("expiry", expiry)
	fmt.Printf("refresh: backend_calls=%d clients=%d unauthorized=%d shared=%d retries=%d sessions_expired=%d\n",
		refreshCalls, len(pool), unauthorized, shared, retries, expired)
	if refreshCalls > len(pool) {
		fmt.Fprintf(os.Stderr, "refresh was not de-duplicated: %d calls for %d clients\n", refreshCalls, len(pool))
		os.Exit(1)
	}
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// signInClients registers one backend user per client and signs each client in. Every
// client keeps its session and cache under its own redis prefix.
func signInClients(ctx context.Context, srv *fakeapi.Server, rdb redis.UniversalClient, baseURL string, n int) ([]*goShop.Client, error) {
	pool := make([]*goShop.Client, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("load-%d", i)
		pw := fmt.Sprintf("load-password-%d", i)
		if _, err := srv.AddUser(username, username+"@example.com", pw, "customer"); err != nil {
			return pool, err
		}

		cfg := goShop.DefaultConfig()
		cfg.API.BaseURL = baseURL
		cfg.Session.RedisPrefix = fmt.Sprintf("goshop:lt:%d:session", i)
		cfg.Cache.RedisPrefix = fmt.Sprintf("goshop:lt:%d:cache", i)
		cfg.Metrics.EnableLatencyHistograms = true

		c, err := goShop.New().WithConfig(cfg).WithRedis(rdb).Build()
		if err != nil {
			return pool, err
		}
		pool = append(pool, c)
		if _, err := c.Login(ctx, goShop.LoginRequest{Username: username, Password: pw}); err != nil {
			return pool, err
		}
	}
	return pool, nil
}

// runPhase issues ops calls spread over random clients. Profile and order stats bypass
// the cache so every call reaches the backend with the client's bearer token.
func runPhase(ctx context.Context, pool []*goShop.Client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)
	fresh := goShop.WithFreshQuery(ctx)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := pool[r.Intn(len(pool))]
				t0 := time.Now()
				var err error
				switch i % 3 {
				case 0:
					_, err = c.Profile(fresh)
				case 1:
					_, err = c.OrderStats(fresh)
				default:
					_, err = c.Products(ctx, goShop.ProductFilter{})
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
