package goShop

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goShop/cache"
)

// Query roots. The first segment of every [QueryKey] is one of these.
const (
	QueryUser        = "user"
	QueryUserStats   = "userStats"
	QueryProducts    = "products"
	QueryProduct     = "product"
	QueryCategories  = "categories"
	QueryCart        = "cart"
	QueryCartItems   = "cartItems"
	QueryOrders      = "orders"
	QueryOrder       = "order"
	QueryAdminOrders = "adminOrders"
	QueryAdminOrder  = "adminOrder"
	QueryAdminStats  = "adminStats"
)

var defaultStaleTimes = map[string]time.Duration{
	QueryUser:        5 * time.Minute,
	QueryUserStats:   2 * time.Minute,
	QueryProducts:    5 * time.Minute,
	QueryProduct:     5 * time.Minute,
	QueryCategories:  10 * time.Minute,
	QueryCart:        30 * time.Second,
	QueryCartItems:   30 * time.Second,
	QueryOrders:      2 * time.Minute,
	QueryOrder:       2 * time.Minute,
	QueryAdminOrders: time.Minute,
	QueryAdminOrder:  time.Minute,
	QueryAdminStats:  30 * time.Second,
}

const keySeparator = "\x1f"

// QueryKey identifies a cached query as an ordered list of segments. Invalidating a key
// drops every entry whose key starts with the same segments.
type QueryKey []string

// Key builds a QueryKey from its segments.
func Key(segments ...string) QueryKey {
	return QueryKey(segments)
}

func idKey(root string, id int) QueryKey {
	return QueryKey{root, strconv.Itoa(id)}
}

// paramsKey appends the non-empty params in encoded form; url.Values.Encode sorts by key.
func paramsKey(root string, params url.Values) QueryKey {
	for k, vs := range params {
		if len(vs) == 0 || (len(vs) == 1 && vs[0] == "") {
			params.Del(k)
		}
	}
	if len(params) == 0 {
		return QueryKey{root}
	}
	return QueryKey{root, params.Encode()}
}

// String encodes the key with a terminator after each segment, so "product" never
// matches "products" as a prefix.
func (k QueryKey) String() string {
	var b strings.Builder
	for _, s := range k {
		b.WriteString(s)
		b.WriteString(keySeparator)
	}
	return b.String()
}

func (k QueryKey) root() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

type queryCache struct {
	store   cache.Store
	enabled bool
	stale   map[string]time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

func newQueryCache(cfg CacheConfig, store cache.Store, logger *slog.Logger, metrics *Metrics) *queryCache {
	stale := make(map[string]time.Duration, len(defaultStaleTimes))
	for k, v := range defaultStaleTimes {
		stale[k] = v
	}
	for k, v := range cfg.StaleTimes {
		stale[k] = v
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &queryCache{
		store:   store,
		enabled: cfg.Enabled,
		stale:   stale,
		logger:  logger,
		metrics: metrics,
	}
}

// load decodes the cached entry for key into out. Backend failures count as misses.
func (q *queryCache) load(ctx context.Context, key QueryKey, out any) bool {
	if !q.enabled {
		return false
	}
	raw, ok, err := q.store.Get(ctx, key.String())
	if err != nil {
		q.logger.Warn("goShop: query cache read failed", "query", key.root(), "error", err)
		return false
	}
	if !ok || json.Unmarshal(raw, out) != nil {
		q.metrics.Inc(MetricCacheMiss)
		return false
	}
	q.metrics.Inc(MetricCacheHit)
	return true
}

func (q *queryCache) save(ctx context.Context, key QueryKey, v any) {
	if !q.enabled {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := q.store.Set(ctx, key.String(), raw, q.stale[key.root()]); err != nil {
		q.logger.Warn("goShop: query cache write failed", "query", key.root(), "error", err)
	}
}

func (q *queryCache) invalidate(ctx context.Context, keys ...QueryKey) {
	if !q.enabled {
		return
	}
	for _, key := range keys {
		if _, err := q.store.DeletePrefix(ctx, key.String()); err != nil {
			q.logger.Warn("goShop: query cache invalidation failed", "query", key.root(), "error", err)
			continue
		}
		q.metrics.Inc(MetricCacheInvalidation)
	}
}

func (q *queryCache) clear(ctx context.Context) {
	if !q.enabled {
		return
	}
	if err := q.store.Clear(ctx); err != nil {
		q.logger.Warn("goShop: query cache clear failed", "error", err)
	}
}

// cachedQuery serves key from the cache or runs load and caches its result. Queries with
// authRequired fail without a network call when no access token is held.
func cachedQuery[T any](ctx context.Context, c *Client, key QueryKey, authRequired bool, load func(context.Context, *T) error) (T, error) {
	var zero T
	if c.closed.Load() {
		return zero, &APIError{Message: ErrClientClosed.Error(), Status: 500, Err: ErrClientClosed}
	}
	if authRequired && !c.session.Authenticated() {
		return zero, notAuthenticatedError()
	}

	var out T
	if !bypassCacheFromContext(ctx) && c.cache.load(ctx, key, &out) {
		return out, nil
	}
	if err := load(ctx, &out); err != nil {
		return zero, err
	}
	c.cache.save(ctx, key, out)
	return out, nil
}
