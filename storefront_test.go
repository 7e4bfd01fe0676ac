package goShop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goShop/internal/fakeapi"
	"github.com/MrEthical07/goShop/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type storefront struct {
	client    *Client
	server    *fakeapi.Server
	baseURL   string
	redirects *redirectRecorder
}

func newStorefront(t *testing.T, mutate func(*fakeapi.Config), configure func(*Builder)) *storefront {
	t.Helper()
	cfg := fakeapi.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := fakeapi.New(cfg)
	if err != nil {
		t.Fatalf("fake backend: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	redirects := &redirectRecorder{}
	b := New().WithBaseURL(ts.URL + srv.Prefix()).WithLoginRedirector(redirects)
	if configure != nil {
		configure(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(c.Close)
	return &storefront{client: c, server: srv, baseURL: ts.URL + srv.Prefix(), redirects: redirects}
}

func (s *storefront) login(t *testing.T, username, pw string) {
	t.Helper()
	if _, err := s.client.Login(context.Background(), LoginRequest{Username: username, Password: pw}); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
}

func TestLoginStoresTokens(t *testing.T) {
	s := newStorefront(t, nil, nil)
	ctx := context.Background()

	resp, err := s.client.Login(ctx, LoginRequest{Username: "alice", Password: "alice-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User == nil || resp.User.Username != "alice" {
		t.Fatalf("unexpected login response %+v", resp)
	}
	creds := s.client.Session().Credentials()
	if creds.AccessToken != resp.Access || creds.RefreshToken != resp.Refresh {
		t.Fatalf("expected the issued pair to be stored")
	}
	claims, err := s.client.AccessClaims()
	if err != nil || claims.Role != "customer" || claims.UserID == "" {
		t.Fatalf("unexpected claims %+v (%v)", claims, err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	s := newStorefront(t, nil, nil)

	_, err := s.client.Login(context.Background(), LoginRequest{Username: "alice", Password: "nope"})
	if StatusOf(err) != http.StatusUnauthorized || IsSessionExpired(err) {
		t.Fatalf("expected the backend's 401, got %v", err)
	}
	if s.server.Calls(fakeapi.RouteRefresh) != 0 || s.redirects.count() != 0 {
		t.Fatalf("failed login must not trigger session recovery")
	}
	if s.client.MetricsSnapshot().Counters[MetricLoginFailure] != 1 {
		t.Fatalf("expected login failure to be counted")
	}
}

func TestRegisterFieldErrors(t *testing.T) {
	s := newStorefront(t, nil, nil)

	_, err := s.client.Register(context.Background(), RegisterRequest{Username: "alice", Email: "a@example.com", Password: "long-enough"})
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	details, ok := apiErr.Details.(map[string]any)
	if !ok || details["username"] == nil {
		t.Fatalf("expected field errors in details, got %#v", apiErr.Details)
	}

	resp, err := s.client.Register(context.Background(), RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "long-enough"})
	if err != nil || !s.client.IsAuthenticated() || resp.User.Username != "bob" {
		t.Fatalf("expected registration to sign in, got %v", err)
	}
}

func TestExpiredAccessRecoversAgainstBackend(t *testing.T) {
	s := newStorefront(t, nil, nil)
	s.login(t, "alice", "alice-password")
	ctx := context.Background()
	before := s.client.Session().AccessToken()

	s.server.ExpireAccessTokens()
	s.server.ResetCalls()

	if _, err := s.client.Cart(ctx); err != nil {
		t.Fatalf("cart: %v", err)
	}
	if s.server.Calls(fakeapi.RouteRefresh) != 1 || s.server.Calls(fakeapi.RouteCart) != 2 {
		t.Fatalf("expected one refresh and one retry, got %d/%d",
			s.server.Calls(fakeapi.RouteRefresh), s.server.Calls(fakeapi.RouteCart))
	}
	after := s.client.Session().AccessToken()
	if after == before || after == "" {
		t.Fatalf("expected a new access token")
	}

	reqs := s.server.Requests()
	last := reqs[len(reqs)-1]
	if last.Authorization != "Bearer "+after {
		t.Fatalf("retry carried %q, want the refreshed token", last.Authorization)
	}
	if last.RequestID != reqs[0].RequestID {
		t.Fatalf("expected attempt and retry to share a request id")
	}
	if reqs[1].Route != fakeapi.RouteRefresh || reqs[1].Authorization != "" {
		t.Fatalf("refresh must be sent without a bearer token, got %+v", reqs[1])
	}
}

func TestRotatedRefreshTokenIsStored(t *testing.T) {
	s := newStorefront(t, func(c *fakeapi.Config) { c.RotateRefresh = true }, nil)
	s.login(t, "alice", "alice-password")
	oldRefresh := s.client.Session().RefreshToken()

	s.server.ExpireAccessTokens()
	if _, err := s.client.Profile(context.Background()); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if got := s.client.Session().RefreshToken(); got == oldRefresh || got == "" {
		t.Fatalf("expected the rotated refresh token to be stored")
	}

	// The rotated token must keep working.
	s.server.ExpireAccessTokens()
	if _, err := s.client.OrderStats(context.Background()); err != nil {
		t.Fatalf("order stats after second expiry: %v", err)
	}
}

func TestRefreshFailureAgainstBackend(t *testing.T) {
	s := newStorefront(t, nil, nil)
	s.login(t, "alice", "alice-password")
	s.server.ExpireAccessTokens()
	s.server.FailRefresh(true)
	s.server.ResetCalls()

	_, err := s.client.Orders(context.Background())
	if !IsSessionExpired(err) {
		t.Fatalf("expected session expired, got %v", err)
	}
	if s.server.Calls(fakeapi.RouteOrders) != 1 {
		t.Fatalf("expected no retry, got %d attempts", s.server.Calls(fakeapi.RouteOrders))
	}
	if s.client.IsAuthenticated() || s.redirects.count() != 1 {
		t.Fatalf("expected cleared session and one redirect")
	}

	// Further authenticated queries fail locally.
	s.server.ResetCalls()
	if _, err := s.client.Cart(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(s.server.Requests()) != 0 {
		t.Fatalf("expected no network call without a session")
	}
}

func TestAuthenticatedQueriesWithoutSession(t *testing.T) {
	s := newStorefront(t, nil, nil)
	ctx := context.Background()

	checks := map[string]func() error{
		"profile":     func() error { _, err := s.client.Profile(ctx); return err },
		"order stats": func() error { _, err := s.client.OrderStats(ctx); return err },
		"cart":        func() error { _, err := s.client.Cart(ctx); return err },
		"cart items":  func() error { _, err := s.client.CartItems(ctx); return err },
		"orders":      func() error { _, err := s.client.Orders(ctx); return err },
		"order":       func() error { _, err := s.client.Order(ctx, 1); return err },
		"admin":       func() error { _, err := s.client.AdminOrders(ctx, AdminOrderFilter{}); return err },
		"dashboard":   func() error { _, err := s.client.AdminDashboard(ctx); return err },
	}
	for name, check := range checks {
		if err := check(); !errors.Is(err, ErrNotAuthenticated) || StatusOf(err) != http.StatusUnauthorized {
			t.Fatalf("%s: expected ErrNotAuthenticated, got %v", name, err)
		}
	}
	if len(s.server.Requests()) != 0 {
		t.Fatalf("expected no network calls, got %d", len(s.server.Requests()))
	}
	if s.redirects.count() != 0 {
		t.Fatalf("local auth failures must not redirect")
	}
}

func TestCatalogQueriesAreCached(t *testing.T) {
	s := newStorefront(t, nil, nil)
	ctx := context.Background()

	first, err := s.client.Products(ctx, ProductFilter{})
	if err != nil || len(first) != 4 {
		t.Fatalf("products: %d, %v", len(first), err)
	}
	if _, err := s.client.Products(ctx, ProductFilter{}); err != nil {
		t.Fatalf("products: %v", err)
	}
	if got := s.server.Calls(fakeapi.RouteProducts); got != 1 {
		t.Fatalf("expected the second list to come from cache, got %d calls", got)
	}

	books, err := s.client.Products(ctx, ProductFilter{Category: "Books"})
	if err != nil || len(books) != 1 {
		t.Fatalf("filtered products: %d, %v", len(books), err)
	}
	if got := s.server.Calls(fakeapi.RouteProducts); got != 2 {
		t.Fatalf("expected filters to be cached separately, got %d calls", got)
	}

	if _, err := s.client.Products(WithFreshQuery(ctx), ProductFilter{}); err != nil {
		t.Fatalf("fresh products: %v", err)
	}
	if got := s.server.Calls(fakeapi.RouteProducts); got != 3 {
		t.Fatalf("expected a fresh query to hit the backend, got %d calls", got)
	}

	p, err := s.client.Product(ctx, first[0].ID)
	if err != nil || p.ID != first[0].ID {
		t.Fatalf("product: %v", err)
	}
	if cents, _ := p.Price.Cents(); cents != 1999 {
		t.Fatalf("expected price 19.99, got %s", p.Price)
	}
	s.client.InvalidateQueries(ctx, Key(QueryProducts))
	if _, err := s.client.Product(ctx, first[0].ID); err != nil {
		t.Fatalf("product: %v", err)
	}
	if got := s.server.Calls(fakeapi.RouteProduct); got != 1 {
		t.Fatalf("invalidating products must not drop product entries, got %d calls", got)
	}

	_, err = s.client.Product(ctx, 9999)
	if StatusOf(err) != http.StatusNotFound || err.Error() != "Not found." {
		t.Fatalf("expected normalized 404, got %v", err)
	}
}

func TestCartMutationsInvalidateCart(t *testing.T) {
	s := newStorefront(t, nil, nil)
	s.login(t, "alice", "alice-password")
	ctx := context.Background()

	cart, err := s.client.Cart(ctx)
	if err != nil || len(cart.Items) != 0 {
		t.Fatalf("cart: %v", err)
	}
	products, _ := s.client.Products(ctx, ProductFilter{Search: "keyboard"})
	if len(products) != 1 {
		t.Fatalf("expected one keyboard")
	}

	item, err := s.client.AddToCart(ctx, products[0].ID, 0)
	if err != nil || item.Quantity != 1 {
		t.Fatalf("add to cart: %+v, %v", item, err)
	}
	cart, err = s.client.Cart(ctx)
	if err != nil || len(cart.Items) != 1 {
		t.Fatalf("expected the cart to be refetched with one item, got %+v, %v", cart, err)
	}
	if s.server.Calls(fakeapi.RouteCart) != 2 {
		t.Fatalf("expected two cart fetches, got %d", s.server.Calls(fakeapi.RouteCart))
	}

	if _, err := s.client.UpdateCartItem(ctx, item.ID, 2); err != nil {
		t.Fatalf("update: %v", err)
	}
	items, err := s.client.CartItems(ctx)
	if err != nil || len(items) != 1 || items[0].Quantity != 2 || int(items[0].Cart) != cart.ID {
		t.Fatalf("unexpected items %+v, %v", items, err)
	}

	summary, err := SummarizeCart(*mustCart(t, s.client))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// 2 x 89.50: free shipping, 17.90 tax
	if summary.Subtotal != 17900 || summary.Tax != 1790 || summary.Shipping != 0 || summary.Total != 19690 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if _, err := s.client.UpdateCartItem(ctx, item.ID, 50); StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	if err := s.client.RemoveFromCart(ctx, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if cart := mustCart(t, s.client); len(cart.Items) != 0 {
		t.Fatalf("expected empty cart after removal")
	}

	if _, err := s.client.AddToCart(ctx, products[0].ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.client.ClearCart(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cart := mustCart(t, s.client); len(cart.Items) != 0 {
		t.Fatalf("expected empty cart after clear")
	}
}

func mustCart(t *testing.T, c *Client) *Cart {
	t.Helper()
	cart, err := c.Cart(context.Background())
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	return cart
}

func TestCheckoutInvalidatesOrdersAndCart(t *testing.T) {
	sink := NewChannelSink(16)
	s := newStorefront(t, nil, func(b *Builder) { b.WithAuditSink(sink) })
	s.login(t, "alice", "alice-password")
	ctx := context.Background()

	if orders, err := s.client.Orders(ctx); err != nil || len(orders) != 0 {
		t.Fatalf("orders: %v", err)
	}
	if _, err := s.client.OrderStats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}

	products, _ := s.client.Products(ctx, ProductFilter{Search: "mouse"})
	if _, err := s.client.AddToCart(ctx, products[0].ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	summary, _ := SummarizeCart(*mustCart(t, s.client))

	order, err := s.client.CreateOrder(ctx, CreateOrderRequest{ShippingAddress: "1 Main St", ShippingPhone: "555-0100"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	total, _ := order.TotalAmount.Cents()
	if total != summary.Total {
		t.Fatalf("client summary %d disagrees with order total %d", summary.Total, total)
	}

	orders, err := s.client.Orders(ctx)
	if err != nil || len(orders) != 1 || orders[0].ID != order.ID {
		t.Fatalf("expected the new order to be listed, got %+v, %v", orders, err)
	}
	stats, err := s.client.OrderStats(ctx)
	if err != nil || stats.TotalOrders != 1 {
		t.Fatalf("expected refreshed stats, got %+v, %v", stats, err)
	}
	if cart := mustCart(t, s.client); len(cart.Items) != 0 {
		t.Fatalf("expected the cart to be emptied by checkout")
	}
	got, err := s.client.Order(ctx, order.ID)
	if err != nil || got.OrderNumber != order.OrderNumber || got.Status != OrderPending {
		t.Fatalf("order: %+v, %v", got, err)
	}

	s.client.Close()
	var sawOrder bool
	for ev := range drain(sink) {
		if ev.EventType == AuditOrderCreated && ev.Success && ev.Metadata["order_number"] == order.OrderNumber {
			sawOrder = true
		}
	}
	if !sawOrder {
		t.Fatalf("expected an order_created audit event")
	}
}

func drain(sink *ChannelSink) <-chan AuditEvent {
	out := make(chan AuditEvent, 64)
	for {
		select {
		case ev := <-sink.Events():
			out <- ev
		default:
			close(out)
			return out
		}
	}
}

func TestAdminOrderManagement(t *testing.T) {
	shopper := newStorefront(t, nil, nil)
	shopper.login(t, "alice", "alice-password")
	ctx := context.Background()

	products, _ := shopper.client.Products(ctx, ProductFilter{})
	if _, err := shopper.client.AddToCart(ctx, products[0].ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := shopper.client.CreateOrder(ctx, CreateOrderRequest{ShippingAddress: "x", ShippingPhone: "y"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = shopper.client.AdminDashboard(ctx)
	if StatusOf(err) != http.StatusForbidden || IsSessionExpired(err) {
		t.Fatalf("expected 403 for a customer, got %v", err)
	}
	if shopper.redirects.count() != 0 || !shopper.client.IsAuthenticated() {
		t.Fatalf("403 must not end the session")
	}

	admin, err := New().WithBaseURL(shopper.baseURL).Build()
	if err != nil {
		t.Fatalf("build admin client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.Login(ctx, LoginRequest{Username: "admin", Password: "admin-password"}); err != nil {
		t.Fatalf("admin login: %v", err)
	}

	pending, err := admin.AdminOrders(ctx, AdminOrderFilter{Status: OrderPending, User: "alice"})
	if err != nil || len(pending) != 1 || pending[0].User == nil || pending[0].User.Username != "alice" {
		t.Fatalf("admin orders: %+v, %v", pending, err)
	}
	dash, err := admin.AdminDashboard(ctx)
	if err != nil || dash.PendingOrders != 1 {
		t.Fatalf("dashboard: %+v, %v", dash, err)
	}

	updated, err := admin.UpdateOrderStatus(ctx, order.ID, OrderShipped)
	if err != nil || updated.Status != OrderShipped || updated.ShippedDate == nil {
		t.Fatalf("update status: %+v, %v", updated, err)
	}

	// All three admin views were invalidated.
	pending, _ = admin.AdminOrders(ctx, AdminOrderFilter{Status: OrderPending, User: "alice"})
	if len(pending) != 0 {
		t.Fatalf("expected no pending orders after shipping, got %d", len(pending))
	}
	dash, _ = admin.AdminDashboard(ctx)
	if dash.PendingOrders != 0 {
		t.Fatalf("expected dashboard to be refetched")
	}
	one, err := admin.AdminOrder(ctx, order.ID)
	if err != nil || one.Status != OrderShipped {
		t.Fatalf("admin order: %+v, %v", one, err)
	}
}

func TestLogoutRevokesAndClears(t *testing.T) {
	s := newStorefront(t, nil, nil)
	s.login(t, "alice", "alice-password")
	ctx := context.Background()
	if _, err := s.client.Cart(ctx); err != nil {
		t.Fatalf("cart: %v", err)
	}

	if err := s.client.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.client.IsAuthenticated() || s.client.Session().RefreshToken() != "" {
		t.Fatalf("expected tokens cleared")
	}
	if s.server.Calls(fakeapi.RouteLogout) != 1 {
		t.Fatalf("expected one logout call")
	}
	var cached *Cart
	if s.client.cache.load(ctx, Key(QueryCart), &cached) {
		t.Fatalf("expected the cache to be cleared")
	}
}

func TestLogoutClearsOnBackendError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	c, redirects := newTestClient(t, h, nil)
	signIn(t, c, "A", "R")

	err := c.Logout(context.Background())
	if StatusOf(err) != http.StatusInternalServerError || err.Error() != "boom" {
		t.Fatalf("expected the backend error, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatalf("expected tokens cleared despite the error")
	}
	if redirects.count() != 0 {
		t.Fatalf("logout must not redirect")
	}
}

func TestUpdateProfileCachesUser(t *testing.T) {
	s := newStorefront(t, nil, nil)
	s.login(t, "alice", "alice-password")
	ctx := context.Background()

	email := "alice@shop.example"
	user, err := s.client.UpdateProfile(ctx, ProfileUpdate{Email: &email})
	if err != nil || user.Email != email {
		t.Fatalf("update profile: %+v, %v", user, err)
	}
	got, err := s.client.Profile(ctx)
	if err != nil || got.Email != email {
		t.Fatalf("profile: %+v, %v", got, err)
	}
	if s.server.Calls(fakeapi.RouteProfile) != 0 {
		t.Fatalf("expected the profile to be served from the updated cache entry")
	}
}

func TestInvalidArgumentsSendNothing(t *testing.T) {
	s := newStorefront(t, nil, nil)
	s.login(t, "alice", "alice-password")
	s.server.ResetCalls()
	ctx := context.Background()

	checks := map[string]error{
		"login":          second(s.client.Login(ctx, LoginRequest{Username: " "})),
		"register":       second(s.client.Register(ctx, RegisterRequest{Username: "bob"})),
		"profile":        second(s.client.UpdateProfile(ctx, ProfileUpdate{})),
		"product":        second(s.client.Product(ctx, 0)),
		"add":            second(s.client.AddToCart(ctx, 1, -1)),
		"add product":    second(s.client.AddToCart(ctx, 0, 1)),
		"update":         second(s.client.UpdateCartItem(ctx, 1, 0)),
		"remove":         s.client.RemoveFromCart(ctx, -3),
		"order":          second(s.client.Order(ctx, 0)),
		"checkout":       second(s.client.CreateOrder(ctx, CreateOrderRequest{ShippingAddress: "x"})),
		"admin filter":   second(s.client.AdminOrders(ctx, AdminOrderFilter{Status: "X"})),
		"admin status":   second(s.client.UpdateOrderStatus(ctx, 1, "shipped")),
		"admin order id": second(s.client.AdminOrder(ctx, -1)),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrInvalidArgument) || StatusOf(err) != http.StatusBadRequest {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
	if n := len(s.server.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func second[T any](_ T, err error) error { return err }

func TestRedisBackedSessionAndCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newStorefront(t, nil, func(b *Builder) { b.WithRedis(rdb) })
	s.login(t, "alice", "alice-password")
	ctx := context.Background()
	if _, err := s.client.Categories(ctx); err != nil {
		t.Fatalf("categories: %v", err)
	}

	other, err := New().WithBaseURL(s.baseURL).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer other.Close()
	if err := other.LoadSession(ctx); err != nil {
		t.Fatalf("load session: %v", err)
	}
	if other.Session().AccessToken() != s.client.Session().AccessToken() {
		t.Fatalf("expected the session to be shared through redis")
	}
	if _, err := other.Categories(ctx); err != nil {
		t.Fatalf("categories: %v", err)
	}
	if s.server.Calls(fakeapi.RouteCategories) != 1 {
		t.Fatalf("expected the second client to hit the shared cache")
	}
	if other.MetricsSnapshot().Counters[MetricCacheHit] != 1 {
		t.Fatalf("expected a cache hit to be counted")
	}
}

func TestThrottledLoginSurfacesBackendMessage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newStorefront(t, func(c *fakeapi.Config) {
		c.Redis = rdb
		c.LoginThrottle = &rate.Config{MaxAttempts: 1, Window: time.Minute}
	}, nil)
	ctx := context.Background()

	_, _ = s.client.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	_, err := s.client.Login(ctx, LoginRequest{Username: "alice", Password: "alice-password"})

	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected a 429 APIError, got %v", err)
	}
	if apiErr.Message != "Request was throttled. Expected available in 60 seconds." {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if s.client.IsAuthenticated() || s.redirects.count() != 0 {
		t.Fatalf("a throttled login must not sign in or redirect")
	}
	if n := s.server.Calls(fakeapi.RouteRefresh); n != 0 {
		t.Fatalf("expected no refresh, got %d", n)
	}
}
