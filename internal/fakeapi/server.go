package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goShop/internal/rate"
	"github.com/MrEthical07/goShop/jwt"
	"github.com/MrEthical07/goShop/middleware"
	"github.com/MrEthical07/goShop/password"
)

// DefaultPrefix is the path prefix of every route.
const DefaultPrefix = "/api/v1.1.1"

// Route names used by [Server.Calls]. They are the route patterns without the prefix.
const (
	RouteLogin            = "POST /auth/login/"
	RouteRegister         = "POST /auth/register/"
	RouteRefresh          = "POST /auth/token/refresh/"
	RouteLogout           = "POST /auth/logout/"
	RouteProfile          = "GET /profile/"
	RouteUpdateProfile    = "PATCH /profile/"
	RouteOrderStats       = "GET /orders/stats/"
	RouteProducts         = "GET /products/"
	RouteProduct          = "GET /products/:id/"
	RouteCategories       = "GET /categories/"
	RouteCart             = "GET /cart/"
	RouteCartItems        = "GET /cart/items/"
	RouteAddCartItem      = "POST /cart/items/"
	RouteUpdateCartItem   = "PATCH /cart/items/:id/"
	RouteRemoveCartItem   = "DELETE /cart/items/:id/"
	RouteClearCart        = "DELETE /cart/clear/"
	RouteOrders           = "GET /orders/"
	RouteCreateOrder      = "POST /orders/"
	RouteOrder            = "GET /orders/:id/"
	RouteAdminOrders      = "GET /admin/orders/"
	RouteAdminOrder       = "GET /admin/orders/:id/"
	RouteAdminOrderStatus = "PATCH /admin/orders/:id/status/"
	RouteAdminDashboard   = "GET /admin/dashboard/"
)

var errTokenRevoked = errors.New("token revoked")

// Config controls a fake backend.
type Config struct {
	Prefix     string
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefresh makes the refresh endpoint return a new refresh token and revoke the
	// presented one.
	RotateRefresh bool
	// PasswordParams defaults to password.MinimumParams.
	PasswordParams *password.Params
	// Seed loads the demo catalog and the admin/alice accounts.
	Seed bool
	// LoginThrottle limits failed logins per username. It needs Redis.
	LoginThrottle *rate.Config
	Redis         redis.UniversalClient
}

// DefaultConfig returns a seeded configuration with short-lived access tokens.
func DefaultConfig() Config {
	return Config{
		Prefix:     DefaultPrefix,
		Secret:     []byte("goshop-fake-backend-secret"),
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Seed:       true,
	}
}

// RecordedRequest is one request as seen by the fake backend.
type RecordedRequest struct {
	Route         string
	Path          string
	Authorization string
	RequestID     string
	Status        int
}

// Server is the fake backend. All methods are safe for concurrent use.
type Server struct {
	cfg      Config
	echo     *echo.Echo
	tokens   *jwt.Manager
	hasher   *password.Hasher
	throttle *rate.Limiter

	mu             sync.Mutex
	nextID         int
	accounts       map[int]*account
	categories     []categoryJSON
	products       map[int]*product
	carts          map[int]*cart
	orders         map[int]*order
	issuedAccess   map[string]struct{}
	revokedAccess  map[string]struct{}
	revokedRefresh map[string]struct{}
	calls          map[string]int
	requests       []RecordedRequest
	failRefresh    bool
	refreshDelay   time.Duration
	now            func() time.Time
}

// New builds a fake backend from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, "/")
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("fakeapi: secret is required")
	}
	params := password.MinimumParams()
	if cfg.PasswordParams != nil {
		params = *cfg.PasswordParams
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
	})
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(params)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:            cfg,
		tokens:         tokens,
		hasher:         hasher,
		accounts:       make(map[int]*account),
		products:       make(map[int]*product),
		carts:          make(map[int]*cart),
		orders:         make(map[int]*order),
		issuedAccess:   make(map[string]struct{}),
		revokedAccess:  make(map[string]struct{}),
		revokedRefresh: make(map[string]struct{}),
		calls:          make(map[string]int),
		now:            time.Now,
	}
	if cfg.LoginThrottle != nil {
		if cfg.Redis == nil {
			return nil, errors.New("fakeapi: login throttle requires redis")
		}
		if s.throttle, err = rate.New(cfg.Redis, *cfg.LoginThrottle); err != nil {
			return nil, err
		}
	}
	if cfg.Seed {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}
	s.echo = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.echo }

// Prefix returns the route prefix; a client's base URL is the server URL plus Prefix.
func (s *Server) Prefix() string { return s.cfg.Prefix }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(s.record)

	guard := echo.WrapMiddleware(middleware.Guard(verifier{s}))
	staff := echo.WrapMiddleware(middleware.RequireRole("admin"))

	api := e.Group(s.cfg.Prefix)
	api.POST("/auth/login/", s.login)
	api.POST("/auth/register/", s.register)
	api.POST("/auth/token/refresh/", s.refresh)
	api.POST("/auth/logout/", s.logout, guard)

	api.GET("/profile/", s.profile, guard)
	api.PATCH("/profile/", s.updateProfile, guard)

	api.GET("/categories/", s.listCategories)
	api.GET("/products/", s.listProducts)
	api.GET("/products/:id/", s.getProduct)

	api.GET("/cart/", s.getCart, guard)
	api.GET("/cart/items/", s.listCartItems, guard)
	api.POST("/cart/items/", s.addCartItem, guard)
	api.PATCH("/cart/items/:id/", s.updateCartItem, guard)
	api.DELETE("/cart/items/:id/", s.removeCartItem, guard)
	api.DELETE("/cart/clear/", s.clearCart, guard)

	api.GET("/orders/", s.listOrders, guard)
	api.POST("/orders/", s.createOrder, guard)
	api.GET("/orders/stats/", s.orderStats, guard)
	api.GET("/orders/:id/", s.getOrder, guard)

	admin := api.Group("/admin", guard, staff)
	admin.GET("/orders/", s.adminListOrders)
	admin.GET("/orders/:id/", s.adminGetOrder)
	admin.PATCH("/orders/:id/status/", s.adminUpdateStatus)
	admin.GET("/dashboard/", s.adminDashboard)

	return e
}

// record counts calls per route and keeps the request log. Errors are rendered here so
// the logged status is final.
func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		authorization := req.Header.Get(echo.HeaderAuthorization)
		requestID := req.Header.Get(echo.HeaderXRequestID)

		if err := next(c); err != nil {
			c.Error(err)
		}

		route := req.Method + " " + strings.TrimPrefix(c.Path(), s.cfg.Prefix)
		s.mu.Lock()
		s.calls[route]++
		s.requests = append(s.requests, RecordedRequest{
			Route:         route,
			Path:          req.URL.Path,
			Authorization: authorization,
			RequestID:     requestID,
			Status:        c.Response().Status,
		})
		s.mu.Unlock()
		return nil
	}
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	detail := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(status)
		}
	}
	_ = c.JSON(status, map[string]string{"detail": detail})
}

func notFound() error {
	return echo.NewHTTPError(http.StatusNotFound, "Not found.")
}

func fieldErrors(c echo.Context, fields map[string]string) error {
	body := make(map[string][]string, len(fields))
	for k, v := range fields {
		body[k] = []string{v}
	}
	return c.JSON(http.StatusBadRequest, body)
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, notFound()
	}
	return id, nil
}

// Calls returns how many requests reached route, e.g. [RouteRefresh].
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// ResetCalls clears the counters and the request log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = make(map[string]int)
	s.requests = nil
	s.mu.Unlock()
}

// ExpireAccessTokens revokes every access token issued so far. Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	for jti := range s.issuedAccess {
		s.revokedAccess[jti] = struct{}{}
	}
	s.mu.Unlock()
}

// FailRefresh makes the refresh endpoint reject every token while fail is set.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// SetRefreshDelay delays refresh responses, widening the window for concurrent callers.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// AddUser creates an account and returns its id.
func (s *Server) AddUser(username, email, pw, role string) (int, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findAccountLocked(username) != nil {
		return 0, errors.New("fakeapi: username taken")
	}
	id := s.newIDLocked()
	s.accounts[id] = &account{ID: id, Username: username, Email: email, Role: role, PasswordHash: hash}
	return id, nil
}

// IssueTokens returns a fresh token pair for username without going through login.
func (s *Server) IssueTokens(username string) (access, refresh string, err error) {
	s.mu.Lock()
	acct := s.findAccountLocked(username)
	s.mu.Unlock()
	if acct == nil {
		return "", "", errors.New("fakeapi: unknown user")
	}
	return s.issuePair(acct)
}

func (s *Server) newIDLocked() int {
	s.nextID++
	return s.nextID
}

func (s *Server) findAccountLocked(username string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.Username, username) {
			return a
		}
	}
	return nil
}

func (s *Server) issueAccess(acct *account) (string, error) {
	token, err := s.tokens.CreateAccess(strconv.Itoa(acct.ID), acct.Role)
	if err != nil {
		return "", err
	}
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.issuedAccess[claims.ID] = struct{}{}
	s.mu.Unlock()
	return token, nil
}

func (s *Server) issuePair(acct *account) (string, string, error) {
	access, err := s.issueAccess(acct)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.tokens.CreateRefresh(strconv.Itoa(acct.ID), acct.Role)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// verifier adds revocation on top of signature and expiry checks.
type verifier struct{ s *Server }

func (v verifier) ParseAccess(token string) (*jwt.Claims, error) {
	claims, err := v.s.tokens.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	_, revoked := v.s.revokedAccess[claims.ID]
	v.s.mu.Unlock()
	if revoked {
		return nil, errTokenRevoked
	}
	return claims, nil
}

// currentAccount resolves the account of a guarded request.
func (s *Server) currentAccount(c echo.Context) (*account, error) {
	claims, ok := middleware.ClaimsFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
	}
	id, err := strconv.Atoi(string(claims.UserID))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}
	s.mu.Lock()
	acct := s.accounts[id]
	s.mu.Unlock()
	if acct == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}
	return acct, nil
}
