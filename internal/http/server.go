package http

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finanzas/internal/cache"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Pinger reports whether the ledger store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer.
type Options struct {
	Addr               string
	Ledger             *services.LedgerService
	Store              Pinger // nil means always ready
	JWTSecret          string
	RateLimitPerMinute int
	TrustedProxies     []string // extra CIDRs whose forwarding headers name the client
	RequestTimeout     time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	ledger         *services.LedgerService
	store          Pinger
	logger         *applog.Logger
	requestTimeout time.Duration

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics
	caches           *cache.Manager

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime           time.Time
	expensesRecorded int64
	incomesRecorded  int64
}

// NewServer wires the routes and middleware and returns a server ready to
// ListenAndServe.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limiterCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s := &Server{
		ledger:           opts.Ledger,
		store:            opts.Store,
		logger:           logger,
		requestTimeout:   timeout,
		rateLimiter:      ratelimit.NewLimiter(limiterCfg),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError().Write(w)
	})

	router.Handle("/healthz", methods{http.MethodGet: s.handleHealth})
	router.Handle("/readyz", methods{http.MethodGet: s.handleReady})
	router.Handle("/metrics", methods{http.MethodGet: s.handleMetrics})

	auth := NewAuthenticator(opts.JWTSecret, logger)
	s.caches = cache.NewManager(func(removed int) {
		logger.Debug("Token cache cleanup completed", "entries_removed", removed)
	})
	s.caches.Register(auth.tokens)
	s.caches.StartCleanup(tokenCacheTTL)

	api := router.PathPrefix("/financial").Subrouter()
	api.Use(auth.Middleware)
	api.Use(s.withTimeout)

	api.Handle("/goals", methods{
		http.MethodPost: s.handleCreateGoal,
		http.MethodGet:  s.handleListGoals,
	})
	api.Handle("/goals/{goalID}", methods{
		http.MethodGet:    s.handleGetGoal,
		http.MethodPut:    s.handleUpdateGoal,
		http.MethodDelete: s.handleDeleteGoal,
	})
	api.Handle("/goals/{goalID}/contributions", methods{
		http.MethodPost: s.countIncome(s.handleContribute),
		http.MethodGet:  s.handleListContributions,
	})

	api.Handle("/categories", methods{
		http.MethodPost: s.handleCreateCategory,
		http.MethodGet:  s.handleListCategories,
	})
	api.Handle("/categories/{categoryID}", methods{
		http.MethodPut:    s.handleUpdateCategory,
		http.MethodDelete: s.handleDeleteCategory,
	})

	api.Handle("/expenses", methods{
		http.MethodPost: s.countExpense(s.handleRecordExpense),
		http.MethodGet:  s.handleListExpenses,
	})
	api.Handle("/incomes", methods{
		http.MethodPost: s.countIncome(s.handleRecordIncome),
		http.MethodGet:  s.handleListIncomes,
	})

	api.Handle("/summary", methods{http.MethodGet: s.handleSummary})

	api.Handle("/profile", methods{
		http.MethodPost: s.handleCreateProfile,
		http.MethodGet:  s.handleGetProfile,
		http.MethodPut:  s.handleUpdateProfile,
	})

	// Outermost first: every response carries a request id and the
	// security headers, including rate-limit rejections and 404s.
	var handler http.Handler = router
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, writeRateLimited)(handler)
	handler = detector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// methods dispatches one path on the request method. Every path is a single
// mux route so a known path with an unknown method answers 405 rather than
// falling through to the 404 handler.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	MethodNotAllowedError().Header("Allow", strings.Join(allowed, ", ")).Write(w)
}

// withTimeout bounds the store calls of a request.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Shutdown stops the background cleanups and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
