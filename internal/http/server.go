// Package http exposes the JSON API over gorilla/mux.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"emitrack/internal/auth"
	"emitrack/internal/log"
	"emitrack/internal/middleware/ratelimit"
	"emitrack/internal/middleware/security"
	"emitrack/internal/middleware/trace"
	"emitrack/internal/services"
	"emitrack/internal/storage"
)

// Services bundles the application services the handlers call.
type Services struct {
	EMIs    *services.EMIService
	Ledger  *services.LedgerService
	Incomes *services.IncomeService
	Cards   *services.CardService
	Budgets *services.BudgetService
}

// Store is what the server needs from storage directly: user provisioning
// for auth and a ping for readiness.
type Store interface {
	storage.UserStore
	Ping(ctx context.Context) error
}

type Options struct {
	Addr            string
	Store           Store
	Verifier        *auth.Verifier
	RateLimitPerMin int
	Logger          *log.Logger
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

type Server struct {
	http.Server
	svc          Services
	store        Store
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer wires middleware and routes and returns a ready-to-run server.
func NewServer(opts Options, svc Services) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		svc:      svc,
		store:    opts.Store,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMin,
		}),
		now: opts.Now,
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(
		trace.Middleware,
		log.Middleware(opts.Logger, trace.FromRequest, s.detector.ClientIP),
		s.detector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
	)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(
		auth.Middleware(opts.Verifier, opts.Store),
		s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		}),
	)

	api.HandleFunc("/emis", s.handleListEMIs).Methods(http.MethodGet)
	api.HandleFunc("/emis", s.handleCreateEMI).Methods(http.MethodPost)
	api.HandleFunc("/emis/{id}", s.handleUpdateEMI).Methods(http.MethodPut)
	api.HandleFunc("/emis/{id}", s.handleDeleteEMI).Methods(http.MethodDelete)
	api.HandleFunc("/emis/{id}/mark-paid", s.handleMarkEMIPaid).Methods(http.MethodPost)
	api.HandleFunc("/emis/{id}/due-date", s.handleChangeEMIDueDate).Methods(http.MethodPatch)

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/income", s.handleListIncome).Methods(http.MethodGet)
	api.HandleFunc("/income", s.handleCreateIncome).Methods(http.MethodPost)
	api.HandleFunc("/income/{id}", s.handleUpdateIncome).Methods(http.MethodPut)
	api.HandleFunc("/income/{id}", s.handleDeleteIncome).Methods(http.MethodDelete)

	api.HandleFunc("/credit-cards", s.handleListCards).Methods(http.MethodGet)
	api.HandleFunc("/credit-cards", s.handleCreateCard).Methods(http.MethodPost)
	api.HandleFunc("/credit-cards/{id}", s.handleUpdateCard).Methods(http.MethodPut)
	api.HandleFunc("/credit-cards/{id}", s.handleDeleteCard).Methods(http.MethodDelete)
	api.HandleFunc("/credit-cards/{id}/pay", s.handlePayCard).Methods(http.MethodPost)

	api.HandleFunc("/budget", s.handleBudget).Methods(http.MethodGet)

	return r
}

// rateLimitKey buckets authenticated callers by user so clients behind one
// NAT do not share a budget.
func (s *Server) rateLimitKey(r *http.Request) string {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return "user:" + u.ID
	}
	return "ip:" + s.detector.ClientIP(r)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).Error("Readiness check failed", log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
