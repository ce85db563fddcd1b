// Package http exposes the JSON API: authentication, expense CRUD, derived
// dashboard views, and the admin surface. Handlers stay thin; every decision
// about visibility or tier lives in the service layer.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/auth"
	applog "tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
)

// Options carries everything the server needs from main.
type Options struct {
	Addr          string
	SecureCookies bool
	SessionTTL    time.Duration

	Accounts   *services.AccountService
	Expenses   *services.ExpenseService
	Dashboards *services.DashboardService
	Menus      *services.MenuService
	Admin      *services.AdminService
	Resolver   *auth.Resolver

	Logger *slog.Logger
}

type Server struct {
	http.Server

	accounts   *services.AccountService
	expenses   *services.ExpenseService
	dashboards *services.DashboardService
	menus      *services.MenuService
	admin      *services.AdminService
	resolver   *auth.Resolver

	secureCookies bool
	sessionTTL    time.Duration

	detector     *security.Detector
	authLimiter  *ratelimit.Limiter
	logger       *slog.Logger
	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		accounts:      opts.Accounts,
		expenses:      opts.Expenses,
		dashboards:    opts.Dashboards,
		menus:         opts.Menus,
		admin:         opts.Admin,
		resolver:      opts.Resolver,
		secureCookies: opts.SecureCookies,
		sessionTTL:    opts.SessionTTL,
		detector:      security.NewDetector(),
		authLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10}),
		logger:        logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Credential endpoints sit behind a tighter limiter: they are the only
	// routes an attacker can usefully hammer without a session. The refusal
	// uses the same JSON envelope as every other error response.
	limited := s.authLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
	})
	mux.Handle("POST /auth/register", limited(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /auth/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /auth/superadmin/login", limited(http.HandlerFunc(s.handleSuperadminLogin)))
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /graph", s.handleGraph)
	mux.HandleFunc("GET /menus", s.handleMenus)

	mux.HandleFunc("GET /admin/users", s.handleListUsers)
	mux.HandleFunc("DELETE /admin/users/{id}", s.handleDeleteUser)
	mux.HandleFunc("POST /admin/users/{id}/roles", s.handleGrantRole)
	mux.HandleFunc("DELETE /admin/users/{id}/roles/{role}", s.handleRevokeRole)
	mux.HandleFunc("POST /admin/users/{id}/menus", s.handleGrantMenu)
	mux.HandleFunc("GET /admin/menus", s.handleListMenus)
	mux.HandleFunc("POST /admin/menus", s.handleCreateMenu)

	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	httpLogger := applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: logger.Handler()})

	// Outside in: trace stamps the request id, the log middlewares bind a
	// request-scoped logger, then the session resolves to an identity.
	chain := s.withIdentity(mux)
	chain = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(chain)
	chain = applog.Middleware(httpLogger)(chain)
	handler := traceMW.Middleware(headers.Middleware(chain))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines before draining the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
