// Package http exposes the ledger over a JSON REST API.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"spentee/internal/engine"
	"spentee/internal/log"
	"spentee/internal/middleware/ratelimit"
	"spentee/internal/middleware/security"
	"spentee/internal/middleware/trace"
	"spentee/internal/storage"
)

// SyncNotifier announces saved ledger rows to the export pipeline. A nil
// notifier disables export; saves must never fail because a broker is down.
type SyncNotifier interface {
	TransactionSaved(ctx context.Context, kind, id string) error
	TransactionDeleted(ctx context.Context, kind, id string) error
}

// Options carries everything the server needs; all fields but Addr and
// Store are optional.
type Options struct {
	Addr     string
	Store    storage.LedgerStore
	Engine   *engine.Engine
	Notifier SyncNotifier

	JWTSecret   string
	TokenExpiry time.Duration

	// SharedData exposes every owner's rows to every authenticated user.
	SharedData bool

	RequestsPerMinute int
}

type Server struct {
	http.Server

	store    storage.LedgerStore
	engine   *engine.Engine
	notifier SyncNotifier

	jwtSecret   []byte
	tokenExpiry time.Duration
	sharedData  bool

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.TokenExpiry <= 0 {
		opts.TokenExpiry = 24 * time.Hour
	}
	if opts.Engine == nil {
		opts.Engine = engine.New(opts.Store)
	}

	s := &Server{
		store:       opts.Store,
		engine:      opts.Engine,
		notifier:    opts.Notifier,
		jwtSecret:   []byte(opts.JWTSecret),
		tokenExpiry: opts.TokenExpiry,
		sharedData:  opts.SharedData,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.requireAuth(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.requireAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/incomes", s.requireAuth(s.handleListIncomes))
	mux.HandleFunc("POST /api/incomes", s.requireAuth(s.handleCreateIncome))
	mux.HandleFunc("GET /api/incomes/{id}", s.requireAuth(s.handleGetIncome))
	mux.HandleFunc("PUT /api/incomes/{id}", s.requireAuth(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.requireAuth(s.handleDeleteIncome))

	mux.HandleFunc("GET /api/savings", s.requireAuth(s.handleListSavings))
	mux.HandleFunc("POST /api/savings", s.requireAuth(s.handleCreateSaving))
	mux.HandleFunc("GET /api/savings/{id}", s.requireAuth(s.handleGetSaving))
	mux.HandleFunc("PUT /api/savings/{id}", s.requireAuth(s.handleUpdateSaving))
	mux.HandleFunc("DELETE /api/savings/{id}", s.requireAuth(s.handleDeleteSaving))

	mux.HandleFunc("GET /api/upi-payments", s.requireAuth(s.handleListUPIPayments))
	mux.HandleFunc("POST /api/upi-payments", s.requireAuth(s.handleCreateUPIPayment))
	mux.HandleFunc("GET /api/upi-payments/{id}", s.requireAuth(s.handleGetUPIPayment))
	mux.HandleFunc("PUT /api/upi-payments/{id}", s.requireAuth(s.handleUpdateUPIPayment))
	mux.HandleFunc("DELETE /api/upi-payments/{id}", s.requireAuth(s.handleDeleteUPIPayment))

	mux.HandleFunc("GET /api/emis", s.requireAuth(s.handleListEMIPlans))
	mux.HandleFunc("POST /api/emis", s.requireAuth(s.handleCreateEMIPlan))
	mux.HandleFunc("GET /api/emis/{id}", s.requireAuth(s.handleGetEMIPlan))
	mux.HandleFunc("PUT /api/emis/{id}", s.requireAuth(s.handleUpdateEMIPlan))
	mux.HandleFunc("DELETE /api/emis/{id}", s.requireAuth(s.handleDeleteEMIPlan))
	mux.HandleFunc("POST /api/emis/{id}/pay", s.requireAuth(s.handlePayEMI))
	mux.HandleFunc("POST /api/emis/{id}/unpay", s.requireAuth(s.handleUnpayEMI))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/{id}", s.requireAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.requireAuth(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/status", s.requireAuth(s.handleBudgetStatuses))

	mux.HandleFunc("GET /api/financial/summary", s.requireAuth(s.handleFinancialSummary))
	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(clientIP)
	limited := s.limiter.Middleware(clientIP, nil)
	logged := log.Middleware(log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP))

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: headers.Middleware(tracer.Middleware(logged(limited(mux)))),
	}
	return s
}

// Shutdown stops the server and its background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the store answers; one cheap list is enough.
	if _, err := s.store.PendingSync(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// clientIP extracts the caller's IP, honoring the usual proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
